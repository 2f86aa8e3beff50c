package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/thermal"
)

func init() {
	thermal.SetupFlags()
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <measurement_count> <sample_interval_us>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	count, err := strconv.Atoi(flag.Arg(0))
	if err != nil || count <= 0 {
		fmt.Fprintf(os.Stderr, "invalid measurement_count %q\n", flag.Arg(0))
		os.Exit(2)
	}
	us, err := strconv.Atoi(flag.Arg(1))
	if err != nil || us <= 0 {
		fmt.Fprintf(os.Stderr, "invalid sample_interval_us %q\n", flag.Arg(1))
		os.Exit(2)
	}

	conf := thermal.Default()
	conf.Count, conf.Interval = count, time.Duration(us)*time.Microsecond
	sampler, closer := conf.MustNewSampler()
	err = fx.NewRunner().HandleSignals().Go(sampler).Wait()
	closer.Close()
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("%d samples recorded", sampler.Taken())
}
