package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/env/connector"
	"github.com/robotalks/thermo.go/pkg/enclave"
	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/sender"
	"github.com/robotalks/thermo.go/pkg/thermal"
)

func init() {
	connector.SetupFlags()
	enclave.SetupFlags()
	sender.SetupFlags()
	thermal.SetupFlags()
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <bit_time_ms> <apply_fec:0|1>\n", os.Args[0])
	flag.PrintDefaults()
}

// parseArgs applies the positional arguments to conf.
func parseArgs(conf *sender.Config, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expect 2 arguments, got %d", len(args))
	}
	ms, err := strconv.Atoi(args[0])
	if err != nil || ms <= 0 {
		return fmt.Errorf("invalid bit_time_ms %q", args[0])
	}
	conf.BitTime = time.Duration(ms) * time.Millisecond
	switch args[1] {
	case "0":
		conf.FEC = false
	case "1":
		conf.FEC = true
	default:
		return fmt.Errorf("invalid apply_fec %q", args[1])
	}
	return nil
}

func exitWith(err error) {
	log.Println(err)
	var te *boundary.TransportError
	if errors.As(err, &te) {
		os.Exit(te.ExitCode())
	}
	os.Exit(1)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := sender.Default()
	if err := parseArgs(conf, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	input, err := conf.Input()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	payload, err := conf.Prepare(input)
	if err != nil {
		log.Fatalln(err)
	}

	ctx := fx.NewRunner().HandleSignals().Context
	conn, err := sender.Open(ctx, connector.Default())
	if err != nil {
		exitWith(err)
	}
	sampler, closer, err := thermal.Default().NewSampler()
	if err != nil {
		conn.Close()
		log.Fatalln(err)
	}
	report, err := sender.New(conf, conn.Session, sampler).Send(ctx, payload)
	closer.Close()
	conn.Close()
	if err != nil {
		exitWith(err)
	}
	log.Printf("sent %d bits to %s in %v, %d samples recorded",
		len(payload.Bits), conn.Ref.Name(), report.Stopped.Sub(report.Started), sampler.Taken())
}
