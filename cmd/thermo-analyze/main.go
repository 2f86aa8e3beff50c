package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/robotalks/thermo.go/pkg/bits"
	"github.com/robotalks/thermo.go/pkg/demod"
)

func init() {
	demod.SetupFlags()
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <temperature_log>...\n", os.Args[0])
	flag.PrintDefaults()
}

func analyzeFile(conf *demod.Config, path string, truth bits.Sequence) (*demod.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	temps, err := demod.ReadLog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	r, err := demod.Analyze(temps, conf.Params, truth)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if conf.CSVPath != "" {
		if err = demod.AppendCSV(conf.CSVPath, conf.Params, r); err != nil {
			return r, err
		}
	}
	return r, nil
}

func printResult(path string, fec bool, r *demod.Result) {
	m := &r.Metrics
	fmt.Printf("---- %s\n", path)
	fmt.Printf("Raw message: %s\n", r.Raw)
	fmt.Printf("Message: %s\n", r.Message)
	fmt.Printf("Final message: %s\n", r.Readable)
	fmt.Printf("Bit Rate: %.4f bit/s\n", m.BitRate)
	fmt.Printf("Total Errors: %d\n", m.TotalErrors)
	fmt.Printf("Error Rate: %.4f\n", m.ErrorRate)
	if fec {
		fmt.Printf("Corrected Errors: %d\n", m.CorrectedErrors)
		fmt.Printf("Correction Rate: %.4f\n", m.CorrectionRate)
	}
	fmt.Printf("Meaningful Errors: %d\n", m.MeaningfulErrors)
	fmt.Printf("Throughput: %.4f bit/s\n", m.Throughput)
	fmt.Printf("Transfer time: %.4f s\n", m.TransferTime.Seconds())
	fmt.Printf("Accuracy: %.4f%%\n", m.Accuracy)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	conf := demod.Default()
	if conf.SamplesPerBit() <= 0 {
		fmt.Fprintln(os.Stderr, "bit time must be at least one sample interval")
		os.Exit(2)
	}
	var truth bits.Sequence
	var err error
	if conf.Bits != "" {
		truth, err = bits.Parse(conf.Bits)
	} else {
		truth, err = bits.Expand([]byte(conf.Truth))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var runs []bits.Sequence
	for _, path := range flag.Args() {
		r, err := analyzeFile(conf, path, truth)
		if err != nil {
			log.Fatalln(err)
		}
		printResult(path, conf.FEC, r)
		runs = append(runs, r.Message)
	}
	if len(runs) > 1 {
		merged, err := demod.MergeMajority(runs)
		if err != nil {
			log.Printf("merge skipped: %v", err)
			return
		}
		fmt.Printf("---- merged %d runs\n", len(runs))
		fmt.Printf("Message: %s\n", merged)
		fmt.Printf("Meaningful Errors: %d\n", len(demod.Compare(merged, truth)))
		fmt.Printf("Final message: %s\n", demod.Readable(merged))
	}
}
