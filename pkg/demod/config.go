package demod

import (
	"flag"
	"os"
	"time"
)

// Config provides options of thermo-analyze.
type Config struct {
	Params
	// Truth is the message which was sent, Bits takes precedence.
	Truth string
	Bits  string
	// CSVPath receives a metrics row, empty to skip.
	CSVPath string
}

var defaultConfig = Config{
	Params: Params{
		BitTime:        3 * time.Second,
		SampleInterval: 10 * time.Millisecond,
		BlockSize:      16,
		Framed:         true,
	},
	Truth: "hola",
}

func init() {
	if val := os.Getenv("THERMO_METRICS_CSV"); val != "" {
		defaultConfig.CSVPath = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.BitTime, "bit-time", defaultConfig.BitTime, "Duration of one bit")
	flag.DurationVar(&defaultConfig.SampleInterval, "sample-interval", defaultConfig.SampleInterval, "Interval between samples")
	flag.BoolVar(&defaultConfig.FEC, "fec", defaultConfig.FEC, "Decode Hamming blocks")
	flag.IntVar(&defaultConfig.BlockSize, "block-size", defaultConfig.BlockSize, "Hamming block size in bits")
	flag.BoolVar(&defaultConfig.Framed, "framed", defaultConfig.Framed, "Payload starts with a length header, as thermo-send does by default")
	flag.Float64Var(&defaultConfig.Tolerance, "tolerance", defaultConfig.Tolerance, "Degrees treated as no change, 0 for bit time in ms / 10000")
	flag.StringVar(&defaultConfig.Truth, "truth", defaultConfig.Truth, "Message which was sent")
	flag.StringVar(&defaultConfig.Bits, "truth-bits", defaultConfig.Bits, "Bit string which was sent, instead of -truth")
	flag.StringVar(&defaultConfig.CSVPath, "csv", defaultConfig.CSVPath, "Append metrics to this CSV file")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}
