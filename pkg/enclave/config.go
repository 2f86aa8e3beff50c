package enclave

import (
	"flag"
	"os"
	"strconv"

	"github.com/robotalks/thermo.go/pkg/workload"
)

// Config provides options of the Transmitter.
type Config struct {
	// MatrixSize and Depth set the cost of one workload unit.
	MatrixSize     int
	Depth          int
	BufferCapacity int
}

var defaultConfig = Config{
	MatrixSize:     workload.DefaultMatrixSize,
	Depth:          workload.DefaultDepth,
	BufferCapacity: DefaultBufferCapacity,
}

func init() {
	if val, err := strconv.Atoi(os.Getenv("THERMO_TA_BUFFER")); err == nil && val > 0 {
		defaultConfig.BufferCapacity = val
	}
	if val, err := strconv.Atoi(os.Getenv("THERMO_WORKLOAD_DEPTH")); err == nil && val > 0 {
		defaultConfig.Depth = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.MatrixSize, "matrix-size", defaultConfig.MatrixSize, "Workload matrix size")
	flag.IntVar(&defaultConfig.Depth, "depth", defaultConfig.Depth, "Workload recursion depth")
	flag.IntVar(&defaultConfig.BufferCapacity, "ta-buffer", defaultConfig.BufferCapacity, "Transmitter buffer capacity in bits")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewTransmitter creates a Transmitter from config.
func (c *Config) NewTransmitter() *Transmitter {
	gen := &workload.Recursive{MatrixSize: c.MatrixSize, Depth: c.Depth}
	return NewTransmitter(gen, c.BufferCapacity)
}
