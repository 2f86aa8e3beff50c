package sender

import (
	"flag"
	"os"
	"time"

	"github.com/robotalks/thermo.go/pkg/enclave"
)

// DefaultMessage is sent when neither a message nor bits are given.
const DefaultMessage = "hola"

// Config provides options of a transmission.
type Config struct {
	// Message is expanded to bits, unless Bits is set.
	Message string
	// Bits is a pre-formed '0'/'1' string.
	Bits string
	// BitTime is the duration of one bit, it must be positive.
	BitTime   time.Duration
	FEC       bool
	BlockSize int
	// Buffer is the capacity in bits of the transmitter buffer.
	Buffer int
	// Framed prepends a length header to the payload.
	Framed bool
	// Slack is added to the expected transmission time to get the
	// command expiration.
	Slack time.Duration
}

var defaultConfig = Config{
	Message:   DefaultMessage,
	BlockSize: 16,
	Buffer:    enclave.DefaultBufferCapacity,
	Framed:    true,
	Slack:     5 * time.Second,
}

func init() {
	if val := os.Getenv("THERMO_MESSAGE"); val != "" {
		defaultConfig.Message = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Message, "msg", defaultConfig.Message, "Message to send")
	flag.StringVar(&defaultConfig.Bits, "bits", defaultConfig.Bits, "Send this bit string instead of a message")
	flag.IntVar(&defaultConfig.BlockSize, "block-size", defaultConfig.BlockSize, "Hamming block size in bits")
	flag.IntVar(&defaultConfig.Buffer, "buffer", defaultConfig.Buffer, "Transmitter buffer capacity in bits")
	flag.BoolVar(&defaultConfig.Framed, "framed", defaultConfig.Framed, "Prepend a 16-bit length header, -framed=false to send the bare payload")
	flag.DurationVar(&defaultConfig.Slack, "slack", defaultConfig.Slack, "Extra time allowed for the transmission reply")
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

// Expiration is how long to wait for the reply of n bits.
func (c *Config) Expiration(n int) time.Duration {
	return time.Duration(n)*c.BitTime + c.Slack
}
