package thermal

import (
	"flag"
	"io"
	"log"
	"os"
	"time"
)

// Config provides common options to set up a Sampler.
type Config struct {
	SensorPath string
	// LogPath is the temperature log, appended to. Empty means stdout.
	LogPath  string
	Interval time.Duration
	Count    int
}

var defaultConfig = Config{
	SensorPath: DefaultSensorPath,
	LogPath:    "temperature_log.txt",
	Interval:   DefaultInterval,
}

func init() {
	if val := os.Getenv("THERMO_SENSOR"); val != "" {
		defaultConfig.SensorPath = val
	}
	if val := os.Getenv("THERMO_TEMP_LOG"); val != "" {
		defaultConfig.LogPath = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.SensorPath, "sensor", defaultConfig.SensorPath, "Temperature sensor file (millidegrees)")
	flag.StringVar(&defaultConfig.LogPath, "log", defaultConfig.LogPath, "Temperature log file, empty for stdout")
	flag.DurationVar(&defaultConfig.Interval, "sample-interval", defaultConfig.Interval, "Interval between samples")
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewSampler creates a Sampler writing to the configured log.
// The returned Closer releases the log file.
func (c *Config) NewSampler() (*Sampler, io.Closer, error) {
	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if c.LogPath != "" {
		f, err := OpenLog(c.LogPath)
		if err != nil {
			return nil, nil, err
		}
		w, closer = f, f
	}
	s := NewSampler(NewSysfsSensor(c.SensorPath), NewLogWriter(w), c.Interval)
	s.Count = c.Count
	return s, closer, nil
}

// MustNewSampler creates a Sampler and fails on error.
func (c *Config) MustNewSampler() (*Sampler, io.Closer) {
	s, closer, err := c.NewSampler()
	if err != nil {
		log.Fatalln(err)
	}
	return s, closer
}
