// Package thermal reads die temperature and logs it periodically.
package thermal

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"
)

// DefaultSensorPath is the first thermal zone exposed by Linux sysfs.
const DefaultSensorPath = "/sys/class/thermal/thermal_zone0/temp"

// Sensor reads a temperature in degrees Celsius.
type Sensor interface {
	Read() (float64, error)
}

// SensorFunc is the func form of Sensor.
type SensorFunc func() (float64, error)

// Read implements Sensor.
func (f SensorFunc) Read() (float64, error) {
	return f()
}

// SensorError indicates the temperature source is unreadable.
type SensorError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *SensorError) Error() string {
	return fmt.Sprintf("read sensor %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SensorError) Unwrap() error {
	return e.Err
}

// SysfsSensor reads an integer in millidegrees from a sysfs file.
type SysfsSensor struct {
	Path string
}

// NewSysfsSensor creates a SysfsSensor, DefaultSensorPath if path is empty.
func NewSysfsSensor(path string) *SysfsSensor {
	if path == "" {
		path = DefaultSensorPath
	}
	return &SysfsSensor{Path: path}
}

// Read implements Sensor.
func (s *SysfsSensor) Read() (float64, error) {
	content, err := ioutil.ReadFile(s.Path)
	if err != nil {
		return 0, &SensorError{Path: s.Path, Err: err}
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(content)), 10, 64)
	if err != nil {
		return 0, &SensorError{Path: s.Path, Err: err}
	}
	return float64(milli) / 1000, nil
}
