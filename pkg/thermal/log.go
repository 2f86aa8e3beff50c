package thermal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Sink receives samples in the order they are taken.
type Sink interface {
	Append(celsius float64) error
}

// LogWriter writes one reading per line with three decimals.
// Each Append issues exactly one write so nothing is left buffered.
type LogWriter struct {
	w    io.Writer
	lock sync.Mutex
}

// NewLogWriter creates a LogWriter.
func NewLogWriter(w io.Writer) *LogWriter {
	return &LogWriter{w: w}
}

// OpenLog opens path for appending, creating it when missing.
func OpenLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
}

// Append implements Sink.
func (l *LogWriter) Append(celsius float64) error {
	line := fmt.Sprintf("%.3f\n", celsius)
	l.lock.Lock()
	defer l.lock.Unlock()
	_, err := io.WriteString(l.w, line)
	return err
}

// MemorySink keeps samples in memory.
type MemorySink struct {
	lock    sync.Mutex
	samples []float64
}

// Append implements Sink.
func (s *MemorySink) Append(celsius float64) error {
	s.lock.Lock()
	s.samples = append(s.samples, celsius)
	s.lock.Unlock()
	return nil
}

// Samples returns a copy of collected samples.
func (s *MemorySink) Samples() []float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]float64(nil), s.samples...)
}
