package thermal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the default time between two samples.
const DefaultInterval = 10 * time.Millisecond

// ErrSamplerReused is returned by Run on a Sampler which already ran.
var ErrSamplerReused = errors.New("sampler already ran")

// Sampler periodically reads Sensor and appends readings to Sink.
// It implements framework.Runnable and runs only once, Started and Done
// describe that single run.
type Sampler struct {
	Sensor   Sensor
	Sink     Sink
	Interval time.Duration
	// Count limits the number of samples, 0 samples until cancelled.
	Count int

	initOnce  sync.Once
	startedCh chan struct{}
	doneCh    chan struct{}
	ran       int32
	lock      sync.Mutex
	taken     int
}

// NewSampler creates a Sampler.
func NewSampler(sensor Sensor, sink Sink, interval time.Duration) *Sampler {
	return &Sampler{Sensor: sensor, Sink: sink, Interval: interval}
}

// Name implements framework.Named.
func (s *Sampler) Name() string {
	return "sampler"
}

func (s *Sampler) init() {
	s.initOnce.Do(func() {
		s.startedCh = make(chan struct{})
		s.doneCh = make(chan struct{})
	})
}

// Started is closed once the first sample has been appended.
func (s *Sampler) Started() <-chan struct{} {
	s.init()
	return s.startedCh
}

// Done is closed when Run returns.
func (s *Sampler) Done() <-chan struct{} {
	s.init()
	return s.doneCh
}

// Taken returns the number of samples appended so far.
func (s *Sampler) Taken() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.taken
}

// Run implements framework.Runnable. Cancellation is observed between
// samples only, a sample in progress is always appended.
func (s *Sampler) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.ran, 0, 1) {
		return ErrSamplerReused
	}
	s.init()
	defer close(s.doneCh)

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	for n := 0; s.Count <= 0 || n < s.Count; n++ {
		if n > 0 {
			if err := wait(ctx, interval); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		celsius, err := s.Sensor.Read()
		if err != nil {
			glog.Errorf("sampler stopped: %v", err)
			return err
		}
		if err = s.Sink.Append(celsius); err != nil {
			glog.Errorf("sampler stopped: append error: %v", err)
			return err
		}
		s.lock.Lock()
		s.taken++
		s.lock.Unlock()
		if n == 0 {
			close(s.startedCh)
		}
	}
	glog.V(2).Infof("sampler completed %d samples", s.Count)
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
