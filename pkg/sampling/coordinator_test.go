package sampling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/thermo.go/pkg/thermal"
)

type events struct {
	lock sync.Mutex
	list []string
}

func (e *events) add(ev string) {
	e.lock.Lock()
	e.list = append(e.list, ev)
	e.lock.Unlock()
}

func (e *events) get() []string {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]string(nil), e.list...)
}

func newSampler(ev *events, sensorErr error) *thermal.Sampler {
	return thermal.NewSampler(thermal.SensorFunc(func() (float64, error) {
		if sensorErr != nil {
			return 0, sensorErr
		}
		ev.add("sample")
		return 40, nil
	}), &thermal.MemorySink{}, time.Millisecond)
}

func TestCoordinatorOrdering(t *testing.T) {
	ev := &events{}
	s := newSampler(ev, nil)
	c := &Coordinator{Task: s}
	report, err := c.Run(context.Background(), func(ctx context.Context) error {
		ev.add("transmit")
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, report.SamplerErr)
	list := ev.get()
	require.Equal(t, "sample", list[0])
	require.Contains(t, list, "transmit")
	require.False(t, report.Started.IsZero())
	require.True(t, report.Stopped.After(report.Started))
	select {
	case <-s.Done():
	default:
		t.Fatal("sampler still running")
	}
	n := s.Taken()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, n, s.Taken())
}

func TestCoordinatorCancelsOnFailure(t *testing.T) {
	ev := &events{}
	s := newSampler(ev, nil)
	failure := errors.New("boom")
	report, err := (&Coordinator{Task: s}).Run(context.Background(), func(ctx context.Context) error {
		return failure
	})
	require.Equal(t, failure, err)
	require.Equal(t, failure, report.TransmitErr)
	require.NoError(t, report.SamplerErr)
	<-s.Done()
}

func TestCoordinatorNotStarted(t *testing.T) {
	ev := &events{}
	s := newSampler(ev, &thermal.SensorError{Path: "x", Err: errors.New("gone")})
	called := false
	report, err := (&Coordinator{Task: s}).Run(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Equal(t, ErrNotStarted, err)
	require.False(t, called)
	require.Error(t, report.SamplerErr)
}

func TestCoordinatorSamplerFailsDuringTransmit(t *testing.T) {
	var lock sync.Mutex
	reads := 0
	s := thermal.NewSampler(thermal.SensorFunc(func() (float64, error) {
		lock.Lock()
		defer lock.Unlock()
		reads++
		if reads > 1 {
			return 0, errors.New("unplugged")
		}
		return 40, nil
	}), &thermal.MemorySink{}, time.Millisecond)
	report, err := (&Coordinator{Task: s}).Run(context.Background(), func(ctx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	require.Error(t, report.SamplerErr)
}

func TestCoordinatorWithoutTask(t *testing.T) {
	called := false
	_, err := (&Coordinator{}).Run(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}
