// Package sampling runs a sampling task around a transmission.
package sampling

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// ErrNotStarted indicates the task stopped before taking its first sample.
var ErrNotStarted = errors.New("sampling task stopped before start")

// Task is a sampling task, thermal.Sampler satisfies it.
type Task interface {
	fx.Runnable
	// Started is closed once the first sample is recorded.
	Started() <-chan struct{}
}

// Report summarizes one coordinated run.
type Report struct {
	// Started is when the first sample was recorded.
	Started time.Time
	// Stopped is when the task was cancelled.
	Stopped time.Time
	// TransmitErr is what transmit returned.
	TransmitErr error
	// SamplerErr is the task failure, if any, other than cancellation.
	SamplerErr error
}

// Coordinator starts Task before a transmission and cancels it right after.
type Coordinator struct {
	Task Task
}

// Run starts the task, waits for its first sample and calls transmit.
// The task is cancelled as soon as transmit returns, and Run waits for the
// task to stop. The returned error is the transmission failure, or
// ErrNotStarted if the task ended before sampling.
func (c *Coordinator) Run(ctx context.Context, transmit func(context.Context) error) (Report, error) {
	var report Report
	if c.Task == nil {
		report.TransmitErr = transmit(ctx)
		return report, report.TransmitErr
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runner := fx.NewRunnerWith(taskCtx).Go(fx.NamedRun("sampler", c.Task))
	stopped := make(chan error, 1)
	go func() { stopped <- runner.Wait() }()

	select {
	case <-c.Task.Started():
		report.Started = time.Now()
	case err := <-stopped:
		report.SamplerErr = err
		if err == nil {
			err = ErrNotStarted
		}
		glog.Errorf("sampling not started: %v", err)
		return report, ErrNotStarted
	case <-ctx.Done():
		cancel()
		report.SamplerErr = <-stopped
		return report, ctx.Err()
	}

	glog.V(2).Info("sampling started, transmitting")
	report.TransmitErr = transmit(ctx)
	cancel()
	report.Stopped = time.Now()
	report.SamplerErr = <-stopped
	if report.SamplerErr != nil {
		glog.Warningf("sampling error: %v", report.SamplerErr)
	}
	return report, report.TransmitErr
}
