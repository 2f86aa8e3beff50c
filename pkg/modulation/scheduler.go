package modulation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/workload"
)

// ErrNoWorkload indicates the scheduler has no Generator for BUSY phases.
var ErrNoWorkload = errors.New("no workload generator")

// InvalidSymbolError aborts a run on an entry which is neither BUSY nor IDLE.
type InvalidSymbolError struct {
	Index  int
	Symbol Symbol
}

// Error implements error.
func (e *InvalidSymbolError) Error() string {
	return fmt.Sprintf("invalid symbol %v at %d", e.Symbol, e.Index)
}

// State is the scheduler state.
type State int

// States.
const (
	StateInit State = iota
	StateBusy
	StateIdle
	StateDone
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateBusy:
		return "BUSY"
	case StateIdle:
		return "IDLE"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Observer is notified around each phase.
// Callbacks run on the scheduler goroutine and must return quickly.
type Observer interface {
	PhaseStarted(index int, entry Entry)
	PhaseDone(index int, entry Entry, elapsed time.Duration)
}

// ObserverFuncs adapts funcs to Observer. Nil funcs are skipped.
type ObserverFuncs struct {
	Started func(index int, entry Entry)
	Done    func(index int, entry Entry, elapsed time.Duration)
}

// PhaseStarted implements Observer.
func (o ObserverFuncs) PhaseStarted(index int, entry Entry) {
	if o.Started != nil {
		o.Started(index, entry)
	}
}

// PhaseDone implements Observer.
func (o ObserverFuncs) PhaseDone(index int, entry Entry, elapsed time.Duration) {
	if o.Done != nil {
		o.Done(index, entry, elapsed)
	}
}

// Scheduler runs plans. A Scheduler runs one plan at a time.
type Scheduler struct {
	Workload workload.Generator
	Observer Observer

	state int32
}

// NewScheduler creates a Scheduler with the given workload.
func NewScheduler(gen workload.Generator) *Scheduler {
	return &Scheduler{Workload: gen}
}

// Run executes plan left to right.
//
// BUSY phases invoke the workload back to back until the monotonic time
// since the phase started reaches the entry duration, so a phase overshoots
// by at most one workload unit. IDLE phases block on a timer. The context
// is checked between entries and while idle, never inside a BUSY phase.
func (s *Scheduler) Run(ctx context.Context, plan Plan) (err error) {
	if s.Workload == nil {
		return ErrNoWorkload
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.setState(StateInit)
	defer func() {
		if err != nil {
			s.setState(StateFailed)
		} else {
			s.setState(StateDone)
		}
	}()

	for index, entry := range plan {
		if err = ctx.Err(); err != nil {
			return
		}
		if !entry.Symbol.IsValid() {
			glog.Errorf("entry %d: invalid symbol %v, abort", index, entry.Symbol)
			return &InvalidSymbolError{Index: index, Symbol: entry.Symbol}
		}
		if o := s.Observer; o != nil {
			o.PhaseStarted(index, entry)
		}
		start := time.Now()
		if entry.Symbol == Busy {
			s.setState(StateBusy)
			s.busy(start, entry.Duration)
		} else {
			s.setState(StateIdle)
			err = idle(ctx, entry.Duration)
		}
		elapsed := time.Since(start)
		if err != nil {
			return
		}
		glog.V(2).Infof("entry %d: %v %v (elapsed %v)", index, entry.Symbol, entry.Duration, elapsed)
		if o := s.Observer; o != nil {
			o.PhaseDone(index, entry, elapsed)
		}
	}
	return nil
}

// State returns the current state. It is safe to call from any goroutine.
func (s *Scheduler) State() State {
	return State(atomic.LoadInt32(&s.state))
}

func (s *Scheduler) setState(st State) {
	atomic.StoreInt32(&s.state, int32(st))
}

func (s *Scheduler) busy(start time.Time, d time.Duration) {
	for time.Since(start) < d {
		s.Workload.RunUnit()
	}
}

func idle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
