package framework

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultLoopInterval is the iteration interval when none is set.
const DefaultLoopInterval = 100 * time.Millisecond

// Loop runs controllers by priority level on every tick or trigger,
// handing them the messages posted since the previous iteration.
// Runnable controllers and runners added to the loop run alongside
// it and get the loop control from their context.
type Loop struct {
	Interval time.Duration

	levels  [PriorityLevels][]Controller
	runners []Runnable

	lock    sync.Mutex
	pending []Message
	wakeUp  chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopCtxKeyType struct{}

var loopCtxKey loopCtxKeyType

// LoopCtlFrom gets LoopControl from the context given to loop runners.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey).(LoopControl)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultLoopInterval, wakeUp: make(chan struct{}, 1)}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at priorityLevel. A controller
// which is also Runnable is started with the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.levels[priorityLevel] = append(l.levels[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnables started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable. It returns when ctx is done, after all
// runners stopped.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUp == nil {
		l.wakeUp = make(chan struct{}, 1)
	}
	runner := NewRunnerWith(context.WithValue(ctx, loopCtxKey, LoopControl(l))).Go(l.runners...)
	defer func() {
		if err := runner.Wait(); err != nil {
			glog.Warningf("loop runners: %v", err)
		}
	}()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultLoopInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-l.wakeUp:
		}
		l.iterate(ctx)
	}
}

// RunOrFail is intended to be used in main to simply run the loop
// until interrupted.
func (l *Loop) RunOrFail() {
	ctx := NewRunner().HandleSignals().Context
	if err := l.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.pending = append(l.pending, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUp <- struct{}{}:
	default:
	}
}

func (l *Loop) iterate(ctx context.Context) {
	l.lock.Lock()
	msgs := l.pending
	l.pending = nil
	l.lock.Unlock()

	iter := &iteration{Loop: l, time: time.Now(), messages: msgs}
	iter.ctx = context.WithValue(ctx, loopCtxKey, LoopControl(l))
	for _, ctls := range l.levels {
		for _, ctl := range ctls {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
	if len(iter.messages) > 0 {
		glog.V(4).Infof("%d messages not taken", len(iter.messages))
	}
}

type iteration struct {
	*Loop
	ctx      context.Context
	time     time.Time
	messages []Message
}

func (t *iteration) Context() context.Context { return t.ctx }
func (t *iteration) Time() time.Time          { return t.time }
func (t *iteration) Messages() MessageStore   { return t }

type messageContext struct {
	msg   Message
	taken bool
}

func (c *messageContext) CurrentMessage() Message { return c.msg }
func (c *messageContext) MessageTaken()           { c.taken = true }

// ProcessMessages implements MessageStore, messages not taken stay
// for the controllers which follow.
func (t *iteration) ProcessMessages(proc MessageProcessor) {
	remains := t.messages[:0]
	for _, msg := range t.messages {
		mc := &messageContext{msg: msg}
		proc.ProcessMessage(mc)
		if !mc.taken {
			remains = append(remains, msg)
		}
	}
	for n := len(remains); n < len(t.messages); n++ {
		t.messages[n] = nil
	}
	t.messages = remains
}
