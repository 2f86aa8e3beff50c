package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMsg struct {
	val int
}

func (m *testMsg) NewMessage() Message { return &testMsg{} }

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, nil).Aggregate())

	first := errors.New("first")
	require.Equal(t, first, errs.Add(first).Aggregate())

	second := errors.New("second")
	err := errs.Add(second).Aggregate()
	require.Equal(t, "Multiple errors:\nfirst\nsecond", err.Error())
	require.True(t, errors.Is(err, second))
	require.False(t, errors.Is(err, context.Canceled))
}

func TestRunnerWait(t *testing.T) {
	failure := errors.New("failed")
	r := NewRunner().Go(
		NamedRun("ok", RunFunc(func(context.Context) error { return nil })),
		NamedRun("failed", RunFunc(func(context.Context) error { return failure })),
	)
	err := r.Wait()
	require.True(t, errors.Is(err, failure))
	require.Equal(t, "failed: failed", err.Error())
	var runnerErr *RunnerError
	require.True(t, errors.As(err, &runnerErr))
	require.Equal(t, "failed", runnerErr.Name)
}

func TestRunnerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx).Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	cancel()
	require.NoError(t, r.Wait())
}

func TestRunWithContext(t *testing.T) {
	require.Equal(t, errors.New("x"), RunWithContext(context.Background(), func() error {
		return errors.New("x")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	cancelled := false
	go cancel()
	err := RunWithContextCancel(ctx, func() {
		cancelled = true
		close(release)
	}, func() error {
		<-release
		return nil
	})
	require.Equal(t, context.Canceled, err)
	require.True(t, cancelled)
}

func TestLoopDispatchesMessages(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour
	got := make(chan int, 4)
	loop.AddController(PrLvCommand, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			if m, ok := mc.CurrentMessage().(*testMsg); ok && m.val%2 == 0 {
				got <- m.val
				mc.MessageTaken()
			}
		}))
		return nil
	}))
	loop.AddController(PrLvFallback, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			got <- -mc.CurrentMessage().(*testMsg).val
			mc.MessageTaken()
		}))
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	loop.PostMessage(&testMsg{val: 2})
	loop.PostMessage(&testMsg{val: 3})
	loop.TriggerNext()

	var vals []int
	for len(vals) < 2 {
		select {
		case v := <-got:
			vals = append(vals, v)
		case <-time.After(time.Second):
			t.Fatal("messages not dispatched")
		}
	}
	require.Equal(t, []int{2, -3}, vals)
	cancel()
	require.Equal(t, context.Canceled, <-done)
}

func TestLoopRunsRunnables(t *testing.T) {
	loop := NewLoop()
	started := make(chan LoopControl, 1)
	loop.AddRunnable(RunFunc(func(ctx context.Context) error {
		started <- LoopCtlFrom(ctx)
		<-ctx.Done()
		return ctx.Err()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	select {
	case ctl := <-started:
		require.NotNil(t, ctl)
	case <-time.After(time.Second):
		t.Fatal("runnable not started")
	}
	cancel()
	require.Equal(t, context.Canceled, <-done)
}
