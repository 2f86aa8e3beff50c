// Package enclave hosts the transmitter which runs inside the isolated
// context and modulates received bits as CPU load.
package enclave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/hamming"
	"github.com/robotalks/thermo.go/pkg/modulation"
	"github.com/robotalks/thermo.go/pkg/workload"
)

// DefaultBufferCapacity is the number of bits the shared buffer holds.
const DefaultBufferCapacity = 1024

const origin = uint32(boundary.OriginTrustedApp)

// Transmitter runs one transmission at a time.
type Transmitter struct {
	Scheduler      *modulation.Scheduler
	BufferCapacity int
	// UnitCost is the measured cost of one workload unit.
	UnitCost workload.Cost
	// Registrar receives a TransmitReport after each transmission, if set.
	Registrar boundary.Registrar

	lock      sync.Mutex
	running   bool
	bitsDone  int
	bitsTotal int
	wg        sync.WaitGroup
}

// NewTransmitter creates a Transmitter and measures the workload.
func NewTransmitter(gen workload.Generator, capacity int) *Transmitter {
	t := &Transmitter{
		Scheduler:      modulation.NewScheduler(gen),
		BufferCapacity: capacity,
		UnitCost:       workload.Measure(gen, 20),
	}
	t.Scheduler.Observer = modulation.ObserverFuncs{Done: t.phaseDone}
	glog.Infof("workload unit cost: worst %v mean %v", t.UnitCost.Worst, t.UnitCost.Mean)
	return t
}

func (t *Transmitter) phaseDone(index int, entry modulation.Entry, elapsed time.Duration) {
	t.lock.Lock()
	t.bitsDone = index + 1
	t.lock.Unlock()
}

func badParams(format string, args ...interface{}) *msgs.CommandErr {
	return msgs.NewCommandErrFromMsg(fmt.Sprintf(format, args...)).WithCode(msgs.CodeBadParameters, origin)
}

// Validate checks a command against the transmitter limits.
func (t *Transmitter) Validate(cmd *msgs.TransmitCmd) *msgs.CommandErr {
	if cmd.BitTimeMs == 0 {
		return badParams("bit time must be positive")
	}
	if capacity := t.BufferCapacity; capacity > 0 && len(cmd.Bits) > capacity {
		err := &hamming.BufferTooSmallError{Need: len(cmd.Bits), Capacity: capacity}
		return msgs.NewCommandErr(err).WithCode(msgs.CodeShortBuffer, origin)
	}
	if cmd.Fec {
		codec, err := hamming.NewCodec(int(cmd.BlockSize))
		if err != nil {
			return badParams("block size %d: %v", cmd.BlockSize, err)
		}
		if len(cmd.Bits)%codec.BlockSize() != 0 {
			return badParams("%d bits is not a multiple of block size %d", len(cmd.Bits), cmd.BlockSize)
		}
	}
	return nil
}

func (t *Transmitter) acquire(total int) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.running {
		return false
	}
	t.running, t.bitsDone, t.bitsTotal = true, 0, total
	return true
}

func (t *Transmitter) release() {
	t.lock.Lock()
	t.running = false
	t.lock.Unlock()
}

// Transmit validates cmd and modulates its bits, returning the reply.
func (t *Transmitter) Transmit(ctx context.Context, cmd *msgs.TransmitCmd) fx.Message {
	if cmdErr := t.Validate(cmd); cmdErr != nil {
		glog.Warningf("transmit rejected: %v", cmdErr)
		return cmdErr
	}
	if !t.acquire(len(cmd.Bits)) {
		return msgs.NewCommandErrFromMsg("transmitter busy").WithCode(msgs.CodeBusy, origin)
	}
	defer t.release()

	d := time.Duration(cmd.BitTimeMs) * time.Millisecond
	glog.Infof("transmit %d bits, %v per bit, fec=%v", len(cmd.Bits), d, cmd.Fec)
	start := time.Now()
	err := t.Scheduler.Run(ctx, modulation.PlanFromBits(cmd.Bits, d))
	elapsed := time.Since(start)
	report := &msgs.TransmitReport{Bits: uint32(len(cmd.Bits)), ElapsedMs: uint32(elapsed / time.Millisecond)}

	var reply fx.Message = msgs.NewCommandOK()
	if err != nil {
		cmdErr := msgs.NewCommandErr(err)
		var symErr *modulation.InvalidSymbolError
		switch {
		case errors.As(err, &symErr):
			cmdErr.WithCode(msgs.CodeInvalidSymbol, origin)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			cmdErr.WithCode(msgs.CodeCancelled, origin)
		default:
			cmdErr.WithCode(msgs.CodeGeneric, origin)
		}
		report.Error, report.Code = cmdErr.Message, cmdErr.Code
		glog.Errorf("transmit failed after %v: %v", elapsed, err)
		reply = cmdErr
	} else {
		glog.Infof("transmit completed in %v", elapsed)
	}
	if r := t.Registrar; r != nil {
		if err := r.SendEvent(ctx, report); err != nil {
			glog.Warningf("send report error: %v", err)
		}
	}
	return reply
}

// Status returns the current status.
func (t *Transmitter) Status() *msgs.StatusReply {
	t.lock.Lock()
	defer t.lock.Unlock()
	return &msgs.StatusReply{
		State:      t.Scheduler.State().String(),
		BitsDone:   uint32(t.bitsDone),
		BitsTotal:  uint32(t.bitsTotal),
		UnitCostUs: uint32(t.UnitCost.Worst / time.Microsecond),
		Capacity:   uint32(t.BufferCapacity),
	}
}

// Handle replies a command message, TransmitCmd blocks until done.
func (t *Transmitter) Handle(ctx context.Context, msg fx.Message) fx.Message {
	switch m := msg.(type) {
	case *msgs.TransmitCmd:
		return t.Transmit(ctx, m)
	case *msgs.StatusQuery:
		return t.Status()
	}
	return msgs.NewCommandErr(msgs.ErrUnsupportedCommand).WithCode(msgs.CodeUnsupported, origin)
}

// Control implements Controller. Transmissions run outside the loop.
func (t *Transmitter) Control(cc fx.ControlContext) error {
	ctx := cc.Context()
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		cmdMsg, ok := mctx.CurrentMessage().(*boundary.CommandMsg)
		if !ok {
			return
		}
		switch m := cmdMsg.Command.Msg().(type) {
		case *msgs.StatusQuery:
			mctx.MessageTaken()
			done(cmdMsg.Command, t.Status())
		case *msgs.TransmitCmd:
			mctx.MessageTaken()
			if err := ctx.Err(); err != nil {
				done(cmdMsg.Command, msgs.NewCommandErr(err).WithCode(msgs.CodeCancelled, origin))
				return
			}
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				done(cmdMsg.Command, t.Transmit(ctx, m))
			}()
		}
	}))
	return nil
}

func done(cmd boundary.Command, reply fx.Message) {
	if err := cmd.Done(reply); err != nil {
		glog.Errorf("reply error: %v", err)
	}
}

// Run implements Runnable, it waits for transmissions at shutdown.
func (t *Transmitter) Run(ctx context.Context) error {
	<-ctx.Done()
	t.wg.Wait()
	return ctx.Err()
}

// AddToLoop implements LoopAdder. Being Runnable, the transmitter
// is also started as a runner of the loop.
func (t *Transmitter) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvCommand, t)
}
