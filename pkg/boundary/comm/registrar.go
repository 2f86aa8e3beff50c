package comm

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// ErrReplied is returned when a command is replied more than once.
var ErrReplied = errors.New("command already replied")

// Registrar is the transmitter side of a Pipe. Commands received are
// posted to the Loop carried by the Run context as boundary.CommandMsg,
// events as they are.
type Registrar struct {
	pipe Pipe
}

// NewRegistrar creates a Registrar over rw.
func NewRegistrar(rw PacketReadWriter) *Registrar {
	r := &Registrar{}
	r.Init(rw)
	return r
}

// Init binds an uninitialized Registrar to rw.
func (r *Registrar) Init(rw PacketReadWriter) {
	r.pipe.ReadWriter = rw
	r.pipe.Handler = msgs.HandleTypedMsgFunc(r.received)
}

func (r *Registrar) received(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	var post fx.Message
	switch {
	case typed.IsReply():
		glog.Warningf("dropped %s #%d: replies are not expected by a registrar", msgs.NameOf(msg), typed.Sequence)
		return nil
	case typed.IsCommand():
		post = &boundary.CommandMsg{Command: &remoteCommand{seq: typed.Sequence, msg: msg, pipe: &r.pipe}}
	default:
		post = msg
	}
	ctl := fx.LoopCtlFrom(ctx)
	ctl.PostMessage(post)
	ctl.TriggerNext()
	return nil
}

// SendEvent implements boundary.Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.pipe.SendEventMsg(msg)
}

// Run reads the pipe until ctx is done or the transport fails.
func (r *Registrar) Run(ctx context.Context) error {
	return r.pipe.Run(ctx)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.pipe)
}

// remoteCommand is replied over the pipe it arrived on, at most once.
type remoteCommand struct {
	seq     uint32
	msg     fx.Message
	pipe    *Pipe
	replied int32
}

func (c *remoteCommand) Msg() fx.Message {
	return c.msg
}

func (c *remoteCommand) Done(reply fx.Message) error {
	if !atomic.CompareAndSwapInt32(&c.replied, 0, 1) {
		return ErrReplied
	}
	return c.pipe.SendCommandMsg(reply, c.seq)
}

// RegistrarMux fans events out to several registrars, for a transmitter
// reachable through more than one transport.
type RegistrarMux struct {
	Registrars []boundary.Registrar
}

// Add appends registrars.
func (r *RegistrarMux) Add(regs ...boundary.Registrar) {
	r.Registrars = append(r.Registrars, regs...)
}

// SendEvent implements boundary.Registrar.
func (r *RegistrarMux) SendEvent(ctx context.Context, msg fx.Message) error {
	var errs fx.AggregatedError
	for _, reg := range r.Registrars {
		errs.Add(reg.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// AddToLoop adds every registrar which knows how to join a Loop.
func (r *RegistrarMux) AddToLoop(l *fx.Loop) {
	for _, reg := range r.Registrars {
		if adder, ok := reg.(fx.LoopAdder); ok {
			l.Add(adder)
		}
	}
}

// UnsupportedCommands replies CodeUnsupported to commands left untaken
// by all other controllers.
type UnsupportedCommands struct{}

// Control implements Controller.
func (c *UnsupportedCommands) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		cmdMsg, ok := mctx.CurrentMessage().(*boundary.CommandMsg)
		if !ok {
			return
		}
		mctx.MessageTaken()
		glog.V(2).Infof("unsupported command %s", msgs.NameOf(cmdMsg.Command.Msg()))
		reply := msgs.NewCommandErr(msgs.ErrUnsupportedCommand).
			WithCode(msgs.CodeUnsupported, uint32(boundary.OriginTrustedApp))
		if err := cmdMsg.Command.Done(reply); err != nil {
			glog.Warningf("reply unsupported command: %v", err)
		}
	}))
	return nil
}

// AddToLoop implements LoopAdder.
func (c *UnsupportedCommands) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvFallback, c)
}
