package comm

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
	fx "github.com/robotalks/thermo.go/pkg/framework"
)

var (
	// ErrNotCommand indicates a command was expected.
	ErrNotCommand = errors.New("message is not a command")
	// ErrNotEvent indicates an event was expected.
	ErrNotEvent = errors.New("message is not an event")
)

// Pipe is a bi-directional pipe for messages.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    msgs.TypedMsgHandler

	sendLock sync.Mutex
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw}
}

// SendCommandMsg sends a message which must be a command or a reply.
func (p *Pipe) SendCommandMsg(msg fx.Message, seq uint32) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	if !typed.IsCommand() {
		return ErrNotCommand
	}
	typed.Sequence = seq
	return p.SendTyped(typed)
}

// SendEventMsg sends a message which must be an event.
func (p *Pipe) SendEventMsg(msg fx.Message) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	if !typed.IsEvent() {
		return ErrNotEvent
	}
	return p.SendTyped(typed)
}

// SendTyped send a Typed message.
func (p *Pipe) SendTyped(typed *msgs.Typed) error {
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	glog.V(2).Infof("SND %08x seq=%d %d bytes", typed.TypeID, typed.Sequence, len(pkt))
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	return p.ReadWriter.WritePacket(pkt)
}

// Run implements Runnable.
func (p *Pipe) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, p, func() error {
		for {
			pkt, err := p.ReadWriter.ReadPacket()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
			typed, err := msgs.DecodeTyped(pkt)
			if err != nil {
				return err
			}
			glog.V(2).Infof("RCV %08x seq=%d %d bytes", typed.TypeID, typed.Sequence, len(pkt))
			msg, err := typed.Decode()
			if err != nil {
				// A command which can't be decoded is answered right away.
				if typed.IsCommand() && !typed.IsReply() {
					reply := msgs.NewCommandErr(err).WithCode(msgs.CodeUnsupported, uint32(boundary.OriginTrustedApp))
					if err = p.SendCommandMsg(reply, typed.Sequence); err != nil {
						return err
					}
				}
				continue
			}
			if h := p.Handler; h != nil {
				if err = h.HandleTypedMsg(ctx, msg, typed); err != nil {
					return err
				}
			}
		}
	})
}

// Close implements Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (p *Pipe) AddToLoop(loop *fx.Loop) {
	if adder, ok := p.ReadWriter.(fx.LoopAdder); ok {
		loop.Add(adder)
	} else if runnable, ok := p.ReadWriter.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
	loop.AddRunnable(p)
}
