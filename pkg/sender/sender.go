// Package sender prepares a message and hands it to the transmitter while
// the temperature is sampled.
package sender

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/bits"
	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/env/connector"
	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
	"github.com/robotalks/thermo.go/pkg/hamming"
	"github.com/robotalks/thermo.go/pkg/sampling"
)

// Payload is the bit sequence ready to be transmitted.
type Payload struct {
	Bits bits.Sequence
	// DataBits is the length before encoding.
	DataBits  int
	FEC       bool
	BlockSize int
	Framed    bool
}

// Input returns the bits to send from the config.
func (c *Config) Input() (bits.Sequence, error) {
	if c.Bits != "" {
		return bits.Parse(c.Bits)
	}
	return bits.Expand([]byte(c.Message))
}

// Prepare frames and encodes input. Nothing is produced when the result
// does not fit the buffer.
func (c *Config) Prepare(input bits.Sequence) (*Payload, error) {
	if input == nil {
		return nil, bits.ErrInvalidInput
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	p := &Payload{Bits: input, FEC: c.FEC, Framed: c.Framed}
	if c.Framed {
		framed, err := bits.Frame(input)
		if err != nil {
			return nil, err
		}
		p.Bits = framed
	}
	p.DataBits = len(p.Bits)
	if !c.FEC {
		if c.Buffer > 0 && len(p.Bits) > c.Buffer {
			return nil, &hamming.BufferTooSmallError{Need: len(p.Bits), Capacity: c.Buffer}
		}
		return p, nil
	}

	codec, err := hamming.NewCodec(c.BlockSize)
	if err != nil {
		return nil, err
	}
	size := codec.EncodedLen(len(p.Bits))
	if c.Buffer > 0 {
		size = c.Buffer
	}
	buf := make(bits.Sequence, size)
	n, err := codec.EncodeTo(buf, p.Bits)
	if err != nil {
		return nil, err
	}
	p.Bits, p.BlockSize = buf[:n], c.BlockSize
	return p, nil
}

// Command builds the TransmitCmd for p.
func (c *Config) Command(p *Payload) *msgs.TransmitCmd {
	return &msgs.TransmitCmd{
		Bits:      []byte(p.Bits),
		BitTimeMs: uint32(c.BitTime / time.Millisecond),
		Fec:       p.FEC,
		BlockSize: uint32(p.BlockSize),
		Framed:    p.Framed,
	}
}

// Open connects to the transmitter, failures are TransportError
// of the connect or open session stage.
func Open(ctx context.Context, conf *connector.Config) (*connector.Conn, error) {
	c, err := conf.NewConnector()
	if err != nil {
		return nil, boundary.AsTransportError(boundary.StageConnect, err)
	}
	ref, err := conf.Resolve(ctx, c)
	if err != nil {
		return nil, boundary.AsTransportError(boundary.StageConnect, err)
	}
	session, err := c.Connect(ctx, ref)
	if err != nil {
		return nil, boundary.AsTransportError(boundary.StageSession, err)
	}
	glog.V(2).Infof("connected to %s", ref.Name())
	return connector.Run(ctx, ref, session), nil
}

// Sender transmits payloads over a session.
type Sender struct {
	Config      *Config
	Session     boundary.Session
	Coordinator *sampling.Coordinator
}

// New creates a Sender.
func New(conf *Config, session boundary.Session, task sampling.Task) *Sender {
	return &Sender{
		Config:      conf,
		Session:     session,
		Coordinator: &sampling.Coordinator{Task: task},
	}
}

// Send transmits p while the coordinator samples. A transmission failure
// is returned as TransportError of the invoke stage.
func (s *Sender) Send(ctx context.Context, p *Payload) (sampling.Report, error) {
	cmd := s.Config.Command(p)
	expiration := s.Config.Expiration(len(p.Bits))
	coordinator := s.Coordinator
	if coordinator == nil {
		coordinator = &sampling.Coordinator{}
	}
	glog.Infof("sending %d bits (%d data), %v per bit, expires in %v", len(p.Bits), p.DataBits, s.Config.BitTime, expiration)
	report, err := coordinator.Run(ctx, func(ctx context.Context) error {
		return s.invoke(ctx, cmd, expiration)
	})
	if err != nil && !errors.Is(err, sampling.ErrNotStarted) {
		err = boundary.AsTransportError(boundary.StageInvoke, err)
	}
	return report, err
}

func (s *Sender) invoke(ctx context.Context, cmd *msgs.TransmitCmd, expiration time.Duration) error {
	future := s.Session.DoCommandWithin(cmd, expiration)
	select {
	case res := <-future.ResultChan():
		if res.Err != nil {
			return res.Err
		}
		if cmdErr, ok := res.Msg.(*msgs.CommandErr); ok {
			return cmdErr
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
