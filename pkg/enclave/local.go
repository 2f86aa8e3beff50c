package enclave

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/comm"
	"github.com/robotalks/thermo.go/pkg/boundary/env"
	"github.com/robotalks/thermo.go/pkg/boundary/env/connector"
	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// LocalRef refers to the in-process transmitter.
var LocalRef = boundary.ContextRef{Type: env.ContextType, ID: "local"}

func init() {
	connector.RegisterScheme("local", func(*url.URL) (boundary.Connector, error) {
		return &LocalConnector{Config: NewConfig()}, nil
	})
}

// LocalSession implements boundary.Session by calling a Transmitter
// in process, each command in its own goroutine.
type LocalSession struct {
	Transmitter *Transmitter
	Expiration  time.Duration

	ctx    context.Context
	cancel func()
	wg     sync.WaitGroup
}

// NewLocalSession creates a LocalSession.
func NewLocalSession(t *Transmitter) *LocalSession {
	s := &LocalSession{Transmitter: t, Expiration: comm.DefaultCommandExpiration}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

type localFuture chan boundary.Result

func (f localFuture) ResultChan() <-chan boundary.Result {
	return f
}

// DoCommand implements boundary.Session.
func (s *LocalSession) DoCommand(msg fx.Message) boundary.CommandFuture {
	return s.DoCommandWithin(msg, s.Expiration)
}

// DoCommandWithin implements boundary.Session. An expired command is
// cancelled and its result is context.DeadlineExceeded.
func (s *LocalSession) DoCommandWithin(msg fx.Message, d time.Duration) boundary.CommandFuture {
	f := make(localFuture, 1)
	ctx, cancel := context.WithCancel(s.ctx)
	replyCh := make(chan fx.Message, 1)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		replyCh <- s.Transmitter.Handle(ctx, msg)
	}()
	go func() {
		defer s.wg.Done()
		defer cancel()
		timer := time.NewTimer(d)
		defer timer.Stop()
		var result boundary.Result
		select {
		case reply := <-replyCh:
			result.Msg = reply
			if cmdErr, ok := reply.(*msgs.CommandErr); ok {
				result.Err = cmdErr
			}
		case <-timer.C:
			result.Err = context.DeadlineExceeded
		case <-s.ctx.Done():
			result.Err = s.ctx.Err()
		}
		f <- result
		close(f)
	}()
	return f
}

// Close cancels pending commands and waits for them.
func (s *LocalSession) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

// LocalConnector connects to a Transmitter created on first use.
type LocalConnector struct {
	Config *Config

	once        sync.Once
	transmitter *Transmitter
}

// Discover implements boundary.Connector.
func (c *LocalConnector) Discover(context.Context) ([]boundary.ContextInfo, error) {
	return []boundary.ContextInfo{{
		Ref:  LocalRef,
		Meta: boundary.ContextMeta{Description: "In-process transmitter"},
	}}, nil
}

// Connect implements boundary.Connector.
func (c *LocalConnector) Connect(ctx context.Context, ref boundary.ContextRef) (boundary.Session, error) {
	c.once.Do(func() {
		c.transmitter = c.Config.NewTransmitter()
	})
	return NewLocalSession(c.transmitter), nil
}
