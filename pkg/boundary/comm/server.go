package comm

import (
	"context"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// Server is a boundary.Registrar accepting sessions from a Listener.
// Each accepted connection gets its own Registrar, events are
// broadcast to all of them.
type Server struct {
	Listener Listener

	conns map[*Registrar]struct{}
	lock  sync.Mutex
	wg    sync.WaitGroup
}

// NewServer creates a Server.
func NewServer(l Listener) *Server {
	return &Server{Listener: l, conns: make(map[*Registrar]struct{})}
}

// SendEvent implements Registrar.
func (s *Server) SendEvent(ctx context.Context, msg fx.Message) error {
	s.lock.Lock()
	regs := make([]*Registrar, 0, len(s.conns))
	for reg := range s.conns {
		regs = append(regs, reg)
	}
	s.lock.Unlock()
	var errs fx.AggregatedError
	for _, reg := range regs {
		errs.Add(reg.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// Sessions returns the number of connected sessions.
func (s *Server) Sessions() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.conns)
}

// AddToLoop implements LoopAdder.
func (s *Server) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(fx.NamedRun("server:"+s.Listener.Addr(), s))
}

// Run implements Runnable. ctx must carry the loop control.
func (s *Server) Run(ctx context.Context) error {
	glog.Infof("accepting sessions on %s", s.Listener.Addr())
	err := fx.RunWithContextCloser(ctx, s.Listener, func() error {
		for {
			rw, err := s.Listener.Accept()
			if err != nil {
				return err
			}
			reg := NewRegistrar(rw)
			s.lock.Lock()
			if s.conns == nil {
				s.conns = make(map[*Registrar]struct{})
			}
			s.conns[reg] = struct{}{}
			s.lock.Unlock()
			s.wg.Add(1)
			go s.serve(ctx, reg)
		}
	})
	s.lock.Lock()
	for reg := range s.conns {
		reg.pipe.Close()
	}
	s.lock.Unlock()
	s.wg.Wait()
	return err
}

func (s *Server) serve(ctx context.Context, reg *Registrar) {
	defer s.wg.Done()
	glog.V(2).Info("session connected")
	if err := reg.Run(ctx); err != nil && err != context.Canceled {
		glog.Warningf("session error: %v", err)
	}
	s.lock.Lock()
	delete(s.conns, reg)
	s.lock.Unlock()
	glog.V(2).Info("session disconnected")
}
