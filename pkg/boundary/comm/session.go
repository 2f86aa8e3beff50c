package comm

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// Session provides base implementation for boundary.Session using Pipe.
// It must be added to a running Loop which reads replies and expires
// commands without one.
type Session struct {
	Expiration time.Duration
	// Events receives events from the context, if set.
	Events func(fx.Message)

	pipe     Pipe
	seq      uint32
	commands list.List
	seqMap   map[uint32]*commandFuture
	lock     sync.Mutex
}

// DefaultCommandExpiration is the default expiration expecting a result.
const DefaultCommandExpiration = 1 * time.Second

// Init initializes Session with defaults.
func (s *Session) Init(rw PacketReadWriter) {
	s.Expiration = DefaultCommandExpiration
	s.pipe.ReadWriter = rw
	s.pipe.Handler = msgs.HandleTypedMsgFunc(s.handleTypedMsg)
	s.seqMap = make(map[uint32]*commandFuture)
}

// NewSession creates a Session over rw.
func NewSession(rw PacketReadWriter) *Session {
	s := &Session{}
	s.Init(rw)
	return s
}

// DoCommand implements boundary.Session.
func (s *Session) DoCommand(msg fx.Message) boundary.CommandFuture {
	return s.DoCommandWithin(msg, s.Expiration)
}

// DoCommandWithin implements boundary.Session.
func (s *Session) DoCommandWithin(msg fx.Message, d time.Duration) boundary.CommandFuture {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.seq++
	if s.seq == 0 {
		s.seq++
	}
	f := &commandFuture{
		seq:      s.seq,
		expireAt: time.Now().Add(d),
		result:   make(chan boundary.Result, 1),
	}
	if err := s.pipe.SendCommandMsg(msg, f.seq); err != nil {
		f.result <- boundary.Result{Err: err}
		close(f.result)
		return f
	}
	s.insert(f)
	s.seqMap[f.seq] = f
	return f
}

// insert keeps commands ordered by expiration.
func (s *Session) insert(f *commandFuture) {
	for elem := s.commands.Back(); elem != nil; elem = elem.Prev() {
		if !elem.Value.(*commandFuture).expireAt.After(f.expireAt) {
			f.elem = s.commands.InsertAfter(f, elem)
			return
		}
	}
	f.elem = s.commands.PushFront(f)
}

// Close implements io.Closer.
func (s *Session) Close() error {
	return s.pipe.Close()
}

// AddToLoop implements LoopAdder.
func (s *Session) AddToLoop(l *fx.Loop) {
	l.Add(&s.pipe)
	l.AddController(fx.PrLvFallback, fx.ControlFunc(s.purgeExpired))
}

func (s *Session) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		if h := s.Events; h != nil {
			h(msg)
		}
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	f := s.seqMap[typed.Sequence]
	if f == nil {
		glog.V(2).Infof("reply seq=%d has no pending command", typed.Sequence)
		return nil
	}
	s.commands.Remove(f.elem)
	delete(s.seqMap, typed.Sequence)
	result := boundary.Result{Msg: msg}
	if cmdErr, ok := msg.(*msgs.CommandErr); ok {
		result.Err = cmdErr
	}
	f.result <- result
	close(f.result)
	return nil
}

func (s *Session) purgeExpired(cc fx.ControlContext) error {
	s.expire(cc.Time())
	return nil
}

func (s *Session) expire(now time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for s.commands.Len() > 0 {
		elem := s.commands.Front()
		f := elem.Value.(*commandFuture)
		if f.expireAt.After(now) {
			break
		}
		s.commands.Remove(elem)
		delete(s.seqMap, f.seq)
		f.result <- boundary.Result{Err: context.DeadlineExceeded}
		close(f.result)
	}
}

type commandFuture struct {
	seq      uint32
	expireAt time.Time
	elem     *list.Element
	result   chan boundary.Result
}

func (c *commandFuture) ResultChan() <-chan boundary.Result {
	return c.result
}
