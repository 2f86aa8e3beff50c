package comm_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/comm"
	"github.com/robotalks/thermo.go/pkg/boundary/comm/stream"
	"github.com/robotalks/thermo.go/pkg/boundary/comm/websocket"
	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
	fx "github.com/robotalks/thermo.go/pkg/framework"
)

type customCmd struct{}

func (m *customCmd) NewMessage() fx.Message { return &customCmd{} }
func (m *customCmd) TypeID() uint32 { return msgs.GroupCustom | 1 }
func (m *customCmd) Serializable() proto.Message { return m }
func (m *customCmd) ProtoMessage() {}
func (m *customCmd) Reset() {}
func (m *customCmd) String() string { return "custom" }

// statusOnly replies StatusQuery and leaves everything else.
var statusOnly = fx.ControlFunc(func(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		if cmd, ok := mc.CurrentMessage().(*boundary.CommandMsg); ok {
			if _, ok := cmd.Command.Msg().(*msgs.StatusQuery); ok {
				mc.MessageTaken()
				cmd.Command.Done(&msgs.StatusReply{State: "DONE", BitsDone: 3, BitsTotal: 3})
			}
		}
	}))
	return nil
})

func runLoop(t *testing.T, adders ...fx.LoopAdder) func() {
	loop := fx.NewLoop()
	loop.Interval = 10 * time.Millisecond
	loop.Add(adders...)
	loop.AddController(fx.PrLvCommand, statusOnly)
	loop.Add(&comm.UnsupportedCommands{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("loop not stopped")
		}
	}
}

func runSession(s *comm.Session) func() {
	loop := fx.NewLoop()
	loop.Interval = 10 * time.Millisecond
	loop.Add(s)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	return func() {
		cancel()
		s.Close()
	}
}

func result(t *testing.T, f boundary.CommandFuture) boundary.Result {
	select {
	case res := <-f.ResultChan():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("command timeout")
	}
	return boundary.Result{}
}

func pipePair() (*comm.Registrar, *comm.Session) {
	c1, c2 := net.Pipe()
	return comm.NewRegistrar(stream.New(c1)), comm.NewSession(stream.New(c2))
}

func TestCommandRepliedOnce(t *testing.T) {
	reg, session := pipePair()
	second := make(chan error, 1)
	twice := fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
			if cmd, ok := mc.CurrentMessage().(*boundary.CommandMsg); ok {
				mc.MessageTaken()
				cmd.Command.Done(msgs.NewCommandOK())
				second <- cmd.Command.Done(msgs.NewCommandOK())
			}
		}))
		return nil
	})
	loop := fx.NewLoop()
	loop.Interval = 10 * time.Millisecond
	loop.Add(reg)
	loop.AddController(fx.PrLvCommand, twice)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)
	defer runSession(session)()

	res := result(t, session.DoCommand(&msgs.StatusQuery{}))
	require.NoError(t, res.Err)
	require.Equal(t, comm.ErrReplied, <-second)
}

func TestSessionCommands(t *testing.T) {
	reg, session := pipePair()
	defer runLoop(t, reg)()
	defer runSession(session)()

	res := result(t, session.DoCommand(&msgs.StatusQuery{}))
	require.NoError(t, res.Err)
	require.Equal(t, &msgs.StatusReply{State: "DONE", BitsDone: 3, BitsTotal: 3}, res.Msg)

	res = result(t, session.DoCommand(&msgs.TransmitCmd{Bits: []byte{1}, BitTimeMs: 1}))
	require.IsType(t, &msgs.CommandErr{}, res.Err)
	cmdErr := res.Err.(*msgs.CommandErr)
	require.Equal(t, msgs.CodeUnsupported, cmdErr.Code)
	require.Equal(t, uint32(boundary.OriginTrustedApp), cmdErr.Origin)

	res = result(t, session.DoCommand(&customCmd{}))
	require.IsType(t, &msgs.CommandErr{}, res.Err)
	require.Equal(t, msgs.CodeUnsupported, res.Err.(*msgs.CommandErr).Code)
}

func TestSessionEvents(t *testing.T) {
	reg, session := pipePair()
	events := make(chan fx.Message, 1)
	session.Events = func(msg fx.Message) { events <- msg }
	defer runLoop(t, reg)()
	defer runSession(session)()

	require.NoError(t, reg.SendEvent(context.Background(), &msgs.TransmitReport{Bits: 8, ElapsedMs: 80}))
	select {
	case msg := <-events:
		require.Equal(t, &msgs.TransmitReport{Bits: 8, ElapsedMs: 80}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}

	require.Equal(t, comm.ErrNotEvent, reg.SendEvent(context.Background(), &msgs.StatusQuery{}))
}

type blackhole struct {
	closed chan struct{}
}

func (b *blackhole) ReadPacket() ([]byte, error) {
	<-b.closed
	return nil, context.Canceled
}

func (b *blackhole) WritePacket([]byte) error { return nil }

func (b *blackhole) Close() error {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
	return nil
}

func TestSessionExpiration(t *testing.T) {
	session := comm.NewSession(&blackhole{closed: make(chan struct{})})
	defer runSession(session)()
	start := time.Now()
	long := session.DoCommandWithin(&msgs.StatusQuery{}, time.Hour)
	res := result(t, session.DoCommandWithin(&msgs.StatusQuery{}, 20*time.Millisecond))
	require.Equal(t, context.DeadlineExceeded, res.Err)
	require.True(t, time.Since(start) >= 20*time.Millisecond)
	select {
	case <-long.ResultChan():
		t.Fatal("long command expired early")
	default:
	}
}

func TestSessionSendFailure(t *testing.T) {
	_, session := pipePair()
	session.Close()
	res := result(t, session.DoCommand(&msgs.StatusQuery{}))
	require.Error(t, res.Err)
}

func testServer(t *testing.T, ln comm.Listener, dial comm.DialFunc) {
	srv := comm.NewServer(ln)
	defer runLoop(t, srv)()

	connector := &comm.DialConnector{Dial: dial}
	s, err := connector.Connect(context.Background(), boundary.ContextRef{})
	require.NoError(t, err)
	session := s.(*comm.Session)
	events := make(chan fx.Message, 1)
	session.Events = func(msg fx.Message) { events <- msg }
	defer runSession(session)()

	res := result(t, session.DoCommand(&msgs.StatusQuery{}))
	require.NoError(t, res.Err)
	require.Equal(t, "DONE", res.Msg.(*msgs.StatusReply).State)

	require.Equal(t, 1, srv.Sessions())
	require.NoError(t, srv.SendEvent(context.Background(), &msgs.TransmitReport{Bits: 1}))
	select {
	case msg := <-events:
		require.Equal(t, uint32(1), msg.(*msgs.TransmitReport).Bits)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestStreamServer(t *testing.T) {
	ln, err := stream.Listen("127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Listener.Addr().String()
	testServer(t, ln, func(ctx context.Context) (comm.PacketReadWriter, error) {
		return stream.Dial(ctx, addr)
	})
}

func TestWebSocketServer(t *testing.T) {
	ln, err := websocket.Listen("127.0.0.1:0", "")
	require.NoError(t, err)
	url := ln.Addr()
	testServer(t, ln, func(context.Context) (comm.PacketReadWriter, error) {
		return websocket.Dial(url)
	})
}
