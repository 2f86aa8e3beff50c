package websocket

import (
	"errors"
	"net"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/robotalks/thermo.go/pkg/boundary/comm"
)

// DefaultPath is the HTTP path sessions connect to.
const DefaultPath = "/boundary"

// ErrListenerClosed is returned by Accept after Close.
var ErrListenerClosed = errors.New("listener closed")

// Listener serves WebSocket sessions over HTTP and implements comm.Listener.
type Listener struct {
	Path string

	ln        net.Listener
	server    *http.Server
	connCh    chan *ReadWriter
	done      chan struct{}
	closeOnce sync.Once
}

// Listen listens on a TCP address and serves WebSocket on path.
func Listen(addr, path string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = DefaultPath
	}
	l := &Listener{
		Path:   path,
		ln:     ln,
		connCh: make(chan *ReadWriter),
		done:   make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(l.handle))
	l.server = &http.Server{Handler: mux}
	go l.server.Serve(ln)
	return l, nil
}

// handle blocks until the session is closed, as the
// connection is closed when the handler returns.
func (l *Listener) handle(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	rw := New(conn)
	select {
	case l.connCh <- rw:
	case <-l.done:
		return
	}
	select {
	case <-rw.Closed():
	case <-l.done:
	}
}

// Accept implements comm.Listener.
func (l *Listener) Accept() (comm.PacketReadWriter, error) {
	select {
	case rw := <-l.connCh:
		return rw, nil
	case <-l.done:
		return nil, ErrListenerClosed
	}
}

// Close implements comm.Listener.
func (l *Listener) Close() (err error) {
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.server.Close()
	})
	return
}

// Addr implements comm.Listener.
func (l *Listener) Addr() string {
	return "ws://" + l.ln.Addr().String() + l.Path
}

// Dial connects to a WebSocket URL.
func Dial(url string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return New(conn), nil
}
