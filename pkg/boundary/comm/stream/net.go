package stream

import (
	"context"
	"net"

	"github.com/robotalks/thermo.go/pkg/boundary/comm"
)

// Listener accepts stream sessions from a net.Listener.
type Listener struct {
	net.Listener
}

// Listen listens on a TCP address.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{Listener: ln}, nil
}

// Accept implements comm.Listener.
func (l *Listener) Accept() (comm.PacketReadWriter, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Addr implements comm.Listener.
func (l *Listener) Addr() string {
	return "tcp://" + l.Listener.Addr().String()
}

// Dial connects a TCP address.
func Dial(ctx context.Context, addr string) (*ReadWriter, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}
