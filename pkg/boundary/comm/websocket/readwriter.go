// Package websocket carries packets over WebSocket binary frames.
package websocket

import (
	"sync"

	"golang.org/x/net/websocket"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter struct {
	Conn *websocket.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return &ReadWriter{Conn: conn, closed: make(chan struct{})}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive(p.Conn, &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send(p.Conn, pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() (err error) {
	p.closeOnce.Do(func() {
		err = p.Conn.Close()
		close(p.closed)
	})
	return
}

// Closed is closed after Close.
func (p *ReadWriter) Closed() <-chan struct{} {
	return p.closed
}
