// Package comm carries boundary messages over packet transports.
package comm

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Listener accepts packet connections from sessions.
type Listener interface {
	Accept() (PacketReadWriter, error)
	Close() error
	Addr() string
}
