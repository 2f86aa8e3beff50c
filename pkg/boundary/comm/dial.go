package comm

import (
	"context"

	"github.com/robotalks/thermo.go/pkg/boundary"
)

// DialFunc opens a packet connection to a context.
type DialFunc func(context.Context) (PacketReadWriter, error)

// DialConnector is a boundary.Connector for point-to-point transports
// where the endpoint hosts exactly one context.
type DialConnector struct {
	Info boundary.ContextInfo
	Dial DialFunc
}

// Discover implements boundary.Connector.
func (c *DialConnector) Discover(context.Context) ([]boundary.ContextInfo, error) {
	return []boundary.ContextInfo{c.Info}, nil
}

// Connect implements boundary.Connector.
func (c *DialConnector) Connect(ctx context.Context, ref boundary.ContextRef) (boundary.Session, error) {
	rw, err := c.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return NewSession(rw), nil
}
