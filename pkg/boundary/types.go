// Package boundary defines the message-passing interface across the
// isolation boundary between the untrusted sender and the isolated
// transmitter context.
package boundary

import (
	"context"
	"io"
	"time"

	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// Registrar registers an isolated context to a registry.
// It integrates with framework and helps the context
// process commands received across the boundary.
type Registrar interface {
	// SendEvent sends an event to connected sessions.
	SendEvent(context.Context, fx.Message) error
}

// Command represents a received command to be processed.
type Command interface {
	Msg() fx.Message
	Done(fx.Message) error
}

// CommandMsg wraps a Command as a Message.
type CommandMsg struct {
	Command Command
}

// NewMessage implements Message.
func (m *CommandMsg) NewMessage() fx.Message { return &CommandMsg{} }

// ContextRef is a reference to an isolated context.
type ContextRef struct {
	// Type is the service type, e.g. thermo-ta.
	Type string
	// ID is unique ID of the hosting machine.
	ID string
}

// Name retrieves the name from ref.
func (r ContextRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates ContextRef is valid.
func (r ContextRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// ContextMeta provides metadata of an isolated context.
type ContextMeta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// ContextInfo provides information of an isolated context.
type ContextInfo struct {
	Ref  ContextRef
	Meta ContextMeta
}

// Connector opens sessions to isolated contexts.
type Connector interface {
	// Discover enumerates registered contexts.
	Discover(context.Context) ([]ContextInfo, error)
	// Connect opens a session to the specified context.
	Connect(context.Context, ContextRef) (Session, error)
}

// Session is an open session with an isolated context.
type Session interface {
	// DoCommand executes a command with the default expiration.
	DoCommand(fx.Message) CommandFuture
	// DoCommandWithin executes a command which expires after d.
	DoCommandWithin(msg fx.Message, d time.Duration) CommandFuture

	io.Closer
}

// Result represents result of a command.
type Result struct {
	Msg fx.Message
	Err error
}

// CommandFuture is the future of sent command.
type CommandFuture interface {
	ResultChan() <-chan Result
}
