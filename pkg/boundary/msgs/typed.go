package msgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// A TypeID is laid out as
//
//	bit 31     kind, 0 for commands (and replies), 1 for events
//	bits 16-30 group
//	bit 15     set on replies
//	bits 0-14  id within the group
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
	TypeIDMaskReply uint32 = 0x00008000
)

// Message kinds.
const (
	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

var (
	// ErrNotSerializable indicates the message has no wire form.
	ErrNotSerializable = errors.New("not serializable message")
	// ErrUnsupportedCommand is replied to commands nobody handles.
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// ErrUnknownType is returned when decoding an unregistered TypeID.
type ErrUnknownType struct {
	TypeID uint32
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

// SerializableMessage is a message with a registered wire form.
type SerializableMessage interface {
	fx.Message
	TypeID() uint32
	Serializable() proto.Message
}

// MessageTypes maps registered TypeIDs to prototype messages.
var MessageTypes = make(map[uint32]SerializableMessage)

var typeNames = make(map[uint32]string)

// Register adds a message type under name. Registering a TypeID twice
// panics.
func Register(name string, prototype SerializableMessage) {
	id := prototype.TypeID()
	if _, exist := MessageTypes[id]; exist {
		panic(fmt.Sprintf("type %x already registered as %s", id, typeNames[id]))
	}
	MessageTypes[id], typeNames[id] = prototype, name
}

func init() {
	Register("CommandOK", (*CommandOK)(nil))
	Register("CommandErr", (*CommandErr)(nil))
	Register("TransmitCmd", (*TransmitCmd)(nil))
	Register("StatusQuery", (*StatusQuery)(nil))
	Register("StatusReply", (*StatusReply)(nil))
	Register("TransmitReport", (*TransmitReport)(nil))
}

// NameOf returns the registered name of msg, or its Go type.
func NameOf(msg fx.Message) string {
	if s, ok := msg.(SerializableMessage); ok {
		if name, ok := typeNames[s.TypeID()]; ok {
			return name
		}
	}
	return fmt.Sprintf("%T", msg)
}

// Typed is the envelope of every message crossing the boundary.
type Typed struct {
	TypeID   uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

// ProtoMessage implements proto.Message.
func (p *Typed) ProtoMessage() {}

// Reset implements proto.Message.
func (p *Typed) Reset() { *p = Typed{} }

// String implements proto.Message.
func (p *Typed) String() string { return proto.CompactTextString(p) }

// TypedFrom wraps msg in an envelope with zero sequence.
func TypedFrom(msg fx.Message) (*Typed, error) {
	s, ok := msg.(SerializableMessage)
	if !ok {
		return nil, ErrNotSerializable
	}
	data, err := proto.Marshal(s.Serializable())
	if err != nil {
		return nil, err
	}
	return &Typed{TypeID: s.TypeID(), Message: data}, nil
}

// DecodeTyped parses an envelope from a packet.
func DecodeTyped(pkt []byte) (*Typed, error) {
	typed := &Typed{}
	if err := proto.Unmarshal(pkt, typed); err != nil {
		return nil, err
	}
	return typed, nil
}

// Encode marshals the envelope into a packet.
func (p *Typed) Encode() ([]byte, error) {
	return proto.Marshal(p)
}

// Decode unmarshals the carried message.
func (p *Typed) Decode() (fx.Message, error) {
	prototype, ok := MessageTypes[p.TypeID]
	if !ok {
		return nil, &ErrUnknownType{TypeID: p.TypeID}
	}
	msg := prototype.NewMessage()
	if err := proto.Unmarshal(p.Message, msg.(SerializableMessage).Serializable()); err != nil {
		return nil, err
	}
	return msg, nil
}

// Kind is TypeIDKindCommand or TypeIDKindEvent.
func (p *Typed) Kind() uint32 {
	return p.TypeID & TypeIDMaskKind
}

// IsCommand is true for commands and their replies.
func (p *Typed) IsCommand() bool {
	return p.Kind() == TypeIDKindCommand
}

// IsReply is true when the message answers the command with the same
// Sequence.
func (p *Typed) IsReply() bool {
	return p.IsCommand() && p.TypeID&TypeIDMaskReply != 0
}

// IsEvent is true for unsolicited messages.
func (p *Typed) IsEvent() bool {
	return p.Kind() == TypeIDKindEvent
}

// TypedMsgHandler receives decoded messages together with the envelope.
type TypedMsgHandler interface {
	HandleTypedMsg(context.Context, fx.Message, *Typed) error
}

// HandleTypedMsgFunc is func form of TypedMsgHandler.
type HandleTypedMsgFunc func(context.Context, fx.Message, *Typed) error

// HandleTypedMsg implements TypedMsgHandler.
func (f HandleTypedMsgFunc) HandleTypedMsg(ctx context.Context, msg fx.Message, typed *Typed) error {
	return f(ctx, msg, typed)
}
