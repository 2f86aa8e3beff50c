package msgs

import (
	"errors"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// Error codes carried by CommandErr.
const (
	CodeGeneric       uint32 = 0
	CodeBadParameters uint32 = 1
	CodeShortBuffer   uint32 = 2
	CodeBusy          uint32 = 3
	CodeInvalidSymbol uint32 = 4
	CodeCancelled     uint32 = 5
	CodeUnsupported   uint32 = 6
	CodeTimeout       uint32 = 7
	CodeCommunication uint32 = 8
)

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct {
}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK {
	return &CommandOK{}
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() fx.Message { return &CommandOK{} }

// TypeID implements SerializableMessage.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// Serializable implements SerializableMessage.
func (m *CommandOK) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandOK) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandOK) Reset() { *m = CommandOK{} }

// String implements proto.Message.
func (m *CommandOK) String() string { return proto.CompactTextString(m) }

// CommandErr is the generic message representing command error.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
	Code    uint32 `protobuf:"varint,2,opt,name=code,proto3" json:"code,omitempty"`
	Origin  uint32 `protobuf:"varint,3,opt,name=origin,proto3" json:"origin,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	var cmdErr *CommandErr
	if errors.As(err, &cmdErr) {
		return cmdErr
	}
	return NewCommandErrFromMsg(err.Error())
}

// NewCommandErrFromMsg creates a CommandErr.
func NewCommandErrFromMsg(message string) *CommandErr {
	return &CommandErr{Message: message}
}

// WithCode sets code and origin.
func (m *CommandErr) WithCode(code, origin uint32) *CommandErr {
	m.Code, m.Origin = code, origin
	return m
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() fx.Message { return &CommandErr{} }

// TypeID implements SerializableMessage.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Serializable implements SerializableMessage.
func (m *CommandErr) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// TransmitCmd asks the transmitter to modulate Bits, one value (0 or 1)
// per byte, each lasting BitTimeMs.
type TransmitCmd struct {
	Bits      []byte `protobuf:"bytes,1,opt,name=bits,proto3" json:"bits,omitempty"`
	BitTimeMs uint32 `protobuf:"varint,2,opt,name=bit_time_ms,json=bitTimeMs,proto3" json:"bit_time_ms,omitempty"`
	// Fec tells Bits are SECDED encoded, BlockSize is meaningful then.
	Fec       bool   `protobuf:"varint,3,opt,name=fec,proto3" json:"fec,omitempty"`
	BlockSize uint32 `protobuf:"varint,4,opt,name=block_size,json=blockSize,proto3" json:"block_size,omitempty"`
	// Framed tells Bits start with a length header.
	Framed bool `protobuf:"varint,5,opt,name=framed,proto3" json:"framed,omitempty"`
}

// NewMessage implements Message.
func (m *TransmitCmd) NewMessage() fx.Message { return &TransmitCmd{} }

// TypeID implements SerializableMessage.
func (m *TransmitCmd) TypeID() uint32 { return TransmitCmdTypeID }

// Serializable implements SerializableMessage.
func (m *TransmitCmd) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *TransmitCmd) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TransmitCmd) Reset() { *m = TransmitCmd{} }

// String implements proto.Message.
func (m *TransmitCmd) String() string { return proto.CompactTextString(m) }

// StatusQuery queries the transmitter status.
type StatusQuery struct {
}

// NewMessage implements Message.
func (m *StatusQuery) NewMessage() fx.Message { return &StatusQuery{} }

// TypeID implements SerializableMessage.
func (m *StatusQuery) TypeID() uint32 { return StatusQueryTypeID }

// Serializable implements SerializableMessage.
func (m *StatusQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *StatusQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StatusQuery) Reset() { *m = StatusQuery{} }

// String implements proto.Message.
func (m *StatusQuery) String() string { return proto.CompactTextString(m) }

// StatusReply is the response for StatusQuery.
type StatusReply struct {
	State     string `protobuf:"bytes,1,opt,name=state,proto3" json:"state,omitempty"`
	BitsDone  uint32 `protobuf:"varint,2,opt,name=bits_done,json=bitsDone,proto3" json:"bits_done,omitempty"`
	BitsTotal uint32 `protobuf:"varint,3,opt,name=bits_total,json=bitsTotal,proto3" json:"bits_total,omitempty"`
	// UnitCostUs is the measured worst cost of one workload unit,
	// which bounds the overshoot of every BUSY phase.
	UnitCostUs uint32 `protobuf:"varint,4,opt,name=unit_cost_us,json=unitCostUs,proto3" json:"unit_cost_us,omitempty"`
	Capacity   uint32 `protobuf:"varint,5,opt,name=capacity,proto3" json:"capacity,omitempty"`
}

// NewMessage implements Message.
func (m *StatusReply) NewMessage() fx.Message { return &StatusReply{} }

// TypeID implements SerializableMessage.
func (m *StatusReply) TypeID() uint32 { return StatusReplyTypeID }

// Serializable implements SerializableMessage.
func (m *StatusReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *StatusReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StatusReply) Reset() { *m = StatusReply{} }

// String implements proto.Message.
func (m *StatusReply) String() string { return proto.CompactTextString(m) }

// TransmitReport is an event emitted when a transmission ends.
type TransmitReport struct {
	Bits      uint32 `protobuf:"varint,1,opt,name=bits,proto3" json:"bits,omitempty"`
	ElapsedMs uint32 `protobuf:"varint,2,opt,name=elapsed_ms,json=elapsedMs,proto3" json:"elapsed_ms,omitempty"`
	Error     string `protobuf:"bytes,3,opt,name=error,proto3" json:"error,omitempty"`
	Code      uint32 `protobuf:"varint,4,opt,name=code,proto3" json:"code,omitempty"`
}

// NewMessage implements Message.
func (m *TransmitReport) NewMessage() fx.Message { return &TransmitReport{} }

// TypeID implements SerializableMessage.
func (m *TransmitReport) TypeID() uint32 { return TransmitReportTypeID }

// Serializable implements SerializableMessage.
func (m *TransmitReport) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *TransmitReport) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TransmitReport) Reset() { *m = TransmitReport{} }

// String implements proto.Message.
func (m *TransmitReport) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupThermo  uint32 = 0x00030000
	GroupCustom  uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	CommandOKTypeID      uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID     uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	TransmitCmdTypeID    uint32 = GroupThermo | 0x0001
	StatusQueryTypeID    uint32 = GroupThermo | 0x0002
	StatusReplyTypeID    uint32 = StatusQueryTypeID | TypeIDMaskReply
	TransmitReportTypeID uint32 = TypeIDKindEvent | GroupThermo | 0x0001
)
