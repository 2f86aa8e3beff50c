package msgs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/thermo.go/pkg/framework"
)

func TestTypedRoundTrip(t *testing.T) {
	cmd := &TransmitCmd{Bits: []byte{1, 0, 1}, BitTimeMs: 500, Fec: true, BlockSize: 16, Framed: true}
	typed, err := TypedFrom(cmd)
	require.NoError(t, err)
	typed.Sequence = 7
	pkt, err := typed.Encode()
	require.NoError(t, err)

	decoded, err := DecodeTyped(pkt)
	require.NoError(t, err)
	require.Equal(t, TransmitCmdTypeID, decoded.TypeID)
	require.Equal(t, uint32(7), decoded.Sequence)
	require.True(t, decoded.IsCommand())
	require.False(t, decoded.IsReply())
	msg, err := decoded.Decode()
	require.NoError(t, err)
	require.Equal(t, cmd, msg)
	require.Equal(t, "TransmitCmd", NameOf(msg))
}

func TestTypedKinds(t *testing.T) {
	testCases := []struct {
		msg     SerializableMessage
		command bool
		reply   bool
		event   bool
	}{
		{&CommandOK{}, true, true, false},
		{&CommandErr{}, true, true, false},
		{&StatusQuery{}, true, false, false},
		{&StatusReply{}, true, true, false},
		{&TransmitReport{}, false, false, true},
	}
	for _, tc := range testCases {
		typed, err := TypedFrom(tc.msg)
		require.NoError(t, err)
		require.Equal(t, tc.command, typed.IsCommand(), NameOf(tc.msg))
		require.Equal(t, tc.reply, typed.IsReply(), NameOf(tc.msg))
		require.Equal(t, tc.event, typed.IsEvent(), NameOf(tc.msg))
		require.Contains(t, MessageTypes, tc.msg.TypeID())
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := (&Typed{TypeID: GroupCustom | 9}).Decode()
	require.Equal(t, &ErrUnknownType{TypeID: GroupCustom | 9}, err)
	_, err = TypedFrom(nil)
	require.Equal(t, ErrNotSerializable, err)
}

func TestCommandErr(t *testing.T) {
	cmdErr := NewCommandErrFromMsg("busy").WithCode(CodeBusy, 4)
	require.Equal(t, "busy", cmdErr.Error())
	require.True(t, NewCommandErr(cmdErr) == cmdErr)
	require.Equal(t, &CommandErr{Message: "x"}, NewCommandErr(errors.New("x")))

	typed, err := TypedFrom(cmdErr)
	require.NoError(t, err)
	msg, err := typed.Decode()
	require.NoError(t, err)
	require.Equal(t, cmdErr, msg)
}

func TestRegisterDuplicate(t *testing.T) {
	require.Panics(t, func() { Register("Again", (*TransmitCmd)(nil)) })
	require.Equal(t, "StatusReply", NameOf(&StatusReply{}))
	require.Equal(t, "*msgs.localMsg", NameOf(&localMsg{}))
}

type localMsg struct{}

func (m *localMsg) NewMessage() fx.Message { return &localMsg{} }
