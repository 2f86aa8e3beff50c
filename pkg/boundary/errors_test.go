package boundary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
)

func TestAsTransportError(t *testing.T) {
	require.Nil(t, AsTransportError(StageInvoke, nil))

	cmdErr := msgs.NewCommandErrFromMsg("short buffer").WithCode(msgs.CodeShortBuffer, uint32(OriginTrustedApp))
	te := AsTransportError(StageInvoke, cmdErr)
	require.Equal(t, &TransportError{Stage: StageInvoke, Code: msgs.CodeShortBuffer, Origin: OriginTrustedApp, Err: cmdErr}, te)
	require.Equal(t, 4, te.ExitCode())
	require.True(t, errors.Is(te, cmdErr))
	require.Equal(t, "invoke failed with code 0x2 origin TRUSTED_APP: short buffer", te.Error())

	require.True(t, AsTransportError(StageConnect, te) == te)

	te = AsTransportError(StageInvoke, context.DeadlineExceeded)
	require.Equal(t, msgs.CodeTimeout, te.Code)
	require.Equal(t, OriginComms, te.Origin)

	te = AsTransportError(StageConnect, errors.New("refused"))
	require.Equal(t, OriginAPI, te.Origin)
	require.Equal(t, 1, te.ExitCode())

	te = AsTransportError(StageSession, errors.New("broken"))
	require.Equal(t, OriginComms, te.Origin)
	require.Equal(t, 2, te.ExitCode())

	require.Equal(t, 1, (&TransportError{}).ExitCode())
}

func TestOriginString(t *testing.T) {
	require.Equal(t, "TEE", OriginTEE.String())
	require.Equal(t, "Origin(9)", Origin(9).String())
}

func TestContextRef(t *testing.T) {
	ref := ContextRef{Type: "thermo-ta", ID: "abc"}
	require.True(t, ref.IsValid())
	require.Equal(t, "thermo-ta/abc", ref.Name())
	require.False(t, ContextRef{Type: "thermo-ta"}.IsValid())
}
