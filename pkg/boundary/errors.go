package boundary

import (
	"context"
	"errors"
	"fmt"

	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
)

// Origin tells which side of the boundary reported an error.
type Origin uint32

// Origins
const (
	OriginUnknown    Origin = 0
	OriginAPI        Origin = 1
	OriginComms      Origin = 2
	OriginTEE        Origin = 3
	OriginTrustedApp Origin = 4
)

// String implements fmt.Stringer.
func (o Origin) String() string {
	switch o {
	case OriginAPI:
		return "API"
	case OriginComms:
		return "COMMS"
	case OriginTEE:
		return "TEE"
	case OriginTrustedApp:
		return "TRUSTED_APP"
	}
	return fmt.Sprintf("Origin(%d)", uint32(o))
}

// Stage is the step of a boundary call which failed.
type Stage string

// Stages
const (
	StageConnect Stage = "connect"
	StageSession Stage = "open session"
	StageInvoke  Stage = "invoke"
)

// TransportError is any failure crossing the boundary.
type TransportError struct {
	Stage  Stage
	Code   uint32
	Origin Origin
	Err    error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed with code 0x%x origin %v: %v", e.Stage, e.Code, e.Origin, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ExitCode is the process exit status for the error.
func (e *TransportError) ExitCode() int {
	if e.Origin == OriginUnknown {
		return 1
	}
	return int(e.Origin)
}

// AsTransportError converts err from stage into a TransportError.
// A CommandErr keeps its code and origin, context errors are
// communication failures.
func AsTransportError(stage Stage, err error) *TransportError {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	var cmdErr *msgs.CommandErr
	if errors.As(err, &cmdErr) {
		return &TransportError{Stage: stage, Code: cmdErr.Code, Origin: Origin(cmdErr.Origin), Err: err}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &TransportError{Stage: stage, Code: msgs.CodeTimeout, Origin: OriginComms, Err: err}
	case errors.Is(err, context.Canceled):
		return &TransportError{Stage: stage, Code: msgs.CodeCancelled, Origin: OriginAPI, Err: err}
	}
	origin := OriginComms
	if stage == StageConnect {
		origin = OriginAPI
	}
	return &TransportError{Stage: stage, Code: msgs.CodeCommunication, Origin: origin, Err: err}
}
