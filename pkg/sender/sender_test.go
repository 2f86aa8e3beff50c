package sender

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/thermo.go/pkg/bits"
	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/env/connector"
	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
	"github.com/robotalks/thermo.go/pkg/enclave"
	"github.com/robotalks/thermo.go/pkg/hamming"
	"github.com/robotalks/thermo.go/pkg/thermal"
	"github.com/robotalks/thermo.go/pkg/workload"
)

const (
	holaBits        = "01101000011011110110110001100001"
	holaEncodedBits = "011001101100001111100111110110111000000101000010"
)

func TestPrepareDefaultsFramed(t *testing.T) {
	conf := NewConfig()
	require.True(t, conf.Framed)
	conf.Message = "hola"
	input, err := conf.Input()
	require.NoError(t, err)
	p, err := conf.Prepare(input)
	require.NoError(t, err)
	require.True(t, p.Framed)
	require.Equal(t, bits.HeaderBits+32, len(p.Bits))
	// 32 payload bits, big-endian
	require.Equal(t, "0000000000100000", p.Bits[:bits.HeaderBits].String())
	require.Equal(t, holaBits, p.Bits[bits.HeaderBits:].String())
}

func TestPrepare(t *testing.T) {
	conf := NewConfig()
	conf.Message, conf.Framed = "hola", false
	input, err := conf.Input()
	require.NoError(t, err)
	require.Equal(t, holaBits, input.String())

	p, err := conf.Prepare(input)
	require.NoError(t, err)
	require.Equal(t, holaBits, p.Bits.String())
	require.False(t, p.FEC)

	conf.FEC = true
	p, err = conf.Prepare(input)
	require.NoError(t, err)
	require.Equal(t, holaEncodedBits, p.Bits.String())
	require.Equal(t, 32, p.DataBits)
	require.Equal(t, 16, p.BlockSize)

	conf.Bits = "0101"
	input, err = conf.Input()
	require.NoError(t, err)
	require.Equal(t, bits.Sequence{0, 1, 0, 1}, input)

	conf.Bits = "012"
	_, err = conf.Input()
	require.IsType(t, &bits.InvalidBitError{}, err)
}

func TestPrepareFramed(t *testing.T) {
	conf := NewConfig()
	conf.FEC, conf.Framed, conf.BlockSize = true, true, 8
	input, err := bits.Expand([]byte("hi"))
	require.NoError(t, err)
	p, err := conf.Prepare(input)
	require.NoError(t, err)
	require.True(t, p.Framed)
	require.Equal(t, bits.HeaderBits+16, p.DataBits)

	codec := hamming.MustNewCodec(8)
	decoded, statuses, err := codec.Decode(p.Bits)
	require.NoError(t, err)
	require.Zero(t, hamming.Summarize(statuses).Uncorrectable)
	payload, err := bits.Unframe(decoded)
	require.NoError(t, err)
	require.Equal(t, input, payload)
}

func TestPrepareErrors(t *testing.T) {
	conf := NewConfig()
	conf.Framed = false
	_, err := conf.Prepare(nil)
	require.Equal(t, bits.ErrInvalidInput, err)

	input, err := bits.Parse(holaBits)
	require.NoError(t, err)

	conf.Buffer = 16
	_, err = conf.Prepare(input)
	require.Equal(t, &hamming.BufferTooSmallError{Need: 32, Capacity: 16}, err)

	conf.FEC, conf.Buffer = true, 32
	_, err = conf.Prepare(input)
	require.Equal(t, &hamming.BufferTooSmallError{Need: 48, Capacity: 32}, err)

	conf.BlockSize = 12
	_, err = conf.Prepare(input)
	require.Equal(t, hamming.ErrInvalidBlockSize, err)
}

func newLocalSession() (*enclave.Transmitter, *enclave.LocalSession) {
	tx := enclave.NewTransmitter(workload.GeneratorFunc(func() {}), enclave.DefaultBufferCapacity)
	return tx, enclave.NewLocalSession(tx)
}

func TestSend(t *testing.T) {
	tx, session := newLocalSession()
	defer session.Close()
	sink := &thermal.MemorySink{}
	sampler := thermal.NewSampler(thermal.SensorFunc(func() (float64, error) {
		return 45.5, nil
	}), sink, time.Millisecond)

	conf := NewConfig()
	conf.BitTime, conf.Framed = 5*time.Millisecond, false
	input, err := bits.Parse("1010")
	require.NoError(t, err)
	p, err := conf.Prepare(input)
	require.NoError(t, err)

	report, err := New(conf, session, sampler).Send(context.Background(), p)
	require.NoError(t, err)
	require.True(t, report.Stopped.Sub(report.Started) >= 20*time.Millisecond)
	require.NotEmpty(t, sink.Samples())
	require.Equal(t, "DONE", tx.Status().State)
	require.Equal(t, uint32(4), tx.Status().BitsDone)
}

func TestSendFailure(t *testing.T) {
	_, session := newLocalSession()
	defer session.Close()
	conf := NewConfig()
	p, err := conf.Prepare(bits.Sequence{1})
	require.NoError(t, err)

	_, err = (&Sender{Config: conf, Session: session}).Send(context.Background(), p)
	var te *boundary.TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, boundary.StageInvoke, te.Stage)
	require.Equal(t, msgs.CodeBadParameters, te.Code)
	require.Equal(t, boundary.OriginTrustedApp, te.Origin)
	require.Equal(t, 4, te.ExitCode())
}

func TestOpen(t *testing.T) {
	conf := connector.NewConfig()
	conf.URL = "local://"
	conn, err := Open(context.Background(), conf)
	require.NoError(t, err)
	require.Equal(t, enclave.LocalRef, conn.Ref)
	require.NoError(t, conn.Close())

	conf.URL = "nowhere://"
	_, err = Open(context.Background(), conf)
	var te *boundary.TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, boundary.StageConnect, te.Stage)
	require.Equal(t, boundary.OriginAPI, te.Origin)
}
