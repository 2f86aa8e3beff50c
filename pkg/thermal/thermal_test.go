package thermal

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "thermal")
	require.NoError(t, err)
	return dir
}

func TestSysfsSensor(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "temp")
	require.NoError(t, ioutil.WriteFile(fn, []byte("45678\n"), 0644))

	celsius, err := NewSysfsSensor(fn).Read()
	require.NoError(t, err)
	require.InDelta(t, 45.678, celsius, 1e-9)

	require.NoError(t, ioutil.WriteFile(fn, []byte("hot\n"), 0644))
	_, err = NewSysfsSensor(fn).Read()
	require.IsType(t, &SensorError{}, err)

	_, err = NewSysfsSensor(filepath.Join(dir, "missing")).Read()
	require.IsType(t, &SensorError{}, err)
	require.Equal(t, filepath.Join(dir, "missing"), err.(*SensorError).Path)

	require.Equal(t, DefaultSensorPath, NewSysfsSensor("").Path)
}

func TestLogWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewLogWriter(&buf)
	require.NoError(t, w.Append(45.6781))
	require.NoError(t, w.Append(-1))
	require.Equal(t, "45.678\n-1.000\n", buf.String())
}

func TestOpenLogAppends(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "log.txt")
	for _, v := range []float64{1, 2} {
		f, err := OpenLog(fn)
		require.NoError(t, err)
		require.NoError(t, NewLogWriter(f).Append(v))
		f.Close()
	}
	content, err := ioutil.ReadFile(fn)
	require.NoError(t, err)
	require.Equal(t, "1.000\n2.000\n", string(content))
}

func TestSamplerCount(t *testing.T) {
	var n float64
	sink := &MemorySink{}
	s := NewSampler(SensorFunc(func() (float64, error) {
		n++
		return n, nil
	}), sink, time.Millisecond)
	s.Count = 5
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []float64{1, 2, 3, 4, 5}, sink.Samples())
	require.Equal(t, 5, s.Taken())
	require.Equal(t, ErrSamplerReused, s.Run(context.Background()))
	require.Equal(t, 5, s.Taken())
	select {
	case <-s.Started():
	default:
		t.Fatal("not started")
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("not done")
	}
}

func TestSamplerCancel(t *testing.T) {
	sink := &MemorySink{}
	s := NewSampler(SensorFunc(func() (float64, error) { return 40, nil }), sink, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	select {
	case <-s.Started():
	case <-time.After(time.Second):
		t.Fatal("sampler not started")
	}
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("sampler not stopped")
	}
	require.True(t, len(sink.Samples()) >= 1)
	require.Equal(t, len(sink.Samples()), s.Taken())
}

func TestSamplerInFlightSampleKept(t *testing.T) {
	sink := &MemorySink{}
	ctx, cancel := context.WithCancel(context.Background())
	reading := make(chan struct{})
	s := NewSampler(SensorFunc(func() (float64, error) {
		close(reading)
		cancel()
		return 42, nil
	}), sink, time.Hour)
	err := s.Run(ctx)
	<-reading
	require.Equal(t, context.Canceled, err)
	require.Equal(t, []float64{42}, sink.Samples())
}

func TestSamplerSensorFailure(t *testing.T) {
	failure := &SensorError{Path: "x", Err: errors.New("gone")}
	s := NewSampler(SensorFunc(func() (float64, error) { return 0, failure }), &MemorySink{}, time.Millisecond)
	require.Equal(t, failure, s.Run(context.Background()))
	select {
	case <-s.Started():
		t.Fatal("should not start")
	default:
	}
	<-s.Done()
}

func TestConfigNewSampler(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	sensor := filepath.Join(dir, "temp")
	require.NoError(t, ioutil.WriteFile(sensor, []byte("30000"), 0644))
	conf := NewConfig()
	conf.SensorPath = sensor
	conf.LogPath = filepath.Join(dir, "log.txt")
	conf.Count = 2
	conf.Interval = time.Millisecond
	s, closer, err := conf.NewSampler()
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background()))
	closer.Close()
	content, err := ioutil.ReadFile(conf.LogPath)
	require.NoError(t, err)
	require.Equal(t, "30.000\n30.000\n", string(content))
}
