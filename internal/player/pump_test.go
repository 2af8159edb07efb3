// ABOUTME: Tests for the concurrent session pump and device playback
// ABOUTME: Uses raw PCM streams, failing writers and a fake output
package player

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/pcm"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var rawFormat = audio.PCMFormat{SampleRate: 48000, Channels: 2, BitDepth: 16, Order: binary.LittleEndian}

// rampPCM returns frames of little-endian stereo samples counting upward
func rampPCM(frames int) []byte {
	data := make([]byte, frames*rawFormat.BytesPerFrame())
	for i := 0; i < frames*2; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(i%30000)))
	}
	return data
}

func newSession(t *testing.T, data []byte, total int64, order binary.ByteOrder) *decode.Session {
	t.Helper()
	src, err := pcm.NewRaw(bytes.NewReader(data), rawFormat, total)
	require.NoError(t, err)
	stream, err := decode.NewPCM(src)
	require.NoError(t, err)
	sess, err := decode.NewSession(stream, decode.Options{TargetOrder: order, BufferBytes: 400})
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	return sess
}

type recorder struct {
	mu       sync.Mutex
	started  int
	progress []int
	complete int
	stopped  int
	failed   []error
}

func (r *recorder) observer() transfer.Observer {
	return transfer.ObserverFuncs{
		Start: func(time.Time) { r.mu.Lock(); r.started++; r.mu.Unlock() },
		Progress: func(p int, _ uint) {
			r.mu.Lock()
			r.progress = append(r.progress, p)
			r.mu.Unlock()
		},
		Complete: func(time.Time) { r.mu.Lock(); r.complete++; r.mu.Unlock() },
		Stopped:  func() { r.mu.Lock(); r.stopped++; r.mu.Unlock() },
		Failed:   func(err error) { r.mu.Lock(); r.failed = append(r.failed, err); r.mu.Unlock() },
	}
}

func TestPumpCopiesAllAudio(t *testing.T) {
	data := rampPCM(5000)
	sess := newSession(t, data, 5000, binary.LittleEndian)
	rec := &recorder{}

	var out bytes.Buffer
	res := Pump(context.Background(), sess, &out, Options{
		Observer:         rec.observer(),
		ProgressInterval: 1,
		ChunkFrames:      64,
	})

	require.Equal(t, transfer.Completed, res.Outcome, "err: %v", res.Err)
	assert.Equal(t, int64(5000), res.Frames)
	assert.Equal(t, data, out.Bytes())
	assert.Equal(t, 1, rec.started)
	assert.Equal(t, 1, rec.complete)
	require.NotEmpty(t, rec.progress)
	assert.Equal(t, 100, rec.progress[len(rec.progress)-1])
	for i := 1; i < len(rec.progress); i++ {
		assert.GreaterOrEqual(t, rec.progress[i], rec.progress[i-1])
	}
}

func TestPumpSwapsToBigEndian(t *testing.T) {
	data := rampPCM(300)
	sess := newSession(t, data, 300, binary.BigEndian)

	var out bytes.Buffer
	res := Pump(context.Background(), sess, &out, Options{})
	require.Equal(t, transfer.Completed, res.Outcome)
	require.Len(t, out.Bytes(), len(data))

	got := out.Bytes()
	for i := 0; i < len(data); i += 2 {
		assert.Equal(t, binary.LittleEndian.Uint16(data[i:]), binary.BigEndian.Uint16(got[i:]))
	}
}

func TestPumpUnknownLength(t *testing.T) {
	data := rampPCM(1000)
	sess := newSession(t, data, 0, binary.LittleEndian)
	rec := &recorder{}

	var out bytes.Buffer
	res := Pump(context.Background(), sess, &out, Options{Observer: rec.observer(), ProgressInterval: 1})
	require.Equal(t, transfer.Completed, res.Outcome)
	assert.Equal(t, data, out.Bytes())
	assert.Equal(t, 100, rec.progress[len(rec.progress)-1])
}

// stopWriter requests a stop once it has seen limit bytes
type stopWriter struct {
	flag  *transfer.StopFlag
	limit int
	n     int
}

func (w *stopWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	if w.n >= w.limit {
		w.flag.Request()
	}
	return len(p), nil
}

func TestPumpStopRequest(t *testing.T) {
	sess := newSession(t, rampPCM(5000), 5000, binary.LittleEndian)
	flag := &transfer.StopFlag{}
	rec := &recorder{}

	w := &stopWriter{flag: flag, limit: 1024}
	res := Pump(context.Background(), sess, w, Options{
		Observer:         rec.observer(),
		Canceller:        flag.Requested,
		ProgressInterval: 1,
		ChunkFrames:      32,
	})

	assert.Equal(t, transfer.Stopped, res.Outcome)
	assert.Less(t, res.Frames, int64(5000))
	assert.Equal(t, 1, rec.stopped)
	assert.Zero(t, rec.complete)
}

func TestPumpContextCancelled(t *testing.T) {
	sess := newSession(t, rampPCM(5000), 5000, binary.LittleEndian)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	res := Pump(ctx, sess, &out, Options{})
	assert.Equal(t, transfer.Stopped, res.Outcome)
	assert.Zero(t, res.Frames)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestPumpWriterFailure(t *testing.T) {
	sess := newSession(t, rampPCM(5000), 5000, binary.LittleEndian)
	errDevice := errors.New("device gone")
	rec := &recorder{}

	res := Pump(context.Background(), sess, failingWriter{errDevice}, Options{Observer: rec.observer()})
	require.Equal(t, transfer.Failed, res.Outcome)
	assert.ErrorIs(t, res.Err, errDevice)
	require.Len(t, rec.failed, 1)
	assert.ErrorIs(t, rec.failed[0], errDevice)
}

func TestPumpDecodeFailure(t *testing.T) {
	errDisk := errors.New("disk error")
	src, err := pcm.NewRaw(iotest.ErrReader(errDisk), rawFormat, 100)
	require.NoError(t, err)
	stream, err := decode.NewPCM(src)
	require.NoError(t, err)
	sess, err := decode.NewSession(stream, decode.Options{BufferBytes: 400})
	require.NoError(t, err)
	defer sess.Close()

	var out bytes.Buffer
	res := Pump(context.Background(), sess, &out, Options{})
	require.Equal(t, transfer.Failed, res.Outcome)

	var streamErr *transfer.DecodeStreamError
	assert.ErrorAs(t, res.Err, &streamErr)
	assert.ErrorIs(t, res.Err, errDisk)
}

type fakeOutput struct {
	openErr  error
	closeErr error
	format   audio.PCMFormat
	buf      bytes.Buffer
	closed   int
}

func (o *fakeOutput) Open(format audio.PCMFormat) error {
	o.format = format
	return o.openErr
}

func (o *fakeOutput) Write(p []byte) (int, error) { return o.buf.Write(p) }

func (o *fakeOutput) Close() error {
	o.closed++
	return o.closeErr
}

func TestPlay(t *testing.T) {
	t.Run("plays and closes", func(t *testing.T) {
		data := rampPCM(700)
		sess := newSession(t, data, 700, binary.LittleEndian)
		out := &fakeOutput{}

		res := Play(context.Background(), sess, out, Options{})
		require.Equal(t, transfer.Completed, res.Outcome)
		assert.Equal(t, sess.Format(), out.format)
		assert.Equal(t, data, out.buf.Bytes())
		assert.Equal(t, 1, out.closed)
		assert.NoError(t, res.Warning)
	})

	t.Run("open failure", func(t *testing.T) {
		sess := newSession(t, rampPCM(10), 10, binary.LittleEndian)
		errOpen := errors.New("no device")
		out := &fakeOutput{openErr: errOpen}
		rec := &recorder{}

		res := Play(context.Background(), sess, out, Options{Observer: rec.observer()})
		assert.Equal(t, transfer.Failed, res.Outcome)
		assert.ErrorIs(t, res.Err, errOpen)
		assert.Zero(t, out.closed)
		assert.Len(t, rec.failed, 1)
	})

	t.Run("close failure becomes warning", func(t *testing.T) {
		sess := newSession(t, rampPCM(10), 10, binary.LittleEndian)
		errClose := errors.New("suspend failed")
		out := &fakeOutput{closeErr: errClose}

		res := Play(context.Background(), sess, out, Options{})
		assert.Equal(t, transfer.Completed, res.Outcome)
		var warn *transfer.SinkCloseWarning
		require.ErrorAs(t, res.Warning, &warn)
		assert.ErrorIs(t, warn, errClose)
	})
}
