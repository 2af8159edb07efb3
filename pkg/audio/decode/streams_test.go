// ABOUTME: Tests for the decode stream adapters
// ABOUTME: Fakes the codec readers so no media files are needed
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/pcm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVorbis struct {
	channels int
	samples  []float32
	pos      int
	length   int64
	seekPos  int64
	seekErr  error
}

func (f *fakeVorbis) Channels() int   { return f.channels }
func (f *fakeVorbis) SampleRate() int { return 44100 }
func (f *fakeVorbis) Length() int64   { return f.length }

func (f *fakeVorbis) SetPosition(pos int64) error {
	if f.seekErr != nil {
		return f.seekErr
	}
	f.seekPos = pos
	f.pos = int(pos) * f.channels
	return nil
}

func (f *fakeVorbis) Read(p []float32) (int, error) {
	if f.pos >= len(f.samples) {
		return 0, io.EOF
	}
	n := copy(p, f.samples[f.pos:])
	f.pos += n
	return n, nil
}

func TestVorbisRead(t *testing.T) {
	dec := &fakeVorbis{channels: 2, samples: []float32{0, 1, -1, 0.5, 2, -2}}
	v := newVorbis(dec, false)

	dst := make([]byte, 64)
	n, _, err := v.Read(dst, 16)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	got := make([]int16, 6)
	for i := range got {
		got[i] = int16(binary.LittleEndian.Uint16(dst[i*2:]))
	}
	assert.Equal(t, []int16{0, 32767, -32767, 16383, 32767, -32768}, got)

	n, _, err = v.Read(dst, 16)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestVorbisLengthAndSeek(t *testing.T) {
	unknown := newVorbis(&fakeVorbis{channels: 1}, false)
	assert.Equal(t, int64(-1), unknown.TotalFrames())
	assert.ErrorIs(t, unknown.Seek(1), ErrNotSeekable)

	dec := &fakeVorbis{channels: 1, length: 100}
	v := newVorbis(dec, true)
	assert.Equal(t, int64(100), v.TotalFrames())
	require.NoError(t, v.Seek(40))
	assert.Equal(t, int64(40), dec.seekPos)

	dec.seekErr = errors.New("no granule")
	assert.Error(t, v.Seek(10))
}

type fakeMP3 struct {
	*bytes.Reader
	length int64
}

func (f *fakeMP3) SampleRate() int { return 44100 }
func (f *fakeMP3) Length() int64   { return f.length }

func TestMP3DropsPartialTrailingFrame(t *testing.T) {
	data := []byte{1, 0, 2, 0, 3, 0, 4, 0, 5, 0}
	m := &MP3{dec: &fakeMP3{Reader: bytes.NewReader(data), length: int64(len(data))}}

	assert.Equal(t, 2, m.Channels())
	assert.Equal(t, int64(2), m.TotalFrames())
	assert.True(t, m.Seekable())

	dst := make([]byte, 64)
	n, _, err := m.Read(dst, 16)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, data[:8], dst[:8])

	n, _, err = m.Read(dst, 16)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, m.Seek(1))
	n, _, err = m.Read(dst, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, data[4:8], dst[:4])
}

func TestMP3UnknownLength(t *testing.T) {
	m := &MP3{dec: &fakeMP3{Reader: bytes.NewReader(nil), length: -1}}
	assert.Equal(t, int64(-1), m.TotalFrames())
	assert.False(t, m.Seekable())
	assert.ErrorIs(t, m.Seek(0), ErrNotSeekable)
}

func TestPCMStreamNormalizes(t *testing.T) {
	format := audio.PCMFormat{SampleRate: 8000, Channels: 1, BitDepth: 24, Order: binary.BigEndian}
	src, err := pcm.NewRaw(bytes.NewReader([]byte{0x01, 0x02, 0x03, 0xFF, 0xFF, 0xFF}), format, 2)
	require.NoError(t, err)

	stream, err := NewPCM(src)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stream.TotalFrames())
	assert.False(t, stream.Seekable())

	sess, err := NewSession(stream, Options{TargetOrder: binary.BigEndian, TargetRate: NativeRate, BufferBytes: 64})
	require.NoError(t, err)
	defer sess.Close()

	got, err := io.ReadAll(sess)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0xFF, 0xFF}, got)
}

func TestOpenWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	format := audio.PCMFormat{SampleRate: 22050, Channels: 2, BitDepth: 16, Order: binary.LittleEndian}
	w, err := pcm.NewWAVWriter(f, format)
	require.NoError(t, err)
	_, err = w.Write([]byte{1, 0, 2, 0, 3, 0, 4, 0})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	stream, err := Open(path)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, 22050, stream.SampleRate())
	assert.Equal(t, 2, stream.Channels())
	assert.Equal(t, int64(2), stream.TotalFrames())
}

func TestOpenUnsupportedExtension(t *testing.T) {
	_, err := Open("song.aiff")
	assert.ErrorContains(t, err, "unsupported audio format")
}
