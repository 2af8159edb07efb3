// ABOUTME: MP3 decode stream built on hajimehoshi/go-mp3
// ABOUTME: The decoder already emits 16-bit little-endian stereo
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// mp3BytesPerFrame is fixed: go-mp3 always outputs 16-bit stereo
const mp3BytesPerFrame = 4

// mp3Reader is the subset of mp3.Decoder used here, so tests can fake it
type mp3Reader interface {
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	SampleRate() int
	Length() int64
}

// MP3 decodes an MP3 stream
type MP3 struct {
	dec    mp3Reader
	closer io.Closer
}

// OpenMP3 reads the first MP3 frame header from r. Length and seeking are
// available when r is an io.ReadSeeker.
func OpenMP3(r io.Reader) (*MP3, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	m := &MP3{dec: dec}
	if c, ok := r.(io.Closer); ok {
		m.closer = c
	}
	return m, nil
}

func (m *MP3) Channels() int   { return 2 }
func (m *MP3) SampleRate() int { return m.dec.SampleRate() }

// TotalFrames derives the frame count from the decoded byte length
func (m *MP3) TotalFrames() int64 {
	if n := m.dec.Length(); n >= 0 {
		return n / mp3BytesPerFrame
	}
	return -1
}

func (m *MP3) Seekable() bool { return m.dec.Length() >= 0 }

// Seek moves to the given frame by decoded byte offset
func (m *MP3) Seek(frame int64) error {
	if !m.Seekable() {
		return ErrNotSeekable
	}
	if _, err := m.dec.Seek(frame*mp3BytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek mp3 stream: %w", err)
	}
	return nil
}

// Read decodes up to maxFrames whole frames into dst. A trailing partial
// frame at end of stream is dropped.
func (m *MP3) Read(dst []byte, maxFrames int) (int, int, error) {
	if limit := len(dst) / mp3BytesPerFrame; maxFrames > limit {
		maxFrames = limit
	}
	if maxFrames <= 0 {
		return 0, 0, nil
	}

	n, err := io.ReadFull(m.dec, dst[:maxFrames*mp3BytesPerFrame])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, 0, fmt.Errorf("mp3 decode error: %w", err)
	}
	return n / mp3BytesPerFrame, 0, nil
}

func (m *MP3) Order() binary.ByteOrder { return binary.LittleEndian }

// Close closes the underlying reader when it is closable
func (m *MP3) Close() error {
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}
