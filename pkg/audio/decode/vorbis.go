// ABOUTME: Ogg Vorbis decode stream built on jfreymuth/oggvorbis
// ABOUTME: Converts float samples to 16-bit little-endian frames
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/normalize"
)

// vorbisReader is the subset of oggvorbis.Reader used here, so tests can fake it
type vorbisReader interface {
	Channels() int
	SampleRate() int
	Length() int64
	SetPosition(pos int64) error
	Read(p []float32) (int, error)
}

// Vorbis decodes an Ogg Vorbis stream
type Vorbis struct {
	dec      vorbisReader
	closer   io.Closer
	seekable bool
	buf      []float32
}

// OpenVorbis reads the Vorbis headers from r. Seeking requires r to be an
// io.ReadSeeker.
func OpenVorbis(r io.Reader) (*Vorbis, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vorbis: %w", err)
	}

	_, seekable := r.(io.Seeker)
	v := newVorbis(dec, seekable)
	if c, ok := r.(io.Closer); ok {
		v.closer = c
	}
	return v, nil
}

func newVorbis(dec vorbisReader, seekable bool) *Vorbis {
	return &Vorbis{dec: dec, seekable: seekable}
}

func (v *Vorbis) Channels() int   { return v.dec.Channels() }
func (v *Vorbis) SampleRate() int { return v.dec.SampleRate() }

// TotalFrames returns the length reported by the Ogg stream, or -1
func (v *Vorbis) TotalFrames() int64 {
	if n := v.dec.Length(); n > 0 {
		return n
	}
	return -1
}

func (v *Vorbis) Seekable() bool { return v.seekable }

// Seek moves to the given frame
func (v *Vorbis) Seek(frame int64) error {
	if !v.seekable {
		return ErrNotSeekable
	}
	if err := v.dec.SetPosition(frame); err != nil {
		return fmt.Errorf("failed to seek vorbis stream: %w", err)
	}
	return nil
}

// Read decodes up to maxFrames frames as 16-bit little-endian samples
func (v *Vorbis) Read(dst []byte, maxFrames int) (int, int, error) {
	ch := v.dec.Channels()
	if limit := len(dst) / (2 * ch); maxFrames > limit {
		maxFrames = limit
	}
	if maxFrames <= 0 {
		return 0, 0, nil
	}

	need := maxFrames * ch
	if cap(v.buf) < need {
		v.buf = make([]float32, need)
	}
	v.buf = v.buf[:need]

	n, err := v.dec.Read(v.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, 0, fmt.Errorf("vorbis decode error: %w", err)
	}

	frames := n / ch
	for i, f := range v.buf[:frames*ch] {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(normalize.FromFloat32(f)))
	}
	return frames, 0, nil
}

func (v *Vorbis) Order() binary.ByteOrder { return binary.LittleEndian }

// Close closes the underlying reader when it is closable
func (v *Vorbis) Close() error {
	if v.closer != nil {
		return v.closer.Close()
	}
	return nil
}
