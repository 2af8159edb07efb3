// ABOUTME: PCM source contract and headerless raw PCM source
// ABOUTME: Sources hand out whole interleaved frames until exhausted
package pcm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
)

// Source produces interleaved PCM frames in its Format
type Source interface {
	// Format describes the bytes ReadAudio produces
	Format() audio.PCMFormat

	// TotalFrames returns the frame count, or 0 when unknown
	TotalFrames() int64

	// ReadAudio fills buf with up to frames whole frames and returns how
	// many were read. Zero frames means the source is exhausted.
	ReadAudio(buf []byte, frames int) (int, error)

	// Close releases the underlying reader
	Close() error
}

// Raw reads headerless PCM of a known format
type Raw struct {
	r      io.Reader
	format audio.PCMFormat
	total  int64
}

// NewRaw wraps r as a PCM source. totalFrames may be 0 when unknown.
func NewRaw(r io.Reader, format audio.PCMFormat, totalFrames int64) (*Raw, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if totalFrames < 0 {
		totalFrames = 0
	}
	return &Raw{r: r, format: format, total: totalFrames}, nil
}

// Format returns the source format
func (s *Raw) Format() audio.PCMFormat { return s.format }

// TotalFrames returns the declared frame count
func (s *Raw) TotalFrames() int64 { return s.total }

// ReadAudio reads whole frames. A partial frame at end of stream is dropped.
func (s *Raw) ReadAudio(buf []byte, frames int) (int, error) {
	bpf := s.format.BytesPerFrame()
	if frames > len(buf)/bpf {
		frames = len(buf) / bpf
	}
	if frames <= 0 {
		return 0, nil
	}

	n, err := io.ReadFull(s.r, buf[:frames*bpf])
	got := n / bpf
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return got, nil
		}
		return got, fmt.Errorf("failed to read pcm: %w", err)
	}
	return got, nil
}

// Close closes the reader if it is an io.Closer
func (s *Raw) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// OpenFile opens a PCM source from disk. Files ending in .wav are parsed as
// WAV; anything else is read as raw PCM in the given format.
func OpenFile(path string, raw audio.PCMFormat) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		src, err := OpenWAV(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		src.closer = f
		return src, nil
	}

	if err := raw.Validate(); err != nil {
		f.Close()
		return nil, err
	}

	var total int64
	if info, err := f.Stat(); err == nil {
		total = info.Size() / int64(raw.BytesPerFrame())
	}

	return NewRaw(f, raw, total)
}
