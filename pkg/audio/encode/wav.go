// ABOUTME: Uncompressed WAV codec library built on go-audio/wav
// ABOUTME: Lets the encode pipeline write 16-bit PCM WAV files
package encode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
)

// WAV writes 16-bit PCM WAV files. It has no rate control, so every
// Control call reports ErrUnsupportedSetting, and comments are discarded.
type WAV struct{}

// NewWAV returns the WAV library
func NewWAV() *WAV { return &WAV{} }

func (*WAV) Name() string { return "wav" }

func (*WAV) CreateComments() (Comments, error) {
	return &wavComments{}, nil
}

// CreateEncoder requires w to be seekable so the RIFF sizes can be patched
func (*WAV) CreateEncoder(w io.Writer, c Comments, sampleRate, channels, family int) (Handle, error) {
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		return nil, fmt.Errorf("wav output must be seekable")
	}

	return &wavHandle{
		enc: wav.NewEncoder(ws, sampleRate, audio.CanonicalBitDepth, channels, 1),
		format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
	}, nil
}

type wavComments struct {
	entries []string
}

func (c *wavComments) Add(tag, value string) {
	c.entries = append(c.entries, tag+"="+value)
}

func (c *wavComments) Destroy() {
	c.entries = nil
}

type wavHandle struct {
	enc    *wav.Encoder
	format *goaudio.Format
	ints   []int
	closed bool
}

func (h *wavHandle) Control(Setting, int) error { return ErrUnsupportedSetting }

func (h *wavHandle) Write(pcm []int16, frames int) error {
	n := frames * h.format.NumChannels
	if cap(h.ints) < n {
		h.ints = make([]int, n)
	}
	h.ints = h.ints[:n]
	for i, s := range pcm[:n] {
		h.ints[i] = int(s)
	}

	buf := &goaudio.IntBuffer{Data: h.ints, Format: h.format, SourceBitDepth: audio.CanonicalBitDepth}
	if err := h.enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	return nil
}

// Drain finalizes the RIFF header
func (h *wavHandle) Drain() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	return nil
}

func (h *wavHandle) Destroy() {
	h.ints = nil
}
