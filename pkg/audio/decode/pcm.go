// ABOUTME: Decode stream over an uncompressed PCM source
// ABOUTME: Normalizes any supported bit depth to 16-bit little-endian frames
package decode

import (
	"encoding/binary"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/normalize"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/pcm"
)

// PCM adapts a pcm.Source (WAV or raw) to the Stream contract
type PCM struct {
	src     pcm.Source
	format  audio.PCMFormat
	raw     []byte
	samples []int16
}

// NewPCM wraps src; the stream takes ownership and closes it
func NewPCM(src pcm.Source) (*PCM, error) {
	format := src.Format()
	if err := normalize.Check(format.BitDepth); err != nil {
		return nil, err
	}
	return &PCM{src: src, format: format}, nil
}

func (p *PCM) Channels() int   { return p.format.Channels }
func (p *PCM) SampleRate() int { return p.format.SampleRate }

// TotalFrames returns the source length, or -1 when the source does not know it
func (p *PCM) TotalFrames() int64 {
	if n := p.src.TotalFrames(); n > 0 {
		return n
	}
	return -1
}

func (p *PCM) Seekable() bool         { return false }
func (p *PCM) Seek(frame int64) error { return ErrNotSeekable }

// Read pulls up to maxFrames frames from the source and normalizes them
func (p *PCM) Read(dst []byte, maxFrames int) (int, int, error) {
	ch := p.format.Channels
	if limit := len(dst) / (2 * ch); maxFrames > limit {
		maxFrames = limit
	}
	if maxFrames <= 0 {
		return 0, 0, nil
	}

	need := maxFrames * p.format.BytesPerFrame()
	if cap(p.raw) < need {
		p.raw = make([]byte, need)
	}
	if cap(p.samples) < maxFrames*ch {
		p.samples = make([]int16, maxFrames*ch)
	}

	frames, err := p.src.ReadAudio(p.raw[:need], maxFrames)
	if err != nil {
		return 0, 0, err
	}

	n, err := normalize.ToInt16(p.samples[:frames*ch], p.raw[:frames*p.format.BytesPerFrame()],
		p.format.BitDepth, p.format.ByteOrder())
	if err != nil {
		return 0, 0, err
	}
	normalize.Int16ToBytes(dst, p.samples[:n], binary.LittleEndian)
	return frames, 0, nil
}

func (p *PCM) Order() binary.ByteOrder { return binary.LittleEndian }

func (p *PCM) Close() error { return p.src.Close() }
