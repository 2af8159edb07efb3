// ABOUTME: Ogg Opus codec library built on libopus and the Ogg page writer
// ABOUTME: Buffers 20ms frames, resamples non-Opus rates and writes granule positioned pages
package encode

import (
	"fmt"
	"io"
	"log"
	"math/rand/v2"

	"github.com/Resonate-Protocol/resonate-codec/internal/ogg"
	"github.com/Resonate-Protocol/resonate-codec/internal/opusenc"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

const (
	// opusPreSkip is the encoder lookahead in 48 kHz samples
	opusPreSkip = 312

	// maxOpusPacket bounds one encoded packet
	maxOpusPacket = 4000

	opusVendor = "resonate-codec (libopus)"
)

// OggOpus encodes to Ogg Opus files
type OggOpus struct{}

// NewOggOpus returns the Ogg Opus library
func NewOggOpus() *OggOpus { return &OggOpus{} }

func (*OggOpus) Name() string { return "opus" }

// CreateComments returns an empty OpusTags comment set
func (*OggOpus) CreateComments() (Comments, error) {
	return &opusComments{}, nil
}

// opusRate returns the rate the encoder runs at for an input rate
func opusRate(rate int) int {
	switch rate {
	case 8000, 12000, 16000, 24000, 48000:
		return rate
	default:
		return ogg.OpusSampleRate
	}
}

// CreateEncoder writes the OpusHead and OpusTags pages and returns a handle
// that encodes into w
func (*OggOpus) CreateEncoder(w io.Writer, c Comments, sampleRate, channels, family int) (Handle, error) {
	if channels < 1 || channels > 2 {
		return nil, transfer.Configf("channel count", channels, "opus encoding supports mono and stereo only")
	}
	comments, ok := c.(*opusComments)
	if !ok {
		return nil, fmt.Errorf("comments were not created by the opus library")
	}

	rate := opusRate(sampleRate)
	enc, err := opusenc.New(rate, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	h := &opusHandle{
		enc:       enc,
		pages:     ogg.NewWriter(w, rand.Uint32()),
		channels:  channels,
		frameSize: rate / 50, // 20ms frame
		scale:     int64(ogg.OpusSampleRate / rate),
		packet:    make([]byte, maxOpusPacket),
	}
	if rate != sampleRate {
		log.Printf("Resampling %d Hz to %d Hz for opus", sampleRate, rate)
		h.resampler = resample.New(sampleRate, rate, channels)
	}

	head := ogg.OpusHead{
		Channels:  channels,
		PreSkip:   opusPreSkip,
		InputRate: sampleRate,
		Family:    family,
	}
	if err := h.pages.WritePacket(head.Marshal(), 0, false); err != nil {
		return nil, err
	}
	tags := ogg.OpusTags{Vendor: opusVendor, Comments: comments.entries}
	if err := h.pages.WritePacket(tags.Marshal(), 0, false); err != nil {
		return nil, err
	}
	return h, nil
}

type opusComments struct {
	entries   []string
	destroyed bool
}

func (c *opusComments) Add(tag, value string) {
	c.entries = append(c.entries, tag+"="+value)
}

func (c *opusComments) Destroy() {
	c.entries = nil
	c.destroyed = true
}

type opusHandle struct {
	enc       *opusenc.Encoder
	pages     *ogg.Writer
	resampler *resample.Resampler
	channels  int
	frameSize int
	// scale converts encoder-rate samples to 48 kHz granule units
	scale int64

	pending   []int16
	resampled []int16
	packet    []byte

	// the newest packet is held back so Drain can mark it end-of-stream
	held      []byte
	encoded   int64
	samples   int64
	drained   bool
	destroyed bool
}

func (h *opusHandle) Control(s Setting, value int) error {
	var err error
	switch s {
	case SettingVBR:
		err = h.enc.SetVBR(value != 0)
	case SettingVBRConstraint:
		err = h.enc.SetVBRConstraint(value != 0)
	case SettingComplexity:
		err = h.enc.SetComplexity(value)
	case SettingBitrate:
		err = h.enc.SetBitrate(value)
	default:
		return ErrUnsupportedSetting
	}
	if err != nil {
		return fmt.Errorf("opus %s control: %w", s, err)
	}
	return nil
}

// Write buffers pcm and encodes every complete 20ms frame
func (h *opusHandle) Write(pcm []int16, frames int) error {
	pcm = pcm[:frames*h.channels]
	if h.resampler != nil {
		h.resampled = h.resampler.Resample(h.resampled[:0], pcm)
		pcm = h.resampled
	}
	h.samples += int64(len(pcm) / h.channels)
	h.pending = append(h.pending, pcm...)
	return h.encodeFull()
}

func (h *opusHandle) encodeFull() error {
	size := h.frameSize * h.channels
	consumed := 0
	for len(h.pending)-consumed >= size {
		if err := h.encodeFrame(h.pending[consumed : consumed+size]); err != nil {
			return err
		}
		consumed += size
	}
	h.pending = append(h.pending[:0], h.pending[consumed:]...)
	return nil
}

func (h *opusHandle) encodeFrame(frame []int16) error {
	n, err := h.enc.Encode(frame, h.packet)
	if err != nil {
		return fmt.Errorf("opus encode error: %w", err)
	}

	if h.held != nil {
		granule := h.encoded * h.scale
		if err := h.pages.WritePacket(h.held, granule, false); err != nil {
			return err
		}
	}
	h.held = append(h.held[:0], h.packet[:n]...)
	h.encoded += int64(h.frameSize)
	return nil
}

// Drain pads and encodes the buffered tail plus enough silence to flush
// the encoder lookahead, then writes the final packet with the
// end-of-stream flag and the trimmed granule position
func (h *opusHandle) Drain() error {
	if h.drained {
		return nil
	}
	h.drained = true

	if h.resampler != nil {
		tail := h.resampler.Flush(nil)
		h.samples += int64(len(tail) / h.channels)
		h.pending = append(h.pending, tail...)
		if err := h.encodeFull(); err != nil {
			return err
		}
	}

	end := opusPreSkip + h.samples*h.scale
	frame := make([]int16, h.frameSize*h.channels)
	for len(h.pending) > 0 || h.encoded*h.scale < end || h.held == nil {
		n := copy(frame, h.pending)
		clear(frame[n:])
		h.pending = h.pending[n:]
		if err := h.encodeFrame(frame); err != nil {
			return err
		}
	}

	return h.pages.WritePacket(h.held, end, true)
}

func (h *opusHandle) Destroy() {
	h.destroyed = true
	h.enc = nil
	h.held = nil
	h.pending = nil
}
