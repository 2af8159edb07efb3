// ABOUTME: Ogg Opus decode stream built on hraban/opus
// ABOUTME: Reads Ogg pages, honors pre-skip and end trimming, seeks by rescanning
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/resonate-codec/internal/ogg"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// maxOpusFrame is the largest Opus packet duration (120 ms) at 48 kHz
const maxOpusFrame = 5760

// Opus decodes an Ogg Opus stream at 48 kHz
type Opus struct {
	r      io.Reader
	rs     io.ReadSeeker
	closer io.Closer

	pages *ogg.Reader
	dec   *opus.Decoder
	head  ogg.OpusHead
	tags  ogg.OpusTags
	total int64

	pcm     []int16
	pending []int16
	pos     int

	// frames still to discard (pre-skip plus seek offset)
	skip int64
	// frames delivered since the start of the stream, after pre-skip
	delivered int64
}

// OpenOpus reads the Opus headers from r. When r is an io.ReadSeeker the
// whole stream is scanned once to find its length, and seeking is enabled.
func OpenOpus(r io.Reader) (*Opus, error) {
	o := &Opus{r: r, total: -1}
	if rs, ok := r.(io.ReadSeeker); ok {
		o.rs = rs
	}
	if c, ok := r.(io.Closer); ok {
		o.closer = c
	}

	if err := o.start(); err != nil {
		return nil, err
	}
	o.pcm = make([]int16, maxOpusFrame*o.head.Channels)

	if o.rs != nil {
		total, err := o.scanLength()
		if err != nil {
			return nil, err
		}
		o.total = total
		if err := o.rewind(); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// start reads the identification and comment headers and creates a fresh
// decoder positioned at the first audio packet
func (o *Opus) start() error {
	o.pages = ogg.NewReader(o.r)

	p, err := o.pages.NextPacket()
	if err != nil {
		return fmt.Errorf("failed to read opus header: %w", err)
	}
	head, err := ogg.ParseOpusHead(p.Data)
	if err != nil {
		return err
	}
	if head.Family != 0 || head.Channels > 2 {
		return transfer.Configf("opus channel mapping family", head.Family,
			"only mono and stereo streams (family 0) can be decoded")
	}

	p, err = o.pages.NextPacket()
	if err != nil {
		return fmt.Errorf("failed to read opus tags: %w", err)
	}
	tags, err := ogg.ParseOpusTags(p.Data)
	if err != nil {
		return err
	}

	dec, err := opus.NewDecoder(ogg.OpusSampleRate, head.Channels)
	if err != nil {
		return fmt.Errorf("failed to create opus decoder: %w", err)
	}

	o.head = head
	o.tags = tags
	o.dec = dec
	o.pending = o.pending[:0]
	o.pos = 0
	o.skip = int64(head.PreSkip)
	o.delivered = 0
	return nil
}

// scanLength walks every page to find the final granule position
func (o *Opus) scanLength() (int64, error) {
	last := int64(-1)
	for {
		p, err := o.pages.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to scan opus stream: %w", err)
		}
		if p.Granule >= 0 {
			last = p.Granule
		}
	}
	if last < 0 {
		return -1, nil
	}
	total := last - int64(o.head.PreSkip)
	if total < 0 {
		total = 0
	}
	return total, nil
}

func (o *Opus) rewind() error {
	if _, err := o.rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind opus stream: %w", err)
	}
	return o.start()
}

// Tags returns the comments from the OpusTags header
func (o *Opus) Tags() []string { return o.tags.Comments }

func (o *Opus) Channels() int      { return o.head.Channels }
func (o *Opus) SampleRate() int    { return ogg.OpusSampleRate }
func (o *Opus) TotalFrames() int64 { return o.total }
func (o *Opus) Seekable() bool     { return o.rs != nil }

// Seek restarts decoding from the first page and discards audio up to frame
func (o *Opus) Seek(frame int64) error {
	if o.rs == nil {
		return ErrNotSeekable
	}
	if err := o.rewind(); err != nil {
		return err
	}
	o.skip += frame
	o.delivered = frame
	return nil
}

// Read decodes up to maxFrames frames as 16-bit little-endian samples
func (o *Opus) Read(dst []byte, maxFrames int) (int, int, error) {
	ch := o.head.Channels
	if limit := len(dst) / (2 * ch); maxFrames > limit {
		maxFrames = limit
	}
	if o.total >= 0 {
		if left := o.total - o.delivered; int64(maxFrames) > left {
			maxFrames = int(left)
		}
	}

	frames := 0
	for frames < maxFrames {
		if o.pos >= len(o.pending) {
			more, err := o.nextPacket()
			if err != nil {
				return frames, 0, err
			}
			if !more {
				break
			}
			continue
		}

		avail := (len(o.pending) - o.pos) / ch
		if want := maxFrames - frames; avail > want {
			avail = want
		}
		out := dst[frames*2*ch:]
		for i, s := range o.pending[o.pos : o.pos+avail*ch] {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
		}
		o.pos += avail * ch
		frames += avail
	}

	o.delivered += int64(frames)
	return frames, 0, nil
}

func (o *Opus) nextPacket() (bool, error) {
	p, err := o.pages.NextPacket()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read opus packet: %w", err)
	}

	n, err := o.dec.Decode(p.Data, o.pcm)
	if err != nil {
		return false, fmt.Errorf("opus decode failed: %w", err)
	}

	o.pending = o.pcm[:n*o.head.Channels]
	o.pos = 0
	if o.skip > 0 {
		drop := o.skip
		if drop > int64(n) {
			drop = int64(n)
		}
		o.pos = int(drop) * o.head.Channels
		o.skip -= drop
	}
	return true, nil
}

func (o *Opus) Order() binary.ByteOrder { return binary.LittleEndian }

// Close closes the underlying reader when it is closable
func (o *Opus) Close() error {
	if o.closer != nil {
		return o.closer.Close()
	}
	return nil
}
