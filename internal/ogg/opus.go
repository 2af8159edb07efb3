// ABOUTME: Ogg Opus identification and comment header packets
// ABOUTME: Builds and parses OpusHead and OpusTags
package ogg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// OpusSampleRate is the rate granule positions are counted in
const OpusSampleRate = 48000

var (
	opusHeadMagic = []byte("OpusHead")
	opusTagsMagic = []byte("OpusTags")
)

// ErrNotOpus is returned when the first packet is not an OpusHead
var ErrNotOpus = errors.New("ogg: stream is not Ogg Opus")

// OpusHead is the identification header of an Ogg Opus stream
type OpusHead struct {
	Channels  int
	PreSkip   int
	InputRate int
	Gain      int16
	Family    int
}

// Marshal encodes the header. Only mapping family 0 layouts (no channel
// mapping table) and family 1 with the standard Vorbis order are written.
func (h OpusHead) Marshal() []byte {
	b := make([]byte, 19, 21+h.Channels)
	copy(b, opusHeadMagic)
	b[8] = 1
	b[9] = byte(h.Channels)
	binary.LittleEndian.PutUint16(b[10:], uint16(h.PreSkip))
	binary.LittleEndian.PutUint32(b[12:], uint32(h.InputRate))
	binary.LittleEndian.PutUint16(b[16:], uint16(h.Gain))
	b[18] = byte(h.Family)
	if h.Family != 0 {
		streams, coupled := OpusStreams(h.Channels)
		b = append(b, byte(streams), byte(coupled))
		for i := 0; i < h.Channels; i++ {
			b = append(b, byte(i))
		}
	}
	return b
}

// OpusStreams returns the stream and coupled stream counts used for a
// family 1 layout of the given channel count
func OpusStreams(channels int) (streams, coupled int) {
	coupled = channels / 2
	return channels - coupled, coupled
}

// ParseOpusHead decodes an identification header packet
func ParseOpusHead(p []byte) (OpusHead, error) {
	if len(p) < 19 || !bytes.Equal(p[:8], opusHeadMagic) {
		return OpusHead{}, ErrNotOpus
	}
	if p[8]>>4 != 0 {
		return OpusHead{}, fmt.Errorf("ogg: unsupported opus header version %d", p[8])
	}

	h := OpusHead{
		Channels:  int(p[9]),
		PreSkip:   int(binary.LittleEndian.Uint16(p[10:])),
		InputRate: int(binary.LittleEndian.Uint32(p[12:])),
		Gain:      int16(binary.LittleEndian.Uint16(p[16:])),
		Family:    int(p[18]),
	}
	if h.Channels == 0 {
		return OpusHead{}, fmt.Errorf("ogg: opus header declares zero channels")
	}
	return h, nil
}

// OpusTags is the comment header of an Ogg Opus stream
type OpusTags struct {
	Vendor   string
	Comments []string
}

// Marshal encodes the comment header
func (t OpusTags) Marshal() []byte {
	size := 8 + 4 + len(t.Vendor) + 4
	for _, c := range t.Comments {
		size += 4 + len(c)
	}

	b := make([]byte, 0, size)
	b = append(b, opusTagsMagic...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(t.Vendor)))
	b = append(b, t.Vendor...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(t.Comments)))
	for _, c := range t.Comments {
		b = binary.LittleEndian.AppendUint32(b, uint32(len(c)))
		b = append(b, c...)
	}
	return b
}

// ParseOpusTags decodes a comment header packet
func ParseOpusTags(p []byte) (OpusTags, error) {
	if len(p) < 16 || !bytes.Equal(p[:8], opusTagsMagic) {
		return OpusTags{}, errors.New("ogg: missing OpusTags header")
	}

	var t OpusTags
	rest := p[8:]
	next := func() (string, error) {
		if len(rest) < 4 {
			return "", errors.New("ogg: truncated OpusTags header")
		}
		n := binary.LittleEndian.Uint32(rest)
		rest = rest[4:]
		if uint64(n) > uint64(len(rest)) {
			return "", errors.New("ogg: truncated OpusTags header")
		}
		s := string(rest[:n])
		rest = rest[n:]
		return s, nil
	}

	vendor, err := next()
	if err != nil {
		return OpusTags{}, err
	}
	t.Vendor = vendor

	if len(rest) < 4 {
		return OpusTags{}, errors.New("ogg: truncated OpusTags header")
	}
	count := binary.LittleEndian.Uint32(rest)
	rest = rest[4:]
	for i := uint32(0); i < count; i++ {
		c, err := next()
		if err != nil {
			return OpusTags{}, err
		}
		t.Comments = append(t.Comments, c)
	}
	return t, nil
}
