// ABOUTME: Ogg page reader
// ABOUTME: Verifies page checksums and reassembles packets across pages
package ogg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Packet is one reassembled packet of the first logical stream
type Packet struct {
	Data []byte
	// Granule is the page granule position when this packet is the last one
	// finishing on its page, NoGranule otherwise
	Granule int64
	BOS     bool
	EOS     bool
}

// Reader reads packets from the first logical stream of an Ogg file.
// Pages belonging to other streams are skipped.
type Reader struct {
	r       io.Reader
	serial  uint32
	started bool

	hdr     [headerSize]byte
	lacing  []byte
	body    []byte
	seg     int
	off     int
	flags   byte
	granule int64
	partial []byte
	done    bool
}

// NewReader creates a packet reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Serial returns the serial number of the stream being read
func (r *Reader) Serial() uint32 { return r.serial }

// NextPacket returns the next complete packet, or io.EOF after the page
// marked end-of-stream (or a clean end of input).
func (r *Reader) NextPacket() (Packet, error) {
	for {
		for r.seg < len(r.lacing) {
			l := int(r.lacing[r.seg])
			r.partial = append(r.partial, r.body[r.off:r.off+l]...)
			r.off += l
			r.seg++
			if l == maxLacing {
				continue
			}

			p := Packet{Data: r.partial, Granule: NoGranule}
			r.partial = nil
			if r.flags&flagBOS != 0 {
				p.BOS = true
				r.flags &^= flagBOS
			}
			if r.lastPacketOnPage() {
				p.Granule = r.granule
				p.EOS = r.flags&flagEOS != 0
			}
			return p, nil
		}

		if r.done {
			return Packet{}, io.EOF
		}
		if err := r.readPage(); err != nil {
			return Packet{}, err
		}
	}
}

func (r *Reader) lastPacketOnPage() bool {
	for _, l := range r.lacing[r.seg:] {
		if l < maxLacing {
			return false
		}
	}
	return true
}

func (r *Reader) readPage() error {
	for {
		if _, err := io.ReadFull(r.r, r.hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				if len(r.partial) > 0 {
					return io.ErrUnexpectedEOF
				}
				return io.EOF
			}
			return fmt.Errorf("failed to read ogg page header: %w", err)
		}
		if [4]byte(r.hdr[:4]) != capture {
			return ErrBadCapture
		}
		if r.hdr[4] != 0 {
			return ErrVersion
		}

		nseg := int(r.hdr[26])
		r.lacing = r.lacing[:0]
		r.lacing = append(r.lacing, make([]byte, nseg)...)
		if _, err := io.ReadFull(r.r, r.lacing); err != nil {
			return fmt.Errorf("failed to read ogg segment table: %w", err)
		}

		size := 0
		for _, l := range r.lacing {
			size += int(l)
		}
		if cap(r.body) < size {
			r.body = make([]byte, size)
		}
		r.body = r.body[:size]
		if _, err := io.ReadFull(r.r, r.body); err != nil {
			return fmt.Errorf("failed to read ogg page body: %w", err)
		}

		want := binary.LittleEndian.Uint32(r.hdr[22:])
		binary.LittleEndian.PutUint32(r.hdr[22:], 0)
		crc := crcUpdate(0, r.hdr[:])
		crc = crcUpdate(crc, r.lacing)
		crc = crcUpdate(crc, r.body)
		if crc != want {
			return ErrChecksum
		}

		serial := binary.LittleEndian.Uint32(r.hdr[14:])
		if !r.started {
			r.serial = serial
			r.started = true
		} else if serial != r.serial {
			continue
		}

		r.flags = r.hdr[5]
		r.granule = int64(binary.LittleEndian.Uint64(r.hdr[6:]))
		r.seg = 0
		r.off = 0
		if r.flags&flagContinued == 0 {
			r.partial = r.partial[:0]
		}
		if r.flags&flagEOS != 0 {
			r.done = true
		}
		return nil
	}
}
