// ABOUTME: Ogg page writer
// ABOUTME: Frames packets into checksummed pages for a single logical stream
package ogg

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Writer frames packets of one logical bitstream into Ogg pages
type Writer struct {
	w      io.Writer
	serial uint32
	seq    uint32
	page   []byte
}

// NewWriter creates a page writer for the stream with the given serial
func NewWriter(w io.Writer, serial uint32) *Writer {
	return &Writer{
		w:      w,
		serial: serial,
		page:   make([]byte, 0, headerSize+maxSegments+MaxPageData),
	}
}

// WritePacket writes packet on its own page (or pages, when it exceeds one
// page's capacity). granule is recorded on the page where the packet ends.
// eos marks the final page of the stream.
func (w *Writer) WritePacket(packet []byte, granule int64, eos bool) error {
	continued := false
	for {
		var lacing []byte
		body := packet
		finished := true

		if len(packet) >= MaxPageData {
			// a packet of exactly MaxPageData still needs a terminating zero lace
			body = packet[:MaxPageData]
			lacing = fullLacing[:]
			finished = false
		} else {
			lacing = make([]byte, 0, len(packet)/maxLacing+1)
			for n := len(packet); n >= maxLacing; n -= maxLacing {
				lacing = append(lacing, maxLacing)
			}
			lacing = append(lacing, byte(len(packet)%maxLacing))
		}

		var flags byte
		if continued {
			flags |= flagContinued
		}
		if w.seq == 0 {
			flags |= flagBOS
		}
		pageGranule := NoGranule
		if finished {
			pageGranule = granule
			if eos {
				flags |= flagEOS
			}
		}

		if err := w.writePage(flags, pageGranule, lacing, body); err != nil {
			return err
		}
		if finished {
			return nil
		}
		packet = packet[MaxPageData:]
		continued = true
	}
}

func (w *Writer) writePage(flags byte, granule int64, lacing, body []byte) error {
	p := w.page[:headerSize]
	copy(p, capture[:])
	p[4] = 0
	p[5] = flags
	binary.LittleEndian.PutUint64(p[6:], uint64(granule))
	binary.LittleEndian.PutUint32(p[14:], w.serial)
	binary.LittleEndian.PutUint32(p[18:], w.seq)
	binary.LittleEndian.PutUint32(p[22:], 0)
	p[26] = byte(len(lacing))
	p = append(p, lacing...)
	p = append(p, body...)

	binary.LittleEndian.PutUint32(p[22:], crcUpdate(0, p))

	if _, err := w.w.Write(p); err != nil {
		return fmt.Errorf("failed to write ogg page: %w", err)
	}
	w.seq++
	return nil
}

// Pages returns the number of pages written so far
func (w *Writer) Pages() uint32 { return w.seq }

var fullLacing = func() (l [maxSegments]byte) {
	for i := range l {
		l[i] = maxLacing
	}
	return l
}()
