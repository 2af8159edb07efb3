// ABOUTME: Ogg page layout constants and CRC-32 used by the page reader and writer
// ABOUTME: The checksum uses polynomial 0x04C11DB7, no reflection, zero init
package ogg

import "errors"

const (
	headerSize  = 27
	maxSegments = 255
	maxLacing   = 255

	// MaxPageData is the largest body a single page can carry
	MaxPageData = maxSegments * maxLacing

	flagContinued = 0x01
	flagBOS       = 0x02
	flagEOS       = 0x04
)

// NoGranule marks a page on which no packet finishes
const NoGranule int64 = -1

var capture = [4]byte{'O', 'g', 'g', 'S'}

var (
	ErrBadCapture = errors.New("ogg: missing OggS capture pattern")
	ErrVersion    = errors.New("ogg: unsupported stream structure version")
	ErrChecksum   = errors.New("ogg: page checksum mismatch")
)

var crcTable = func() (t [256]uint32) {
	for i := range t {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04C11DB7
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}
	return t
}()

func crcUpdate(crc uint32, p []byte) uint32 {
	for _, b := range p {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}
