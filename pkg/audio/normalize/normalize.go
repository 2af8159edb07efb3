// ABOUTME: Stateless sample format conversion to 16-bit signed PCM
// ABOUTME: Handles 8/16/24/32-bit interleaved input and byte order fixes
// Package normalize converts interleaved PCM of any supported bit depth to
// the codec's canonical 16-bit signed samples.
//
// Every function is pure: the same input always yields the same output and
// nothing is buffered between calls.
package normalize

import (
	"encoding/binary"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// Check rejects bit depths the normalizer cannot convert
func Check(bitDepth int) error {
	switch bitDepth {
	case 8, 16, 24, 32:
		return nil
	default:
		return transfer.Configf("bit depth", bitDepth, "unsupported sample format (supported: 8, 16, 24, 32)")
	}
}

// Sample8 treats a signed 8-bit sample as the high byte of a 16-bit sample
func Sample8(b byte) int16 {
	return int16(int8(b)) << 8
}

// Sample16 reads one 16-bit sample stored in order
func Sample16(b []byte, order binary.ByteOrder) int16 {
	return int16(order.Uint16(b))
}

// Sample24 keeps the two most significant bytes of a packed 24-bit sample.
// The least significant byte is dropped (truncation, not rounding).
func Sample24(b []byte, order binary.ByteOrder) int16 {
	hi, lo := b[0], b[1]
	if !audio.IsBigEndian(order) {
		hi, lo = b[2], b[1]
	}
	return int16(int8(hi))<<8 | int16(lo)
}

// Sample32 divides a 32-bit sample by 65536. Go's integer division truncates
// toward zero, so -1 becomes 0 where an arithmetic shift would give -1.
func Sample32(b []byte, order binary.ByteOrder) int16 {
	return int16(int32(order.Uint32(b)) / 65536)
}

// ToInt16 converts as many whole samples from src as fit in dst and returns
// the count. Trailing bytes that do not form a whole sample are ignored.
// A nil order means audio.DefaultOrder.
func ToInt16(dst []int16, src []byte, bitDepth int, order binary.ByteOrder) (int, error) {
	if err := Check(bitDepth); err != nil {
		return 0, err
	}
	if order == nil {
		order = audio.DefaultOrder
	}

	width := bitDepth / 8
	n := len(src) / width
	if n > len(dst) {
		n = len(dst)
	}

	switch bitDepth {
	case 8:
		for i := 0; i < n; i++ {
			dst[i] = Sample8(src[i])
		}
	case 16:
		for i := 0; i < n; i++ {
			dst[i] = Sample16(src[i*2:], order)
		}
	case 24:
		for i := 0; i < n; i++ {
			dst[i] = Sample24(src[i*3:], order)
		}
	case 32:
		for i := 0; i < n; i++ {
			dst[i] = Sample32(src[i*4:], order)
		}
	}

	return n, nil
}

// SwapInt16 reverses the byte order of every 16-bit sample in buf in place.
// A trailing odd byte is left alone.
func SwapInt16(buf []byte) {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = buf[i+1], buf[i]
	}
}

// Int16ToBytes writes samples to dst in order and returns the bytes written
func Int16ToBytes(dst []byte, src []int16, order binary.ByteOrder) int {
	if order == nil {
		order = audio.DefaultOrder
	}
	n := len(src)
	if n > len(dst)/2 {
		n = len(dst) / 2
	}
	for i := 0; i < n; i++ {
		order.PutUint16(dst[i*2:], uint16(src[i]))
	}
	return n * 2
}

// FromFloat32 scales a float sample in [-1, 1] to 16-bit, clamping overshoot
func FromFloat32(v float32) int16 {
	s := v * 32767
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}

// FromInt32 rescales a sample of the given bit width to 16 bits by shifting
func FromInt32(v int32, bits int) int16 {
	switch {
	case bits > 16:
		return int16(v >> (bits - 16))
	case bits < 16:
		return int16(v << (16 - bits))
	default:
		return int16(v)
	}
}
