// ABOUTME: Audio type definitions
// ABOUTME: Defines the PCM format shared by decode and encode sessions
package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

const (
	// CanonicalBitDepth is the codec native sample width (16-bit signed)
	CanonicalBitDepth = 16

	// MaxChannels bounds channel counts accepted by sessions
	MaxChannels = 255
)

// DefaultOrder is the byte order assumed when a format does not name one
var DefaultOrder binary.ByteOrder = binary.BigEndian

// PCMFormat describes interleaved PCM audio
type PCMFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
	// Order is the byte order of multi-byte samples; nil means DefaultOrder
	Order binary.ByteOrder
}

// BytesPerSample returns the size of one sample of one channel
func (f PCMFormat) BytesPerSample() int {
	return f.BitDepth / 8
}

// BytesPerFrame returns channels × bytes per sample
func (f PCMFormat) BytesPerFrame() int {
	return f.Channels * f.BytesPerSample()
}

// ByteOrder returns Order, falling back to DefaultOrder
func (f PCMFormat) ByteOrder() binary.ByteOrder {
	if f.Order == nil {
		return DefaultOrder
	}
	return f.Order
}

// Validate checks the format invariants
func (f PCMFormat) Validate() error {
	if f.SampleRate <= 0 {
		return transfer.Configf("sample rate", f.SampleRate, "must be positive")
	}
	if f.Channels <= 0 || f.Channels > MaxChannels {
		return transfer.Configf("channel count", f.Channels, "must be between 1 and %d", MaxChannels)
	}
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		return transfer.Configf("bit depth", f.BitDepth, "supported: 8, 16, 24, 32")
	}
	return nil
}

func (f PCMFormat) String() string {
	return fmt.Sprintf("%dHz %dch %d-bit %s", f.SampleRate, f.Channels, f.BitDepth, OrderName(f.ByteOrder()))
}

// IsBigEndian reports whether order stores the most significant byte first
func IsBigEndian(order binary.ByteOrder) bool {
	return order.Uint16([]byte{0x00, 0x01}) == 0x0001
}

// OrderName returns "big-endian" or "little-endian"
func OrderName(order binary.ByteOrder) string {
	if IsBigEndian(order) {
		return "big-endian"
	}
	return "little-endian"
}

// ParseOrder maps "big"/"little" (and the -endian forms) to a byte order
func ParseOrder(name string) (binary.ByteOrder, error) {
	switch name {
	case "big", "big-endian", "be":
		return binary.BigEndian, nil
	case "little", "little-endian", "le":
		return binary.LittleEndian, nil
	default:
		return nil, transfer.Configf("byte order", name, "expected big or little")
	}
}

// SameOrder reports whether two byte orders lay out samples identically
func SameOrder(a, b binary.ByteOrder) bool {
	return IsBigEndian(a) == IsBigEndian(b)
}
