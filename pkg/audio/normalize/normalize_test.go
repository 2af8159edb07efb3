// ABOUTME: Tests for sample format normalization
// ABOUTME: Covers every bit depth, byte order handling and edge values
package normalize

import (
	"encoding/binary"
	"testing"

	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample8(t *testing.T) {
	tests := []struct {
		name     string
		input    byte
		expected int16
	}{
		{"zero", 0x00, 0},
		{"max", 0x7F, 0x7F00},
		{"min", 0x80, -32768},
		{"minus one", 0xFF, -256},
		{"one", 0x01, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sample8(tt.input))
		})
	}
}

func TestSample16(t *testing.T) {
	assert.Equal(t, int16(0x0102), Sample16([]byte{0x01, 0x02}, binary.BigEndian))
	assert.Equal(t, int16(0x0201), Sample16([]byte{0x01, 0x02}, binary.LittleEndian))
	assert.Equal(t, int16(-2), Sample16([]byte{0xFF, 0xFE}, binary.BigEndian))
}

func TestSample16RoundTrip(t *testing.T) {
	values := []int16{0, 1, -1, 255, 256, -256, 12345, -12345, 32767, -32768}

	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		buf := make([]byte, len(values)*2)
		require.Equal(t, len(buf), Int16ToBytes(buf, values, order))

		out := make([]int16, len(values))
		n, err := ToInt16(out, buf, 16, order)
		require.NoError(t, err)
		assert.Equal(t, len(values), n)
		assert.Equal(t, values, out)
	}
}

func TestSample24(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		order    binary.ByteOrder
		expected int16
	}{
		{"big-endian drops low byte", []byte{0x01, 0x02, 0x03}, binary.BigEndian, 0x0102},
		{"little-endian drops low byte", []byte{0x03, 0x02, 0x01}, binary.LittleEndian, 0x0102},
		{"negative big-endian", []byte{0xFF, 0xFF, 0xFF}, binary.BigEndian, -1},
		{"most negative", []byte{0x80, 0x00, 0x00}, binary.BigEndian, -32768},
		{"most positive", []byte{0x7F, 0xFF, 0xFF}, binary.BigEndian, 32767},
		{"truncates not rounds", []byte{0x00, 0x00, 0xFF}, binary.BigEndian, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sample24(tt.input, tt.order))
		})
	}
}

func TestSample32TruncatesTowardZero(t *testing.T) {
	encode := func(v int32) []byte {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v))
		return b
	}

	tests := []struct {
		name     string
		input    int32
		expected int16
	}{
		{"positive", 131072, 2},
		{"negative", -131072, -2},
		{"minus one is zero", -1, 0},
		{"just below minus one step", -65535, 0},
		{"minus one step", -65536, -1},
		{"max", 2147483647, 32767},
		{"min", -2147483648, -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sample32(encode(tt.input), binary.BigEndian))
		})
	}
}

func TestToInt16(t *testing.T) {
	t.Run("8-bit", func(t *testing.T) {
		dst := make([]int16, 3)
		n, err := ToInt16(dst, []byte{0x7F, 0x80, 0x00}, 8, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []int16{0x7F00, -32768, 0}, dst)
	})

	t.Run("24-bit ignores partial trailing sample", func(t *testing.T) {
		dst := make([]int16, 4)
		n, err := ToInt16(dst, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}, 24, binary.BigEndian)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []int16{0x0102, 0x0405}, dst[:n])
	})

	t.Run("dst bounds the count", func(t *testing.T) {
		dst := make([]int16, 1)
		n, err := ToInt16(dst, []byte{0, 1, 0, 2}, 16, binary.BigEndian)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, int16(1), dst[0])
	})

	t.Run("unsupported depth fails before converting", func(t *testing.T) {
		dst := []int16{7, 7}
		n, err := ToInt16(dst, []byte{1, 2, 3, 4}, 12, binary.BigEndian)
		assert.Equal(t, 0, n)
		assert.True(t, transfer.IsConfiguration(err))
		assert.Equal(t, []int16{7, 7}, dst)
	})
}

func TestCheck(t *testing.T) {
	for _, depth := range []int{8, 16, 24, 32} {
		assert.NoError(t, Check(depth))
	}
	for _, depth := range []int{0, 4, 12, 20, 64} {
		assert.True(t, transfer.IsConfiguration(Check(depth)), "depth %d", depth)
	}
}

func TestSwapInt16(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	SwapInt16(buf)
	assert.Equal(t, []byte{0x02, 0x01, 0x04, 0x03, 0x05}, buf)

	// swapping twice restores the original
	SwapInt16(buf)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05}, buf)
}

func TestFromFloat32(t *testing.T) {
	assert.Equal(t, int16(0), FromFloat32(0))
	assert.Equal(t, int16(32767), FromFloat32(1))
	assert.Equal(t, int16(-32767), FromFloat32(-1))
	assert.Equal(t, int16(32767), FromFloat32(1.5))
	assert.Equal(t, int16(-32768), FromFloat32(-2))
}

func TestFromInt32(t *testing.T) {
	assert.Equal(t, int16(0x1234), FromInt32(0x123456, 24))
	assert.Equal(t, int16(-1), FromInt32(-1, 24))
	assert.Equal(t, int16(0x1200), FromInt32(0x12, 8))
	assert.Equal(t, int16(-300), FromInt32(-300, 16))
}
