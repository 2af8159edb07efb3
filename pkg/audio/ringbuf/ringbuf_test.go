// ABOUTME: Tests for the circular byte buffer
// ABOUTME: Checks space accounting, FIFO order, wraparound and reset
package ringbuf

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmptyCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		rb, err := New(capacity)
		assert.Nil(t, rb)

		var allocErr *transfer.AllocationError
		require.True(t, errors.As(err, &allocErr))
		assert.Equal(t, capacity, allocErr.Size)
	}
}

func TestEmptyBuffer(t *testing.T) {
	rb, err := New(16)
	require.NoError(t, err)

	assert.Equal(t, 16, rb.Capacity())
	assert.Equal(t, 0, rb.Occupied())
	assert.Equal(t, 16, rb.Free())
	assert.Nil(t, rb.ReadRegion())
	assert.Len(t, rb.WriteRegion(), 16)

	n, err := rb.Read(make([]byte, 4))
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFullBufferStopsWriter(t *testing.T) {
	rb, err := New(8)
	require.NoError(t, err)

	n, err := rb.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 0, rb.Free())
	assert.Nil(t, rb.WriteRegion())

	n, err = rb.Write([]byte("x"))
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	out := make([]byte, 8)
	n, _ = rb.Read(out)
	assert.Equal(t, 8, n)
	assert.Equal(t, "01234567", string(out))
}

func TestWraparound(t *testing.T) {
	rb, err := New(8)
	require.NoError(t, err)

	_, _ = rb.Write([]byte("abcdef"))
	out := make([]byte, 4)
	_, _ = rb.Read(out)
	assert.Equal(t, "abcd", string(out))

	// write cursor at 6, read cursor at 4: the next write wraps
	n, _ := rb.Write([]byte("ghijkl"))
	assert.Equal(t, 6, n)
	assert.Equal(t, 8, rb.Occupied())

	// first read region ends at the physical end of the buffer
	assert.Equal(t, "efgh", string(rb.ReadRegion()))

	all := make([]byte, 8)
	n, _ = rb.Read(all)
	assert.Equal(t, 8, n)
	assert.Equal(t, "efghijkl", string(all))
}

func TestRegionCommit(t *testing.T) {
	rb, err := New(10)
	require.NoError(t, err)

	region := rb.WriteRegion()
	copy(region, "hello")
	require.NoError(t, rb.CommitWrite(5))
	assert.Equal(t, "hello", string(rb.ReadRegion()))

	require.NoError(t, rb.CommitRead(2))
	assert.Equal(t, "llo", string(rb.ReadRegion()))
	assert.Equal(t, 7, rb.Free())
}

func TestOverCommit(t *testing.T) {
	rb, err := New(4)
	require.NoError(t, err)

	assert.ErrorIs(t, rb.CommitWrite(5), ErrOverCommit)
	assert.ErrorIs(t, rb.CommitWrite(-1), ErrOverCommit)
	assert.ErrorIs(t, rb.CommitRead(1), ErrOverCommit)

	require.NoError(t, rb.CommitWrite(4))
	assert.ErrorIs(t, rb.CommitRead(5), ErrOverCommit)
	assert.Equal(t, 4, rb.Occupied())
}

func TestReset(t *testing.T) {
	tests := []struct {
		name   string
		writes int
		reads  int
	}{
		{"empty", 0, 0},
		{"partial", 5, 2},
		{"full", 12, 0},
		{"wrapped", 12, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb, err := New(12)
			require.NoError(t, err)
			_, _ = rb.Write(bytes.Repeat([]byte{1}, tt.writes))
			_, _ = rb.Read(make([]byte, tt.reads))
			_, _ = rb.Write([]byte{2, 3})

			rb.Reset()

			assert.Equal(t, 0, rb.Occupied())
			assert.Equal(t, rb.Capacity(), rb.Free())
			assert.Nil(t, rb.ReadRegion())
		})
	}
}

// Random producer/consumer steps never break the space invariant and the
// consumer sees exactly the produced byte stream.
func TestFIFOInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	rb, err := New(37)
	require.NoError(t, err)

	var produced, consumed []byte
	next := byte(0)

	for step := 0; step < 5000; step++ {
		if rng.IntN(2) == 0 {
			n := rng.IntN(rb.Free() + 1)
			chunk := make([]byte, n)
			for i := range chunk {
				chunk[i] = next
				next++
			}
			w, err := rb.Write(chunk)
			require.NoError(t, err)
			require.Equal(t, n, w)
			produced = append(produced, chunk...)
		} else {
			n := rng.IntN(rb.Occupied() + 1)
			chunk := make([]byte, n)
			r, err := rb.Read(chunk)
			require.NoError(t, err)
			require.Equal(t, n, r)
			consumed = append(consumed, chunk...)
		}

		require.Equal(t, rb.Capacity(), rb.Occupied()+rb.Free(), "step %d", step)
		require.GreaterOrEqual(t, rb.Occupied(), 0)
		require.LessOrEqual(t, rb.Occupied(), rb.Capacity())
	}

	rest := make([]byte, rb.Occupied())
	_, _ = rb.Read(rest)
	consumed = append(consumed, rest...)

	assert.Equal(t, produced, consumed)
}
