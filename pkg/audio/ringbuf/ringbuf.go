// ABOUTME: Fixed capacity circular byte buffer for streaming PCM
// ABOUTME: Single producer / single consumer, no locking, no growth
// Package ringbuf provides the bounded byte buffer that sits between a
// decode session and its PCM consumer.
//
// The buffer is not synchronized. One producer writes and one consumer reads;
// callers sharing it across goroutines must add their own locking.
package ringbuf

import (
	"errors"

	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// ErrOverCommit is returned when a commit exceeds the free or occupied space
var ErrOverCommit = errors.New("ringbuf: commit exceeds available space")

// RingBuffer is a fixed capacity FIFO of bytes with wraparound cursors
type RingBuffer struct {
	buf   []byte
	read  int
	write int
	count int // occupied bytes; disambiguates full from empty when read == write
}

// New creates a ring buffer holding capacity bytes
func New(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, &transfer.AllocationError{What: "ring buffer", Size: capacity}
	}
	return &RingBuffer{buf: make([]byte, capacity)}, nil
}

// Capacity returns the fixed size in bytes
func (rb *RingBuffer) Capacity() int {
	return len(rb.buf)
}

// Occupied returns the number of bytes waiting to be read
func (rb *RingBuffer) Occupied() int {
	return rb.count
}

// Free returns the number of bytes that can be written
func (rb *RingBuffer) Free() int {
	return len(rb.buf) - rb.count
}

// Reset drops all buffered data. The caller must own both ends.
func (rb *RingBuffer) Reset() {
	rb.read = rb.write
	rb.count = 0
}

// WriteRegion returns the contiguous free region starting at the write
// cursor. It may be shorter than Free when the free space wraps.
func (rb *RingBuffer) WriteRegion() []byte {
	if rb.count == len(rb.buf) {
		return nil
	}
	if rb.write < rb.read {
		return rb.buf[rb.write:rb.read]
	}
	return rb.buf[rb.write:]
}

// CommitWrite publishes n bytes written into the write region(s)
func (rb *RingBuffer) CommitWrite(n int) error {
	if n < 0 || n > rb.Free() {
		return ErrOverCommit
	}
	rb.write = (rb.write + n) % len(rb.buf)
	rb.count += n
	return nil
}

// ReadRegion returns the contiguous occupied region starting at the read
// cursor. It may be shorter than Occupied when the data wraps.
func (rb *RingBuffer) ReadRegion() []byte {
	if rb.count == 0 {
		return nil
	}
	if rb.read < rb.write {
		return rb.buf[rb.read:rb.write]
	}
	return rb.buf[rb.read:]
}

// CommitRead releases n bytes consumed from the read region(s)
func (rb *RingBuffer) CommitRead(n int) error {
	if n < 0 || n > rb.count {
		return ErrOverCommit
	}
	rb.read = (rb.read + n) % len(rb.buf)
	rb.count -= n
	return nil
}

// Write copies as much of p as fits. A full buffer is not an error: the
// short count tells the producer to stop writing this round.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		region := rb.WriteRegion()
		if len(region) == 0 {
			break
		}
		n := copy(region, p[written:])
		// n never exceeds the region, which never exceeds Free
		_ = rb.CommitWrite(n)
		written += n
	}
	return written, nil
}

// Read copies buffered bytes into p in FIFO order. An empty buffer returns 0.
func (rb *RingBuffer) Read(p []byte) (int, error) {
	read := 0
	for read < len(p) {
		region := rb.ReadRegion()
		if len(region) == 0 {
			break
		}
		n := copy(p[read:], region)
		_ = rb.CommitRead(n)
		read += n
	}
	return read, nil
}
