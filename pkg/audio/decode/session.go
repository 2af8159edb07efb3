// ABOUTME: Decode session that fills a ring buffer from a compressed stream
// ABOUTME: Handles whole-frame reads, byte order conversion, resampling to the target rate and seeking
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/normalize"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/ringbuf"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

const (
	// DefaultBufferMs is the ring buffer length used when Options leaves it unset
	DefaultBufferMs = 250

	// DefaultTargetRate is the sample rate delivered when Options leaves it unset
	DefaultTargetRate = 48000

	// NativeRate as Options.TargetRate delivers the stream's own rate
	NativeRate = -1
)

// Options configures a decode session
type Options struct {
	// TargetOrder is the byte order delivered through the ring buffer.
	// nil means audio.DefaultOrder (big-endian).
	TargetOrder binary.ByteOrder

	// TargetRate is the sample rate delivered through the ring buffer.
	// Zero means DefaultTargetRate; other stream rates are resampled.
	TargetRate int

	// BufferBytes sizes the ring buffer. Zero derives it from BufferMs.
	BufferBytes int

	// BufferMs sizes the ring buffer in milliseconds of audio when
	// BufferBytes is zero. Zero means DefaultBufferMs.
	BufferMs int

	// Buffer supplies an existing ring buffer instead of allocating one
	Buffer *ringbuf.RingBuffer

	// OnFill is called after every Fill that decoded at least one frame
	OnFill func(frames int)

	Debug bool
}

// Session pulls decoded frames from a Stream into a ring buffer
type Session struct {
	id      string
	stream  Stream
	format  audio.PCMFormat
	rb      *ringbuf.RingBuffer
	scratch []byte

	sourceRate int
	resampler  *resample.Resampler
	samples    []int16
	resampled  []int16
	// pending holds converted bytes that did not fit into the ring buffer
	pending []byte

	current   int64
	section   int
	exhausted bool
	onFill    func(int)
	debug     bool

	closeOnce sync.Once
	closeErr  error
}

// NewSession wraps stream. The session owns the stream and closes it on Close.
func NewSession(stream Stream, opts Options) (*Session, error) {
	sourceRate := stream.SampleRate()
	if sourceRate <= 0 {
		return nil, transfer.Configf("sample rate", sourceRate, "stream reports no sample rate")
	}
	rate := opts.TargetRate
	switch {
	case rate == 0:
		rate = DefaultTargetRate
	case rate == NativeRate:
		rate = sourceRate
	case rate < 0:
		return nil, transfer.Configf("target rate", rate, "must be positive")
	}

	format := audio.PCMFormat{
		SampleRate: rate,
		Channels:   stream.Channels(),
		BitDepth:   audio.CanonicalBitDepth,
		Order:      opts.TargetOrder,
	}
	if format.Order == nil {
		format.Order = audio.DefaultOrder
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	bpf := format.BytesPerFrame()
	rb := opts.Buffer
	if rb == nil {
		size := opts.BufferBytes
		if size == 0 {
			ms := opts.BufferMs
			if ms <= 0 {
				ms = DefaultBufferMs
			}
			size = format.SampleRate * ms / 1000 * bpf
		}
		if size < bpf {
			return nil, &transfer.AllocationError{What: "ring buffer", Size: size,
				Err: fmt.Errorf("smaller than one %d-byte frame", bpf)}
		}

		var err error
		rb, err = ringbuf.New(size)
		if err != nil {
			return nil, err
		}
	} else if rb.Capacity() < bpf {
		return nil, &transfer.AllocationError{What: "ring buffer", Size: rb.Capacity(),
			Err: fmt.Errorf("smaller than one %d-byte frame", bpf)}
	}

	s := &Session{
		id:      uuid.New().String()[:8],
		stream:  stream,
		format:  format,
		rb:      rb,
		scratch: make([]byte, rb.Capacity()/bpf*bpf),
		onFill:  opts.OnFill,
		debug:   opts.Debug,

		sourceRate: sourceRate,
	}
	if sourceRate != rate {
		log.Printf("[decode %s] Resampling %d Hz to %d Hz", s.id, sourceRate, rate)
		s.resampler = resample.New(sourceRate, rate, format.Channels)
	}

	log.Printf("[decode %s] Opened stream: %s, %s",
		s.id, format, describeTotal(stream.TotalFrames(), sourceRate))
	return s, nil
}

func describeTotal(total int64, rate int) string {
	if total < 0 {
		return "unknown length"
	}
	return fmt.Sprintf("%d frames (%.1fs)", total, float64(total)/float64(rate))
}

// ID returns the short identifier used in log lines
func (s *Session) ID() string { return s.id }

// Format returns the PCM format delivered through the ring buffer
func (s *Session) Format() audio.PCMFormat { return s.format }

// Buffer returns the session's ring buffer
func (s *Session) Buffer() *ringbuf.RingBuffer { return s.rb }

// SourceRate returns the stream's sample rate. Frame positions, totals and
// Seek targets count frames at this rate.
func (s *Session) SourceRate() int { return s.sourceRate }

// TotalFrames returns the stream length, or -1 when unknown
func (s *Session) TotalFrames() int64 { return s.stream.TotalFrames() }

// BufferedFrames returns how many stream frames have been decoded but not
// yet read out of the session
func (s *Session) BufferedFrames() int64 {
	frames := int64((s.rb.Occupied() + len(s.pending)) / s.format.BytesPerFrame())
	if s.resampler != nil {
		frames = frames * int64(s.sourceRate) / int64(s.format.SampleRate)
	}
	return frames
}

// Seekable reports whether Seek can succeed
func (s *Session) Seekable() bool { return s.stream.Seekable() }

// CurrentFrame returns the index of the next frame the stream will decode
func (s *Session) CurrentFrame() int64 { return s.current }

// Section returns the logical section reported by the last read
func (s *Session) Section() int { return s.section }

// Exhausted reports whether the stream signalled end of data and every
// decoded frame has reached the ring buffer
func (s *Session) Exhausted() bool { return s.exhausted && len(s.pending) == 0 }

// Fill decodes as many whole frames as fit into the ring buffer. It stops
// when the buffer cannot take another frame or the stream reports end of
// data, and returns the number of stream frames decoded.
func (s *Session) Fill() (int, error) {
	bpf := s.format.BytesPerFrame()
	decoded := 0

	for s.flushPending() && !s.exhausted {
		frames := s.rb.Free() / bpf
		if s.resampler != nil && frames > 0 {
			frames = max(1, frames*s.sourceRate/s.format.SampleRate)
		}
		if limit := len(s.scratch) / bpf; frames > limit {
			frames = limit
		}
		if frames == 0 {
			break
		}

		n, section, err := s.stream.Read(s.scratch[:frames*bpf], frames)
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return decoded, &transfer.DecodeStreamError{Frames: n, Err: err}
		}
		if n < 0 || n > frames {
			return decoded, &transfer.DecodeStreamError{Frames: n}
		}
		if n == 0 {
			s.finish()
			break
		}

		if err := s.deliver(s.scratch[:n*bpf]); err != nil {
			return decoded, err
		}
		s.section = section
		s.current += int64(n)
		decoded += n

		if eof {
			s.finish()
			break
		}
	}

	if s.debug {
		log.Printf("[DEBUG] [decode %s] Fill decoded %d frames, buffer %d/%d bytes, %d pending",
			s.id, decoded, s.rb.Occupied(), s.rb.Capacity(), len(s.pending))
	}
	if decoded > 0 && s.onFill != nil {
		s.onFill(decoded)
	}
	return decoded, nil
}

// deliver converts stream bytes to the target format and writes them to
// the ring buffer, keeping what does not fit as pending
func (s *Session) deliver(data []byte) error {
	if s.resampler == nil {
		if !audio.SameOrder(s.stream.Order(), s.format.Order) {
			normalize.SwapInt16(data)
		}
		s.rb.Write(data)
		return nil
	}

	n := len(data) / 2
	if cap(s.samples) < n {
		s.samples = make([]int16, n)
	}
	samples := s.samples[:n]
	if _, err := normalize.ToInt16(samples, data, audio.CanonicalBitDepth, s.stream.Order()); err != nil {
		return err
	}
	s.resampled = s.resampler.Resample(s.resampled[:0], samples)
	s.appendPending(s.resampled)
	s.flushPending()
	return nil
}

// finish marks the stream exhausted and queues the resampler tail
func (s *Session) finish() {
	s.exhausted = true
	if s.resampler != nil {
		s.resampled = s.resampler.Flush(s.resampled[:0])
		s.appendPending(s.resampled)
		s.flushPending()
	}
	log.Printf("[decode %s] End of stream at frame %d", s.id, s.current)
}

func (s *Session) appendPending(samples []int16) {
	start := len(s.pending)
	s.pending = append(s.pending, make([]byte, len(samples)*2)...)
	normalize.Int16ToBytes(s.pending[start:], samples, s.format.Order)
}

// flushPending moves whole pending frames into the ring buffer and
// reports whether nothing is left pending
func (s *Session) flushPending() bool {
	if len(s.pending) == 0 {
		return true
	}
	bpf := s.format.BytesPerFrame()
	n := min(len(s.pending), s.rb.Free()/bpf*bpf)
	s.rb.Write(s.pending[:n])
	s.pending = s.pending[:copy(s.pending, s.pending[n:])]
	return len(s.pending) == 0
}

// Seek repositions the stream to a frame counted at the source rate and
// discards buffered audio. It returns the current frame, which is unchanged when the stream cannot seek or the seek
// fails.
func (s *Session) Seek(frame int64) int64 {
	if !s.stream.Seekable() {
		log.Printf("[decode %s] Warning: seek to frame %d ignored: %v", s.id, frame, ErrNotSeekable)
		return s.current
	}
	if total := s.stream.TotalFrames(); frame < 0 || (total >= 0 && frame > total) {
		log.Printf("[decode %s] Warning: seek to frame %d out of range (total %d)", s.id, frame, total)
		return s.current
	}

	if err := s.stream.Seek(frame); err != nil {
		log.Printf("[decode %s] Warning: seek to frame %d failed: %v", s.id, frame, err)
		return s.current
	}

	s.rb.Reset()
	s.pending = s.pending[:0]
	if s.resampler != nil {
		s.resampler.Reset()
	}
	s.current = frame
	s.exhausted = false
	return s.current
}

// Read drains decoded bytes from the ring buffer, filling it on demand.
// It returns io.EOF once the stream is exhausted and the buffer is empty.
func (s *Session) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.rb.Occupied() < len(p) && !s.Exhausted() {
		if _, err := s.Fill(); err != nil {
			return 0, err
		}
	}
	if s.rb.Occupied() == 0 {
		return 0, io.EOF
	}
	return s.rb.Read(p)
}

// Close releases the stream. Calling it more than once is safe.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.stream.Close()
		s.scratch = nil
		s.pending = nil
	})
	return s.closeErr
}
