// ABOUTME: Concurrent drain of a decode session into any writer
// ABOUTME: Producer fills the ring buffer while the consumer feeds the writer
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/ringbuf"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// DefaultChunkFrames is how many frames the consumer hands the writer at once
const DefaultChunkFrames = 1024

// Options configures Pump and Play
type Options struct {
	// Observer receives lifecycle and progress callbacks; nil means none
	Observer transfer.Observer

	// Canceller is polled every ProgressInterval chunks; nil means never
	Canceller transfer.Canceller

	ProgressInterval int

	// ChunkFrames bounds each write; zero means DefaultChunkFrames
	ChunkFrames int

	// Clock overrides time.Now for timestamps
	Clock func() time.Time

	Debug bool
}

func (o Options) withDefaults() Options {
	if o.Observer == nil {
		o.Observer = transfer.NopObserver{}
	}
	if o.Canceller == nil {
		o.Canceller = transfer.Never
	}
	if o.ChunkFrames <= 0 {
		o.ChunkFrames = DefaultChunkFrames
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// pump shares the session ring buffer between one producer and one
// consumer goroutine. Every session and buffer call happens under mu.
type pump struct {
	sess *decode.Session
	rb   *ringbuf.RingBuffer
	opts Options
	bpf  int

	mu   sync.Mutex
	cond *sync.Cond
	done bool
}

// Pump decodes sess into w until the stream ends, a stop is requested or
// either side fails. Decoding runs on its own goroutine so a slow writer
// such as an audio device never starves the decoder. The session is left
// open for the caller.
func Pump(ctx context.Context, sess *decode.Session, w io.Writer, opts Options) transfer.Result {
	opts = opts.withDefaults()
	p := &pump{
		sess: sess,
		rb:   sess.Buffer(),
		opts: opts,
		bpf:  sess.Format().BytesPerFrame(),
	}
	p.cond = sync.NewCond(&p.mu)

	var res transfer.Result
	res.Started = opts.Clock()
	opts.Observer.OnStart(res.Started)
	log.Printf("[decode %s] Pumping %s", sess.ID(), sess.Format())

	g, gctx := errgroup.WithContext(ctx)
	wake := context.AfterFunc(gctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer wake()

	g.Go(func() error { return p.produce(gctx) })
	g.Go(func() error { return p.consume(gctx, w, &res) })
	err := g.Wait()

	switch {
	case err == nil:
		opts.Observer.OnProgress(100, 0)
		res.Complete()
	case errors.Is(err, transfer.ErrStopRequested), ctx.Err() != nil:
		res.Stop()
	default:
		res.Fail(err)
	}
	res.Finished = opts.Clock()

	switch res.Outcome {
	case transfer.Completed:
		log.Printf("[decode %s] Played %d frames in %v", sess.ID(), res.Frames, res.Duration().Round(time.Millisecond))
	case transfer.Stopped:
		log.Printf("[decode %s] Playback stopped after %d frames", sess.ID(), res.Frames)
	default:
		log.Printf("[decode %s] Playback failed after %d frames: %v", sess.ID(), res.Frames, res.Err)
	}
	transfer.Notify(opts.Observer, res)
	return res
}

// produce keeps the ring buffer topped up until the stream is exhausted
func (p *pump) produce(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cond.Broadcast()

	for {
		for p.rb.Free() < p.bpf && ctx.Err() == nil {
			p.cond.Wait()
		}
		if ctx.Err() != nil {
			return nil
		}

		if _, err := p.sess.Fill(); err != nil {
			return fmt.Errorf("failed to decode audio: %w", err)
		}
		p.cond.Broadcast()

		if p.sess.Exhausted() {
			p.done = true
			return nil
		}
	}
}

// consume moves whole chunks from the ring buffer to w. Writes happen
// outside the lock so the producer can refill meanwhile.
func (p *pump) consume(ctx context.Context, w io.Writer, res *transfer.Result) error {
	buf := make([]byte, p.opts.ChunkFrames*p.bpf)
	throttle := transfer.Throttle{Interval: p.opts.ProgressInterval}

	total := p.sess.TotalFrames()

	for {
		p.mu.Lock()
		for p.rb.Occupied() == 0 && !p.done && ctx.Err() == nil {
			p.cond.Wait()
		}
		if err := ctx.Err(); err != nil {
			p.mu.Unlock()
			return err
		}
		if p.rb.Occupied() == 0 && p.done {
			p.mu.Unlock()
			return nil
		}
		n, _ := p.rb.Read(buf)
		p.cond.Broadcast()
		p.mu.Unlock()

		if _, err := w.Write(buf[:n]); err != nil {
			return fmt.Errorf("failed to write audio: %w", err)
		}

		res.Frames += int64(n / p.bpf)

		if throttle.Tick() {
			if p.opts.Canceller() {
				log.Printf("[decode %s] Stop requested", p.sess.ID())
				return transfer.ErrStopRequested
			}
			p.mu.Lock()
			position := p.sess.CurrentFrame() - p.sess.BufferedFrames()
			p.mu.Unlock()
			percent, left := transfer.Progress(total, total-position, p.opts.Clock().Sub(res.Started))
			if p.opts.Debug {
				log.Printf("[DEBUG] [decode %s] Played %d frames, %d%%, %ds left", p.sess.ID(), position, percent, left)
			}
			p.opts.Observer.OnProgress(percent, left)
		}
	}
}
