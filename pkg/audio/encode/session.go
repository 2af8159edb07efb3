// ABOUTME: Encode session driving read, normalize and encode over a PCM source
// ABOUTME: Polls for stop requests, reports progress and always releases codec resources
package encode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/normalize"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/pcm"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// DefaultWindowBytes is the PCM read window per loop iteration
const DefaultWindowBytes = 8192

// DefaultEncoderTag is written as the ENCODER comment
const DefaultEncoderTag = "resonate-codec"

// State is the session lifecycle position
type State int32

const (
	Idle State = iota
	Running
	Completed
	Stopped
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures an encode session
type Options struct {
	Settings Settings
	Library  Library

	// Observer receives lifecycle and progress callbacks; nil means none
	Observer transfer.Observer

	// Canceller is polled together with the Run context; nil means never
	Canceller transfer.Canceller

	// WindowBytes is the read window size; zero means DefaultWindowBytes
	WindowBytes int

	// ProgressInterval is the number of windows between progress and stop
	// polls; zero means transfer.DefaultInterval
	ProgressInterval int

	// EncoderTag is the ENCODER comment value; empty means DefaultEncoderTag
	EncoderTag string
	Tags       []Tag

	// Clock overrides time.Now for timestamps
	Clock func() time.Time

	Debug bool
}

// Session encodes one PCM source to one sink. A session runs once.
type Session struct {
	id    string
	opts  Options
	state atomic.Int32
}

// NewSession validates the settings and returns an idle session
func NewSession(opts Options) (*Session, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Library == nil {
		return nil, transfer.Configf("codec library", nil, "required")
	}
	if opts.Observer == nil {
		opts.Observer = transfer.NopObserver{}
	}
	if opts.WindowBytes <= 0 {
		opts.WindowBytes = DefaultWindowBytes
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = transfer.DefaultInterval
	}
	if opts.EncoderTag == "" {
		opts.EncoderTag = DefaultEncoderTag
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Session{
		id:   uuid.New().String()[:8],
		opts: opts,
	}, nil
}

// ID returns the short identifier used in log lines
func (s *Session) ID() string { return s.id }

// State returns the lifecycle position; safe to call from any goroutine
func (s *Session) State() State { return State(s.state.Load()) }

// Run encodes src into sink and blocks until the session is closed. The
// context and the configured Canceller are both treated as stop requests.
// The returned Result carries exactly one outcome.
func (s *Session) Run(ctx context.Context, src pcm.Source, sink Sink) transfer.Result {
	var res transfer.Result
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		res.Fail(fmt.Errorf("encode session %s already ran", s.id))
		return res
	}

	r := &run{
		session: s,
		res:     &res,
		cancel:  transfer.Any(s.opts.Canceller, transfer.FromContext(ctx)),
	}
	r.execute(src, sink)

	switch res.Outcome {
	case transfer.Completed:
		s.state.Store(int32(Completed))
	case transfer.Stopped:
		s.state.Store(int32(Stopped))
	default:
		s.state.Store(int32(Failed))
	}

	r.cleanup()
	res.Finished = s.opts.Clock()
	s.state.Store(int32(Closed))

	s.logResult(res)
	transfer.Notify(s.opts.Observer, res)
	return res
}

func (s *Session) logResult(res transfer.Result) {
	switch res.Outcome {
	case transfer.Completed:
		log.Printf("[encode %s] Completed: %d frames in %v", s.id, res.Frames, res.Duration().Round(time.Millisecond))
	case transfer.Stopped:
		log.Printf("[encode %s] Stopped after %d frames", s.id, res.Frames)
	default:
		log.Printf("[encode %s] Failed after %d frames: %v", s.id, res.Frames, res.Err)
	}
	if res.Warning != nil {
		log.Printf("[encode %s] Warning: %v", s.id, res.Warning)
	}
}

// run holds the resources of one Run call
type run struct {
	session *Session
	res     *transfer.Result
	cancel  transfer.Canceller

	out      io.WriteCloser
	comments Comments
	handle   Handle
	window   []byte
	samples  []int16
}

func (r *run) execute(src pcm.Source, sink Sink) {
	s := r.session
	opts := s.opts

	format := src.Format()
	if err := format.Validate(); err != nil {
		r.res.Fail(err)
		return
	}
	if err := normalize.Check(format.BitDepth); err != nil {
		r.res.Fail(err)
		return
	}

	bpf := format.BytesPerFrame()
	frames := opts.WindowBytes / bpf
	if frames == 0 {
		r.res.Fail(&transfer.AllocationError{What: "read window", Size: opts.WindowBytes,
			Err: fmt.Errorf("smaller than one %d-byte frame", bpf)})
		return
	}
	r.window = make([]byte, frames*bpf)
	r.samples = make([]int16, frames*format.Channels)

	if err := r.open(format, sink); err != nil {
		r.res.Fail(err)
		return
	}

	r.res.Started = opts.Clock()
	opts.Observer.OnStart(r.res.Started)
	log.Printf("[encode %s] Encoding %s with %s (%s, %d kbps, complexity %d)",
		s.id, format, opts.Library.Name(), opts.Settings.Mode,
		opts.Settings.Bitrate()/1000, opts.Settings.Complexity)

	r.loop(src, format, frames)
}

// open creates the sink, comments and encoder handle and applies controls
func (r *run) open(format audio.PCMFormat, sink Sink) error {
	s := r.session
	opts := s.opts

	out, err := sink.Open()
	if err != nil {
		return err
	}
	r.out = out

	comments, err := opts.Library.CreateComments()
	if err != nil {
		return fmt.Errorf("failed to create comments: %w", err)
	}
	r.comments = comments
	comments.Add("ENCODER", opts.EncoderTag)
	for _, tag := range opts.Tags {
		comments.Add(tag.Name, tag.Value)
	}

	family := 0
	if format.Channels > 2 {
		family = 1
	}
	handle, err := opts.Library.CreateEncoder(out, comments, format.SampleRate, format.Channels, family)
	if err != nil {
		return fmt.Errorf("failed to create %s encoder: %w", opts.Library.Name(), err)
	}
	r.handle = handle

	for _, c := range opts.Settings.Controls() {
		err := handle.Control(c.Setting, c.Value)
		if errors.Is(err, ErrUnsupportedSetting) {
			log.Printf("[encode %s] Warning: %s ignores %s setting", s.id, opts.Library.Name(), c.Setting)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to set %s: %w", c.Setting, err)
		}
	}
	return nil
}

func (r *run) loop(src pcm.Source, format audio.PCMFormat, frames int) {
	s := r.session
	opts := s.opts
	bpf := format.BytesPerFrame()
	order := format.ByteOrder()

	total := src.TotalFrames()
	remaining := total
	throttle := transfer.Throttle{Interval: opts.ProgressInterval}

	for {
		n, err := src.ReadAudio(r.window, frames)
		if err != nil {
			r.res.Fail(fmt.Errorf("failed to read pcm: %w", err))
			return
		}
		if n == 0 {
			break
		}

		count, err := normalize.ToInt16(r.samples, r.window[:n*bpf], format.BitDepth, order)
		if err != nil {
			r.res.Fail(err)
			return
		}
		if err := r.handle.Write(r.samples[:count], n); err != nil {
			r.res.Fail(fmt.Errorf("failed to encode audio: %w", err))
			return
		}

		r.res.Frames += int64(n)
		remaining -= int64(n)
		if remaining < 0 {
			remaining = 0
		}

		if throttle.Tick() {
			if r.cancel() {
				log.Printf("[encode %s] Stop requested", s.id)
				r.res.Stop()
				return
			}
			percent, left := transfer.Progress(total, remaining, opts.Clock().Sub(r.res.Started))
			if opts.Debug {
				log.Printf("[DEBUG] [encode %s] %d%% done, %ds left", s.id, percent, left)
			}
			opts.Observer.OnProgress(percent, left)
		}
	}

	opts.Observer.OnProgress(100, 0)
	r.res.Complete()
}

// cleanup releases everything open, in order, exactly once. A failed drain
// or close becomes the Result warning and never changes the outcome.
func (r *run) cleanup() {
	s := r.session

	if r.handle != nil {
		if err := r.handle.Drain(); err != nil {
			r.res.Warning = &transfer.SinkCloseWarning{Err: err}
		}
		r.handle.Destroy()
		r.handle = nil
	}
	if r.comments != nil {
		r.comments.Destroy()
		r.comments = nil
	}
	if r.out != nil {
		if err := r.out.Close(); err != nil && r.res.Warning == nil {
			r.res.Warning = &transfer.SinkCloseWarning{Err: err}
		}
		r.out = nil
	}
	r.window = nil
	r.samples = nil

	if s.opts.Debug {
		log.Printf("[DEBUG] [encode %s] Released encoder resources", s.id)
	}
}
