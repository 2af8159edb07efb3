// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams 16-bit little-endian PCM through a pipe with software volume
package output

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/normalize"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
	"github.com/ebitengine/oto/v3"
)

// drainPoll is how often Close checks whether the device finished playing
const drainPoll = 10 * time.Millisecond

// Oto plays PCM through ebitengine/oto. A single context is created per
// process, so a second Open with a different format is rejected.
type Oto struct {
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.PCMFormat
	samples    []int16
	out        []byte
	volume     int
	muted      bool
	ready      bool
}

// NewOto creates a new Oto output at full volume
func NewOto() *Oto {
	ctx, cancel := context.WithCancel(context.Background())

	return &Oto{
		ctx:    ctx,
		cancel: cancel,
		volume: 100,
	}
}

// Open initializes the output device
func (o *Oto) Open(format audio.PCMFormat) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if o.format.SampleRate == format.SampleRate && o.format.Channels == format.Channels {
			log.Printf("Audio output already initialized with same format, reusing context")
			return nil
		}
		return transfer.Configf("format", format,
			"oto cannot reinitialize from %dHz %dch", o.format.SampleRate, o.format.Channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.format = format

	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()

	o.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels", format.SampleRate, format.Channels)

	return nil
}

// Write applies the volume and hands p to the device. p must hold whole
// 16-bit samples.
func (o *Oto) Write(p []byte) (int, error) {
	o.mu.Lock()
	if !o.ready {
		o.mu.Unlock()
		return 0, fmt.Errorf("output not initialized")
	}
	if len(p)%2 != 0 {
		o.mu.Unlock()
		return 0, fmt.Errorf("partial sample: %d bytes", len(p))
	}

	out := o.scale(p)
	w := o.pipeWriter
	o.mu.Unlock()

	if _, err := w.Write(out); err != nil {
		return 0, fmt.Errorf("pipe write failed: %w", err)
	}
	return len(p), nil
}

// scale returns p with the current volume applied, reusing scratch buffers
func (o *Oto) scale(p []byte) []byte {
	if o.volume == 100 && !o.muted {
		return p
	}

	n := len(p) / 2
	if cap(o.samples) < n {
		o.samples = make([]int16, n)
		o.out = make([]byte, n*2)
	}
	samples := o.samples[:n]
	normalize.ToInt16(samples, p, audio.CanonicalBitDepth, binary.LittleEndian)
	applyVolume(samples, o.volume, o.muted)
	normalize.Int16ToBytes(o.out, samples, binary.LittleEndian)
	return o.out[:n*2]
}

// Close waits for queued audio to finish and releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		for o.player.IsPlaying() && o.ctx.Err() == nil {
			time.Sleep(drainPoll)
		}
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: failed to close player: %v", err)
		}
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: failed to suspend audio context: %v", err)
		}
	}
	o.ready = false
	o.cancel()
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = clampVolume(volume)
	log.Printf("Volume set to %d", o.volume)
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.muted = muted
	log.Printf("Muted: %v", muted)
}

// Volume returns current volume
func (o *Oto) Volume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// IsMuted returns mute state
func (o *Oto) IsMuted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// checkFormat accepts only what oto plays natively
func checkFormat(format audio.PCMFormat) error {
	if err := format.Validate(); err != nil {
		return err
	}
	if format.BitDepth != audio.CanonicalBitDepth {
		return transfer.Configf("bit depth", format.BitDepth, "oto output needs 16-bit samples")
	}
	if audio.IsBigEndian(format.ByteOrder()) {
		return transfer.Configf("byte order", audio.OrderName(format.ByteOrder()),
			"oto output needs little-endian samples")
	}
	return nil
}

func clampVolume(volume int) int {
	if volume < 0 {
		return 0
	}
	if volume > 100 {
		return 100
	}
	return volume
}

// applyVolume scales samples in place
func applyVolume(samples []int16, volume int, muted bool) {
	multiplier := getVolumeMultiplier(volume, muted)
	for i, sample := range samples {
		samples[i] = int16(float64(sample) * multiplier)
	}
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
