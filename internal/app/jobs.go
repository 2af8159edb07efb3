// ABOUTME: Encode, decode, play and probe jobs
// ABOUTME: Open files, build sessions from settings and wire observers
package app

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/resonate-codec/internal/player"
	"github.com/Resonate-Protocol/resonate-codec/internal/ui"
	"github.com/Resonate-Protocol/resonate-codec/internal/version"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/pcm"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// libraryFor picks the encoder library from the output extension
func libraryFor(path string) (encode.Library, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".opus", ".ogg", ".oga":
		return encode.NewOggOpus(), nil
	case ".wav":
		return encode.NewWAV(), nil
	default:
		return nil, transfer.Configf("output format", ext, "supported: .opus, .ogg, .oga, .wav")
	}
}

// Encode compresses the PCM file input (WAV or raw) into output
func (a *App) Encode(ctx context.Context, input, out string) (transfer.Result, error) {
	settings, err := a.settings.EncodeSettings()
	if err != nil {
		return transfer.Result{}, err
	}
	lib, err := libraryFor(out)
	if err != nil {
		return transfer.Result{}, err
	}
	raw, err := a.settings.RawFormat()
	if err != nil {
		return transfer.Result{}, err
	}

	src, err := pcm.OpenFile(input, raw)
	if err != nil {
		return transfer.Result{}, err
	}
	defer src.Close()

	stop := &transfer.StopFlag{}
	observers := &transfer.Observers{}
	sess, err := encode.NewSession(encode.Options{
		Settings:         settings,
		Library:          lib,
		Observer:         observers,
		Canceller:        stop.Requested,
		ProgressInterval: a.settings.Encode.ProgressInterval,
		EncoderTag:       version.EncoderTag(),
		Tags:             a.settings.EncodeTags(),
		Debug:            a.settings.Log.Debug,
	})
	if err != nil {
		return transfer.Result{}, err
	}
	a.attach(observers, "encode", sess.ID())

	log.Printf("[encode %s] %s -> %s (%s %d kbps, complexity %d)",
		sess.ID(), input, out, settings.Mode, settings.Bitrate()/1000, settings.Complexity)

	job := ui.Job{Action: "Encoding", Source: input, Target: out, Format: src.Format()}
	res := a.run("encode", job, nil, observers, stop, func() transfer.Result {
		return sess.Run(ctx, src, encode.FileSink(out))
	})
	return res, resultError(res)
}

// openSession opens a compressed file and positions it at start seconds
func (a *App) openSession(input string, order binary.ByteOrder, start float64) (*decode.Session, error) {
	stream, err := decode.Open(input)
	if err != nil {
		return nil, err
	}

	sess, err := decode.NewSession(stream, decode.Options{
		TargetOrder: order,
		TargetRate:  a.settings.TargetRate(),
		BufferMs:    a.settings.Decode.BufferMs,
		OnFill:      a.metrics.ObserveFill,
		Debug:       a.settings.Log.Debug,
	})
	if err != nil {
		stream.Close()
		return nil, err
	}

	if start > 0 {
		frame := int64(start * float64(sess.SourceRate()))
		if got := sess.Seek(frame); got != frame {
			log.Printf("[decode %s] Warning: starting at frame %d instead of %d", sess.ID(), got, frame)
		}
	}
	return sess, nil
}

// Decode expands input into out: a 16-bit WAV file for .wav, otherwise
// raw PCM in the configured byte order
func (a *App) Decode(ctx context.Context, input, out string, start float64) (transfer.Result, error) {
	wavOut := strings.EqualFold(filepath.Ext(out), ".wav")
	order := a.settings.TargetOrder()
	if wavOut {
		order = binary.LittleEndian
	}

	sess, err := a.openSession(input, order, start)
	if err != nil {
		return transfer.Result{}, err
	}
	defer sess.Close()

	f, err := os.Create(out)
	if err != nil {
		return transfer.Result{}, fmt.Errorf("failed to create output: %w", err)
	}

	var w io.Writer = f
	var wavWriter *pcm.WAVWriter
	if wavOut {
		wavWriter, err = pcm.NewWAVWriter(f, sess.Format())
		if err != nil {
			f.Close()
			return transfer.Result{}, err
		}
		w = wavWriter
	}

	stop := &transfer.StopFlag{}
	observers := &transfer.Observers{}
	a.attach(observers, "decode", sess.ID())

	job := ui.Job{Action: "Decoding", Source: input, Target: out, Format: sess.Format()}
	res := a.run("decode", job, nil, observers, stop, func() transfer.Result {
		return player.Pump(ctx, sess, w, player.Options{
			Observer:         observers,
			Canceller:        stop.Requested,
			ProgressInterval: a.settings.Encode.ProgressInterval,
			Debug:            a.settings.Log.Debug,
		})
	})

	if wavWriter != nil {
		if err := wavWriter.Close(); err != nil && res.Warning == nil {
			res.Warning = &transfer.SinkCloseWarning{Err: err}
		}
	}
	if err := f.Close(); err != nil && res.Warning == nil {
		res.Warning = &transfer.SinkCloseWarning{Err: err}
	}
	if res.Warning != nil {
		log.Printf("[decode %s] Warning: %v", sess.ID(), res.Warning)
	}
	return res, resultError(res)
}

// Play decodes input to the default audio device
func (a *App) Play(ctx context.Context, input string, start float64) (transfer.Result, error) {
	sess, err := a.openSession(input, binary.LittleEndian, start)
	if err != nil {
		return transfer.Result{}, err
	}
	defer sess.Close()

	out := output.NewOto()
	out.SetVolume(a.settings.Play.Volume)

	stop := &transfer.StopFlag{}
	observers := &transfer.Observers{}
	a.attach(observers, "play", sess.ID())

	job := ui.Job{Action: "Playing", Source: input, Format: sess.Format()}
	res := a.run("play", job, out, observers, stop, func() transfer.Result {
		return player.Play(ctx, sess, out, player.Options{
			Observer:         observers,
			Canceller:        stop.Requested,
			ProgressInterval: a.settings.Encode.ProgressInterval,
			Debug:            a.settings.Log.Debug,
		})
	})
	return res, resultError(res)
}
