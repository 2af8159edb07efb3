// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines PCMFormat and byte order helpers used by every session
// Package audio provides the PCM format description shared by the codec adapters.
//
// This package defines:
//   - PCMFormat: sample rate, channel count, bit depth and byte order of interleaved PCM
//   - byte order helpers (IsBigEndian, ParseOrder, SameOrder)
//
// Sub-packages hold the moving parts:
//   - ringbuf: fixed capacity single-producer/single-consumer byte buffer
//   - normalize: stateless 8/16/24/32-bit to 16-bit conversion
//   - pcm: PCM sources (WAV, raw) feeding the encoder and a WAV writer
//   - decode: decode sessions over compressed streams (Vorbis, Opus, MP3, FLAC)
//   - encode: encode sessions writing Ogg Opus
//   - resample: linear sample rate conversion
//   - output: playback devices
//
// Example:
//
//	format := audio.PCMFormat{
//	    SampleRate: 44100,
//	    Channels:   2,
//	    BitDepth:   24,
//	    Order:      binary.LittleEndian,
//	}
//	if err := format.Validate(); err != nil {
//	    return err
//	}
//	frameBytes := format.BytesPerFrame() // 6
package audio
