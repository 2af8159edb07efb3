// ABOUTME: WAV file source and writer built on go-audio/wav
// ABOUTME: Reads any PCM WAV as little-endian frames and writes 16-bit WAV
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag
const wavFormatPCM = 1

// ErrNotWAV is returned when the input has no valid RIFF/WAVE header
var ErrNotWAV = errors.New("input is not a valid WAV audio file")

// WAV reads integer PCM from a WAV file
type WAV struct {
	dec    *wav.Decoder
	format audio.PCMFormat
	total  int64
	buf    *goaudio.IntBuffer
	// carry holds samples of a frame split across decoder reads
	carry  []int
	closer io.Closer
}

// OpenWAV parses the header of rs and positions it at the first sample
func OpenWAV(rs io.ReadSeeker) (*WAV, error) {
	dec := wav.NewDecoder(rs)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, transfer.Configf("wav format tag", dec.WavAudioFormat, "only integer PCM is supported")
	}

	format := audio.PCMFormat{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Order:      binary.LittleEndian,
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find wav data chunk: %w", err)
	}

	return &WAV{
		dec:    dec,
		format: format,
		total:  dec.PCMLen() / int64(format.BytesPerFrame()),
	}, nil
}

// Format returns the file's format; samples are always little-endian
func (s *WAV) Format() audio.PCMFormat { return s.format }

// TotalFrames returns the frame count from the data chunk size
func (s *WAV) TotalFrames() int64 { return s.total }

// ReadAudio decodes up to frames whole frames into buf
func (s *WAV) ReadAudio(buf []byte, frames int) (int, error) {
	bpf := s.format.BytesPerFrame()
	if frames > len(buf)/bpf {
		frames = len(buf) / bpf
	}
	if frames <= 0 {
		return 0, nil
	}

	ch := s.format.Channels
	samples := frames * ch
	if s.buf == nil || cap(s.buf.Data) < samples {
		s.buf = &goaudio.IntBuffer{
			Data: make([]int, samples),
			Format: &goaudio.Format{
				NumChannels: ch,
				SampleRate:  s.format.SampleRate,
			},
		}
	}
	data := s.buf.Data[:samples]

	// PCMBuffer performs a single read, so keep reading until the
	// request is whole or the data chunk ends
	filled := copy(data, s.carry)
	s.carry = s.carry[:0]
	for filled < samples {
		s.buf.Data = data[filled:]
		n, err := s.dec.PCMBuffer(s.buf)
		if err != nil && !errors.Is(err, io.EOF) {
			s.buf.Data = data
			return 0, fmt.Errorf("failed to read wav samples: %w", err)
		}
		if n <= 0 {
			break
		}
		filled += n
	}
	s.buf.Data = data

	got := filled / ch
	s.carry = append(s.carry, data[got*ch:filled]...)

	width := s.format.BytesPerSample()
	for i, v := range data[:got*ch] {
		putLE(buf[i*width:], v, s.format.BitDepth)
	}
	return got, nil
}

// Close closes the file the source was opened from, if any
func (s *WAV) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// putLE stores one go-audio sample as little-endian bytes. WAV stores 8-bit
// samples unsigned; they are recentred to signed here.
func putLE(dst []byte, v int, bitDepth int) {
	switch bitDepth {
	case 8:
		dst[0] = byte(int8(v - 128))
	case 16:
		binary.LittleEndian.PutUint16(dst, uint16(int16(v)))
	case 24:
		dst[0] = byte(v)
		dst[1] = byte(v >> 8)
		dst[2] = byte(v >> 16)
	case 32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(v)))
	}
}

// WAVWriter writes 16-bit PCM bytes to a WAV file
type WAVWriter struct {
	enc     *wav.Encoder
	format  audio.PCMFormat
	order   binary.ByteOrder
	pending []byte
	ints    []int
	frames  int64
}

// NewWAVWriter creates a 16-bit WAV writer. Bytes passed to Write are
// interpreted in format's byte order.
func NewWAVWriter(ws io.WriteSeeker, format audio.PCMFormat) (*WAVWriter, error) {
	format.BitDepth = audio.CanonicalBitDepth
	if err := format.Validate(); err != nil {
		return nil, err
	}

	return &WAVWriter{
		enc:    wav.NewEncoder(ws, format.SampleRate, audio.CanonicalBitDepth, format.Channels, wavFormatPCM),
		format: format,
		order:  format.ByteOrder(),
	}, nil
}

// Write converts whole samples from p and hands them to the encoder.
// An odd trailing byte is held until the next call.
func (w *WAVWriter) Write(p []byte) (int, error) {
	data := p
	if len(w.pending) > 0 {
		data = append(w.pending, p...)
		w.pending = nil
	}

	n := len(data) / 2
	if cap(w.ints) < n {
		w.ints = make([]int, n)
	}
	w.ints = w.ints[:n]
	for i := 0; i < n; i++ {
		w.ints[i] = int(int16(w.order.Uint16(data[i*2:])))
	}
	if rest := data[n*2:]; len(rest) > 0 {
		w.pending = append(w.pending, rest...)
	}
	if n == 0 {
		return len(p), nil
	}

	buf := &goaudio.IntBuffer{
		Data: w.ints,
		Format: &goaudio.Format{
			NumChannels: w.format.Channels,
			SampleRate:  w.format.SampleRate,
		},
		SourceBitDepth: audio.CanonicalBitDepth,
	}
	if err := w.enc.Write(buf); err != nil {
		return 0, fmt.Errorf("failed to write wav samples: %w", err)
	}
	w.frames += int64(n / w.format.Channels)
	return len(p), nil
}

// Frames returns the number of whole frames written so far
func (w *WAVWriter) Frames() int64 { return w.frames }

// Close finalizes the RIFF header sizes
func (w *WAVWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	return nil
}
