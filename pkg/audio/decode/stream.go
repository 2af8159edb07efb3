// ABOUTME: Compressed stream contract consumed by decode sessions
// ABOUTME: Also picks a stream implementation from a file extension
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/pcm"
)

// Stream is a compressed audio source decoded to 16-bit interleaved frames
type Stream interface {
	Channels() int
	SampleRate() int

	// TotalFrames returns the stream length in frames, or -1 when unknown
	TotalFrames() int64

	Seekable() bool
	Seek(frame int64) error

	// Read decodes up to maxFrames whole frames into dst and returns the
	// frame count and the logical section they came from. Zero frames (or
	// io.EOF) means end of stream; any other error is fatal.
	Read(dst []byte, maxFrames int) (frames int, section int, err error)

	// Order is the byte order of the samples Read produces
	Order() binary.ByteOrder

	Close() error
}

// ErrNotSeekable is returned by Seek on streams without random access
var ErrNotSeekable = errors.New("stream is not seekable")

// Open opens a file and picks a stream by extension
func Open(path string) (Stream, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var open func(f *os.File) (Stream, error)
	switch ext {
	case ".ogg", ".oga":
		open = func(f *os.File) (Stream, error) { return OpenVorbis(f) }
	case ".opus":
		open = func(f *os.File) (Stream, error) { return OpenOpus(f) }
	case ".mp3":
		open = func(f *os.File) (Stream, error) { return OpenMP3(f) }
	case ".flac":
		open = func(f *os.File) (Stream, error) { return OpenFLAC(f) }
	case ".wav":
		src, err := pcm.OpenFile(path, audio.PCMFormat{})
		if err != nil {
			return nil, err
		}
		stream, err := NewPCM(src)
		if err != nil {
			src.Close()
			return nil, err
		}
		return stream, nil
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .ogg, .oga, .opus, .mp3, .flac, .wav)", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	stream, err := open(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return stream, nil
}

