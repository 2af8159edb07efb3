// ABOUTME: Codec library contract used by encode sessions
// ABOUTME: Comments, encoder handles and the output sinks they write to
package encode

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnsupportedSetting is returned by Handle.Control for settings the
// codec does not have. Sessions log it and carry on.
var ErrUnsupportedSetting = errors.New("setting not supported by codec")

// Library creates comment sets and encoder handles
type Library interface {
	// Name identifies the codec in logs
	Name() string

	CreateComments() (Comments, error)

	// CreateEncoder starts a stream written to w. family is the channel
	// mapping family: 0 for mono and stereo, 1 for more channels.
	CreateEncoder(w io.Writer, c Comments, sampleRate, channels, family int) (Handle, error)
}

// Handle is one open encoder stream
type Handle interface {
	Control(s Setting, value int) error

	// Write encodes frames interleaved frames from pcm
	Write(pcm []int16, frames int) error

	// Drain flushes buffered audio and finishes the container
	Drain() error

	// Destroy releases the handle; it is called exactly once
	Destroy()
}

// Comments is a set of tag=value metadata entries
type Comments interface {
	Add(tag, value string)

	// Destroy releases the comments; it is called exactly once
	Destroy()
}

// Tag is one metadata entry
type Tag struct {
	Name  string
	Value string
}

// Sink opens the destination of an encoded stream
type Sink interface {
	Open() (io.WriteCloser, error)
}

// FileSink creates (or truncates) a file at the path
type FileSink string

// Open creates the file
func (p FileSink) Open() (io.WriteCloser, error) {
	f, err := os.Create(string(p))
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// WriterSink sends the stream to an existing writer. Close is forwarded
// when the writer is also an io.Closer.
func WriterSink(w io.Writer) Sink {
	return writerSink{w}
}

type writerSink struct {
	w io.Writer
}

func (s writerSink) Open() (io.WriteCloser, error) {
	if wc, ok := s.w.(io.WriteCloser); ok {
		return wc, nil
	}
	return nopCloser{s.w}, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
