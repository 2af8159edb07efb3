// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for PCM playback backends
package output

import (
	"io"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
)

// Output represents an audio output device fed with interleaved PCM bytes
type Output interface {
	// Open initializes the device for format
	Open(format audio.PCMFormat) error

	// Write queues PCM bytes (blocks until accepted)
	io.Writer

	// Close waits for queued audio to play and releases the device
	Close() error
}
