// ABOUTME: Stream inspection for the probe command
// ABOUTME: Reports format, length and seekability without decoding audio
package app

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/decode"
)

// ProbeInfo describes a compressed or PCM file
type ProbeInfo struct {
	Path        string   `yaml:"path"`
	Container   string   `yaml:"container"`
	SampleRate  int      `yaml:"sample_rate"`
	Channels    int      `yaml:"channels"`
	TotalFrames int64    `yaml:"total_frames"`
	Duration    string   `yaml:"duration,omitempty"`
	Seekable    bool     `yaml:"seekable"`
	Tags        []string `yaml:"tags,omitempty"`
}

// tagged is implemented by streams that carry comment headers
type tagged interface {
	Tags() []string
}

// Probe opens path and reports what a decode session would see
func Probe(path string) (ProbeInfo, error) {
	stream, err := decode.Open(path)
	if err != nil {
		return ProbeInfo{}, err
	}
	defer stream.Close()

	info := ProbeInfo{
		Path:        path,
		Container:   strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		SampleRate:  stream.SampleRate(),
		Channels:    stream.Channels(),
		TotalFrames: stream.TotalFrames(),
		Seekable:    stream.Seekable(),
	}
	if info.TotalFrames >= 0 && info.SampleRate > 0 {
		d := time.Duration(info.TotalFrames) * time.Second / time.Duration(info.SampleRate)
		info.Duration = d.Round(time.Millisecond).String()
	}
	if t, ok := stream.(tagged); ok {
		info.Tags = t.Tags()
	}
	return info, nil
}
