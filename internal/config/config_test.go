// ABOUTME: Tests for settings loading and validation
// ABOUTME: Covers defaults, YAML files, environment overrides and bad values
package config

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load(viper.New(), "")
	require.NoError(t, err)

	es, err := s.EncodeSettings()
	require.NoError(t, err)
	assert.Equal(t, encode.DefaultSettings(), es)
	assert.Equal(t, transfer.DefaultInterval, s.Encode.ProgressInterval)
	assert.Equal(t, 250, s.Decode.BufferMs)
	assert.Equal(t, binary.BigEndian, s.TargetOrder())
	assert.Equal(t, 48000, s.TargetRate())
	assert.False(t, s.UI.Enabled)
	assert.Equal(t, 100, s.Play.Volume)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
encode:
  mode: cbr
  bitrate_index: 7
  complexity: 5
  tags:
    artist: Someone
    title: Something
decode:
  buffer_ms: 500
  byte_order: little
log:
  debug: true
feed:
  addr: 127.0.0.1:8930
`)

	s, err := Load(viper.New(), path)
	require.NoError(t, err)

	es, err := s.EncodeSettings()
	require.NoError(t, err)
	assert.Equal(t, encode.HardCBR, es.Mode)
	assert.Equal(t, 192000, es.Bitrate())
	assert.Equal(t, 5, es.Complexity)
	assert.Equal(t, 500, s.Decode.BufferMs)
	assert.Equal(t, binary.LittleEndian, s.TargetOrder())
	assert.True(t, s.Log.Debug)
	assert.Equal(t, "127.0.0.1:8930", s.Feed.Addr)
	assert.Equal(t, []encode.Tag{{Name: "ARTIST", Value: "Someone"}, {Name: "TITLE", Value: "Something"}}, s.EncodeTags())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "encode:\n  complexity: 5\n")
	t.Setenv("RESONATE_ENCODE_COMPLEXITY", "2")

	s, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Encode.Complexity)
}

func TestFlagOverridesEverything(t *testing.T) {
	t.Setenv("RESONATE_ENCODE_COMPLEXITY", "2")

	v := viper.New()
	v.Set("encode.complexity", 9)
	s, err := Load(v, writeConfig(t, "encode:\n  complexity: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 9, s.Encode.Complexity)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"mode", "encode:\n  mode: abr\n"},
		{"bitrate index", "encode:\n  bitrate_index: 12\n"},
		{"complexity", "encode:\n  complexity: 11\n"},
		{"progress interval", "encode:\n  progress_interval: 0\n"},
		{"buffer", "decode:\n  buffer_ms: 0\n"},
		{"byte order", "decode:\n  byte_order: middle\n"},
		{"sample rate", "decode:\n  sample_rate: -44100\n"},
		{"raw bit depth", "raw:\n  bit_depth: 12\n"},
		{"volume", "play:\n  volume: 101\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(viper.New(), writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, transfer.IsConfiguration(err), "got %v", err)
		})
	}
}

func TestTargetRateZeroKeepsSource(t *testing.T) {
	s, err := Load(viper.New(), writeConfig(t, "decode:\n  sample_rate: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, decode.NativeRate, s.TargetRate())
}

func TestRawFormat(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load(viper.New(), "")
	require.NoError(t, err)

	format, err := s.RawFormat()
	require.NoError(t, err)
	assert.Equal(t, 44100, format.SampleRate)
	assert.Equal(t, 2, format.Channels)
	assert.Equal(t, 16, format.BitDepth)
	assert.Equal(t, binary.LittleEndian, format.Order)
}
