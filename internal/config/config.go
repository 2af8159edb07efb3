// ABOUTME: Application settings loaded through viper
// ABOUTME: Defaults, optional YAML file, RESONATE_* environment and bound flags
package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

const (
	// ConfigName is the config file base name searched for without --config
	ConfigName = "resonate-codec"
	// EnvPrefix prefixes environment overrides, e.g. RESONATE_ENCODE_MODE
	EnvPrefix = "RESONATE"
)

// Settings holds every configurable value
type Settings struct {
	Encode struct {
		Mode             string
		BitrateIndex     int `mapstructure:"bitrate_index"`
		Complexity       int
		ProgressInterval int               `mapstructure:"progress_interval"`
		Tags             map[string]string // extra comment tags written after ENCODER
	}

	Decode struct {
		BufferMs   int    `mapstructure:"buffer_ms"`
		ByteOrder  string `mapstructure:"byte_order"`
		SampleRate int    `mapstructure:"sample_rate"` // 0 keeps the stream rate
	}

	// Raw describes headerless PCM input files
	Raw struct {
		SampleRate int    `mapstructure:"sample_rate"`
		Channels   int
		BitDepth   int    `mapstructure:"bit_depth"`
		ByteOrder  string `mapstructure:"byte_order"`
	}

	Log struct {
		File  string
		Debug bool
	}

	Feed struct {
		Addr string
	}

	Metrics struct {
		Addr string
	}

	UI struct {
		Enabled bool
	}

	Play struct {
		Volume int
	}
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	defaults := encode.DefaultSettings()
	v.SetDefault("encode.mode", defaults.Mode.String())
	v.SetDefault("encode.bitrate_index", defaults.BitrateIndex)
	v.SetDefault("encode.complexity", defaults.Complexity)
	v.SetDefault("encode.progress_interval", transfer.DefaultInterval)
	v.SetDefault("encode.tags", map[string]string{})

	v.SetDefault("decode.buffer_ms", decode.DefaultBufferMs)
	v.SetDefault("decode.byte_order", "big")
	v.SetDefault("decode.sample_rate", decode.DefaultTargetRate)

	v.SetDefault("raw.sample_rate", 44100)
	v.SetDefault("raw.channels", 2)
	v.SetDefault("raw.bit_depth", 16)
	v.SetDefault("raw.byte_order", "little")

	v.SetDefault("log.file", "")
	v.SetDefault("log.debug", false)
	v.SetDefault("feed.addr", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("ui.enabled", false)
	v.SetDefault("play.volume", 100)
}

// Load reads settings into v from defaults, the config file and the
// environment, in increasing priority. Flags bound to v before Load win
// over all of them. An explicit configFile must exist; the default
// search locations are optional.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	SetDefaults(v)

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		for _, path := range searchPaths() {
			v.AddConfigPath(path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func searchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigName))
	}
	return paths
}

// Validate reports the first invalid value as a ConfigurationError
func (s *Settings) Validate() error {
	if _, err := s.EncodeSettings(); err != nil {
		return err
	}
	if s.Encode.ProgressInterval <= 0 {
		return transfer.Configf("encode.progress_interval", s.Encode.ProgressInterval, "must be positive")
	}
	if s.Decode.BufferMs <= 0 {
		return transfer.Configf("decode.buffer_ms", s.Decode.BufferMs, "must be positive")
	}
	if _, err := audio.ParseOrder(s.Decode.ByteOrder); err != nil {
		return err
	}
	if s.Decode.SampleRate < 0 {
		return transfer.Configf("decode.sample_rate", s.Decode.SampleRate, "must not be negative")
	}
	if _, err := s.RawFormat(); err != nil {
		return err
	}
	if s.Play.Volume < 0 || s.Play.Volume > 100 {
		return transfer.Configf("play.volume", s.Play.Volume, "must be between 0 and 100")
	}
	return nil
}

// EncodeSettings converts the encode section
func (s *Settings) EncodeSettings() (encode.Settings, error) {
	mode, err := encode.ParseMode(s.Encode.Mode)
	if err != nil {
		return encode.Settings{}, err
	}
	es := encode.Settings{
		Mode:         mode,
		BitrateIndex: s.Encode.BitrateIndex,
		Complexity:   s.Encode.Complexity,
	}
	if err := es.Validate(); err != nil {
		return encode.Settings{}, err
	}
	return es, nil
}

// EncodeTags returns the extra comment tags sorted by name
func (s *Settings) EncodeTags() []encode.Tag {
	names := make([]string, 0, len(s.Encode.Tags))
	for name := range s.Encode.Tags {
		names = append(names, name)
	}
	sort.Strings(names)

	tags := make([]encode.Tag, 0, len(names))
	for _, name := range names {
		tags = append(tags, encode.Tag{Name: strings.ToUpper(name), Value: s.Encode.Tags[name]})
	}
	return tags
}

// TargetOrder is the byte order decode sessions deliver
func (s *Settings) TargetOrder() binary.ByteOrder {
	order, err := audio.ParseOrder(s.Decode.ByteOrder)
	if err != nil {
		return audio.DefaultOrder
	}
	return order
}

// TargetRate is the sample rate decode sessions deliver
func (s *Settings) TargetRate() int {
	if s.Decode.SampleRate == 0 {
		return decode.NativeRate
	}
	return s.Decode.SampleRate
}

// RawFormat describes headerless PCM input
func (s *Settings) RawFormat() (audio.PCMFormat, error) {
	order, err := audio.ParseOrder(s.Raw.ByteOrder)
	if err != nil {
		return audio.PCMFormat{}, err
	}
	format := audio.PCMFormat{
		SampleRate: s.Raw.SampleRate,
		Channels:   s.Raw.Channels,
		BitDepth:   s.Raw.BitDepth,
		Order:      order,
	}
	if err := format.Validate(); err != nil {
		return audio.PCMFormat{}, err
	}
	return format, nil
}
