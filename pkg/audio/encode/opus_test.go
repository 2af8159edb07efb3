// ABOUTME: Tests for the Ogg Opus codec library
// ABOUTME: Encodes real audio with libopus and decodes it back through the decode package
package encode

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-codec/internal/ogg"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/pcm"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sineSource returns a 440 Hz little-endian 16-bit tone
func sineSource(t *testing.T, rate, channels, frames int) pcm.Source {
	t.Helper()
	format := audio.PCMFormat{SampleRate: rate, Channels: channels, BitDepth: 16, Order: binary.LittleEndian}
	data := make([]byte, frames*format.BytesPerFrame())
	for i := 0; i < frames; i++ {
		v := int16(10000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(data[(i*channels+ch)*2:], uint16(v))
		}
	}
	src, err := pcm.NewRaw(bytes.NewReader(data), format, int64(frames))
	require.NoError(t, err)
	return src
}

func encodeOpus(t *testing.T, src pcm.Source, tags ...Tag) []byte {
	t.Helper()
	return encodeOpusWith(t, Settings{Mode: ConstrainedVBR, BitrateIndex: 3, Complexity: 5}, src, tags...)
}

func encodeOpusWith(t *testing.T, settings Settings, src pcm.Source, tags ...Tag) []byte {
	t.Helper()
	sess, err := NewSession(Options{
		Settings: settings,
		Library:  NewOggOpus(),
		Tags:     tags,
	})
	require.NoError(t, err)

	var out bytes.Buffer
	result := sess.Run(context.Background(), src, WriterSink(&out))
	require.Equal(t, transfer.Completed, result.Outcome, "err: %v", result.Err)
	require.Nil(t, result.Warning)
	return out.Bytes()
}

func TestOggOpusRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		rate     int
		channels int
		frames   int
		// decoded length at 48 kHz
		want int64
	}{
		{"48k stereo", 48000, 2, 48000, 48000},
		{"48k mono partial frame", 48000, 1, 1000, 1000},
		{"24k stereo", 24000, 2, 12000, 24000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeOpus(t, sineSource(t, tt.rate, tt.channels, tt.frames), Tag{"TITLE", "Sine"})

			stream, err := decode.OpenOpus(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.channels, stream.Channels())
			assert.Equal(t, 48000, stream.SampleRate())
			assert.Equal(t, tt.want, stream.TotalFrames())
			assert.Contains(t, stream.Tags(), "TITLE=Sine")
			assert.Contains(t, stream.Tags(), "ENCODER=resonate-codec")

			sess, err := decode.NewSession(stream, decode.Options{TargetOrder: binary.LittleEndian})
			require.NoError(t, err)
			defer sess.Close()

			decoded, err := io.ReadAll(sess)
			require.NoError(t, err)
			assert.Equal(t, tt.want, int64(len(decoded)/(2*tt.channels)))
		})
	}
}

func TestOggOpusResamplesUnsupportedRate(t *testing.T) {
	data := encodeOpus(t, sineSource(t, 44100, 2, 44100))

	r := ogg.NewReader(bytes.NewReader(data))
	p, err := r.NextPacket()
	require.NoError(t, err)
	head, err := ogg.ParseOpusHead(p.Data)
	require.NoError(t, err)
	assert.Equal(t, 44100, head.InputRate)
	assert.Equal(t, opusPreSkip, head.PreSkip)

	stream, err := decode.OpenOpus(bytes.NewReader(data))
	require.NoError(t, err)
	assert.InDelta(t, 48000, stream.TotalFrames(), 2)
}

func TestOggOpusSeek(t *testing.T) {
	data := encodeOpus(t, sineSource(t, 48000, 1, 9600))

	stream, err := decode.OpenOpus(bytes.NewReader(data))
	require.NoError(t, err)
	sess, err := decode.NewSession(stream, decode.Options{})
	require.NoError(t, err)
	defer sess.Close()

	require.True(t, sess.Seekable())
	assert.Equal(t, int64(4800), sess.Seek(4800))

	rest, err := io.ReadAll(sess)
	require.NoError(t, err)
	assert.Equal(t, 4800, len(rest)/2)
}

func TestOggOpusLastPageIsEndOfStream(t *testing.T) {
	data := encodeOpus(t, sineSource(t, 48000, 2, 2000))

	r := ogg.NewReader(bytes.NewReader(data))
	var last ogg.Packet
	for {
		p, err := r.NextPacket()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		last = p
	}
	assert.True(t, last.EOS)
	assert.Equal(t, int64(opusPreSkip+2000), last.Granule)
}

func TestOggOpusRejectsMultichannel(t *testing.T) {
	_, err := NewOggOpus().CreateEncoder(io.Discard, &opusComments{}, 48000, 6, 1)
	assert.True(t, transfer.IsConfiguration(err))
}

func TestOggOpusEmptyInput(t *testing.T) {
	data := encodeOpus(t, sineSource(t, 48000, 2, 0))

	stream, err := decode.OpenOpus(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(0), stream.TotalFrames())
}

// toneThenSilence returns half a second of 997 Hz tone followed by half a
// second of silence, 48 kHz mono
func toneThenSilence(t *testing.T) pcm.Source {
	t.Helper()
	format := audio.PCMFormat{SampleRate: 48000, Channels: 1, BitDepth: 16, Order: binary.LittleEndian}
	data := make([]byte, 48000*2)
	for i := 0; i < 24000; i++ {
		v := int16(12000 * math.Sin(2*math.Pi*997*float64(i)/48000))
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	src, err := pcm.NewRaw(bytes.NewReader(data), format, 48000)
	require.NoError(t, err)
	return src
}

// audioPacketSizes returns the sizes of every packet after OpusHead and OpusTags
func audioPacketSizes(t *testing.T, data []byte) []int {
	t.Helper()
	r := ogg.NewReader(bytes.NewReader(data))
	var sizes []int
	for i := 0; ; i++ {
		p, err := r.NextPacket()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if i >= 2 {
			sizes = append(sizes, len(p.Data))
		}
	}
	require.NotEmpty(t, sizes)
	return sizes
}

func TestOggOpusModes(t *testing.T) {
	t.Run("hard cbr", func(t *testing.T) {
		data := encodeOpusWith(t, Settings{Mode: HardCBR, BitrateIndex: 1, Complexity: 5}, toneThenSilence(t))
		for i, n := range audioPacketSizes(t, data) {
			// 64 kbps over 20ms
			assert.Equal(t, 160, n, "packet %d", i)
		}
	})

	t.Run("vbr", func(t *testing.T) {
		data := encodeOpusWith(t, Settings{Mode: VBR, BitrateIndex: 1, Complexity: 5}, toneThenSilence(t))
		sizes := audioPacketSizes(t, data)
		assert.Less(t, sizes[len(sizes)-1], sizes[10])
	})
}

func TestOggOpusAppliesModeControls(t *testing.T) {
	tests := []struct {
		mode        Mode
		vbr         bool
		constrained bool
	}{
		{VBR, true, false},
		{ConstrainedVBR, true, true},
		{HardCBR, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			handle, err := NewOggOpus().CreateEncoder(io.Discard, &opusComments{}, 48000, 2, 0)
			require.NoError(t, err)
			defer handle.Destroy()

			settings := Settings{Mode: tt.mode, BitrateIndex: 0, Complexity: 4}
			for _, c := range settings.Controls() {
				require.NoError(t, handle.Control(c.Setting, c.Value), "%s", c.Setting)
			}

			enc := handle.(*opusHandle).enc
			vbr, err := enc.VBR()
			require.NoError(t, err)
			assert.Equal(t, tt.vbr, vbr)
			constrained, err := enc.VBRConstraint()
			require.NoError(t, err)
			assert.Equal(t, tt.constrained, constrained)
			bitrate, err := enc.Bitrate()
			require.NoError(t, err)
			assert.Equal(t, 48000, bitrate)
			complexity, err := enc.Complexity()
			require.NoError(t, err)
			assert.Equal(t, 4, complexity)
		})
	}
}
