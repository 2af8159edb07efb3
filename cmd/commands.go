// ABOUTME: Subcommands: encode, decode, play, probe and version
// ABOUTME: Thin wrappers that hand files to the application jobs
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/resonate-codec/internal/app"
	"github.com/Resonate-Protocol/resonate-codec/internal/version"
	"github.com/Resonate-Protocol/resonate-codec/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

func report(res transfer.Result) {
	switch res.Outcome {
	case transfer.Completed:
		log.Printf("Done: %d frames in %v", res.Frames, res.Duration())
	case transfer.Stopped:
		log.Printf("Stopped after %d frames", res.Frames)
	}
}

func encodeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode <input.wav|input.pcm> <output.opus|output.wav>",
		Short: "Encode PCM audio to Ogg Opus (or WAV)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app.App) error {
				res, err := a.Encode(cmd.Context(), args[0], args[1])
				report(res)
				return err
			})
		},
	}

	flags := cmd.Flags()
	flags.String("mode", "vbr", "Rate control: vbr, cvbr or cbr")
	flags.Int("bitrate-index", 3, "Bitrate table index (0=48 kbps ... 11=256 kbps)")
	flags.Int("complexity", 10, "Encoder complexity 0-10")
	flags.Int("progress-interval", transfer.DefaultInterval, "Windows between progress and stop checks")
	flags.StringToString("tag", nil, "Extra comment tags, e.g. --tag artist=Someone")
	flags.Int("raw-rate", 44100, "Sample rate of headerless PCM input")
	flags.Int("raw-channels", 2, "Channel count of headerless PCM input")
	flags.Int("raw-bits", 16, "Bit depth of headerless PCM input (8, 16, 24, 32)")
	flags.String("raw-order", "little", "Byte order of headerless PCM input")
	return cmd
}

func decodeCommand(c *cli) *cobra.Command {
	var start float64

	cmd := &cobra.Command{
		Use:   "decode <input> <output.wav|output.pcm>",
		Short: "Decode Ogg Vorbis, Opus, MP3, FLAC or WAV to WAV or raw PCM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app.App) error {
				res, err := a.Decode(cmd.Context(), args[0], args[1], start)
				report(res)
				return err
			})
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&start, "start", 0, "Start position in seconds")
	flags.Int("buffer-ms", 250, "Ring buffer length in milliseconds")
	flags.String("byte-order", "big", "Byte order of raw PCM output (big or little)")
	flags.Int("rate", decode.DefaultTargetRate, "Output sample rate in Hz, 0 keeps the source rate")
	flags.Int("progress-interval", transfer.DefaultInterval, "Chunks between progress and stop checks")
	return cmd
}

func playCommand(c *cli) *cobra.Command {
	var start float64

	cmd := &cobra.Command{
		Use:   "play <input>",
		Short: "Play a compressed file on the default audio device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app.App) error {
				res, err := a.Play(cmd.Context(), args[0], start)
				report(res)
				return err
			})
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&start, "start", 0, "Start position in seconds")
	flags.Int("buffer-ms", 250, "Ring buffer length in milliseconds")
	flags.Int("rate", decode.DefaultTargetRate, "Playback sample rate in Hz, 0 keeps the source rate")
	flags.Int("volume", 100, "Playback volume 0-100")
	return cmd
}

func probeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>...",
		Short: "Print stream format and length as YAML",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()

			for _, path := range args {
				info, err := app.Probe(path)
				if err != nil {
					return fmt.Errorf("failed to probe %s: %w", path, err)
				}
				if err := enc.Encode(info); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", version.Product, version.Version, version.Manufacturer)
			return nil
		},
	}
}
