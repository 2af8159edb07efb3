// ABOUTME: Root cobra command and shared flag handling
// ABOUTME: Loads settings through viper before any subcommand runs
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Resonate-Protocol/resonate-codec/internal/app"
	"github.com/Resonate-Protocol/resonate-codec/internal/config"
	"github.com/Resonate-Protocol/resonate-codec/internal/version"
)

// flagKeys maps command line flags to setting keys
var flagKeys = map[string]string{
	"debug":             "log.debug",
	"log-file":          "log.file",
	"ui":                "ui.enabled",
	"feed-addr":         "feed.addr",
	"metrics-addr":      "metrics.addr",
	"mode":              "encode.mode",
	"bitrate-index":     "encode.bitrate_index",
	"complexity":        "encode.complexity",
	"progress-interval": "encode.progress_interval",
	"tag":               "encode.tags",
	"raw-rate":          "raw.sample_rate",
	"raw-channels":      "raw.channels",
	"raw-bits":          "raw.bit_depth",
	"raw-order":         "raw.byte_order",
	"buffer-ms":         "decode.buffer_ms",
	"byte-order":        "decode.byte_order",
	"rate":              "decode.sample_rate",
	"volume":            "play.volume",
}

// cli is the state shared by the commands of one invocation
type cli struct {
	v          *viper.Viper
	configFile string
	settings   *config.Settings
}

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "resonate-codec",
		Short:         "Encode, decode and play audio through a streaming codec adapter",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	setupFlags(rootCmd, c)

	rootCmd.AddCommand(
		encodeCommand(c),
		decodeCommand(c),
		playCommand(c),
		probeCommand(c),
		versionCommand(),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(c.v, cmd.Flags()); err != nil {
			return err
		}
		settings, err := config.Load(c.v, c.configFile)
		if err != nil {
			return err
		}
		c.settings = settings
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, c *cli) {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "Config file (default ./resonate-codec.yaml or ~/.config/resonate-codec/resonate-codec.yaml)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("log-file", "", "Also write logs to this file")
	flags.Bool("ui", false, "Show the terminal progress view")
	flags.String("feed-addr", "", "Serve websocket progress events on this address")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")
}

// bindFlags binds every known flag of the running command to its setting
// key. Binding happens per invocation so commands sharing a flag name do
// not steal each other's bindings.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// withApp runs fn with an App built from the loaded settings
func (c *cli) withApp(fn func(a *app.App) error) error {
	a, err := app.New(c.settings)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
