// Package cli holds the molten-lyrics commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"molten-lyrics/internal/app"
	"molten-lyrics/internal/config"
)

var (
	configPath string
	debug      bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "molten-lyrics",
	Short: "Karaoke style synced lyrics for your music player",
	Long: `molten-lyrics follows the current track of playerctl or MPD, finds
synced lyrics for it and shows the active line with karaoke fill on the
desktop overlay, i3blocks and browser overlays.

Without a subcommand it runs the daemon.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(debug)
		cfg = config.Load(configPath)
	},
	RunE: runDaemon,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/lyrics/config.toml)")
	rootCmd.PersistentFlags().
		BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
}

func setupLogging(debug bool) {
	// 设置 zerolog 的全局配置
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	err = a.Run(ctx)
	log.Info().Msg("Shutting down...")
	return err
}
