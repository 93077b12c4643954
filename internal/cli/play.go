package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"molten-lyrics/internal/app"
	"molten-lyrics/internal/ipc"
	"molten-lyrics/internal/karaoke"
	"molten-lyrics/internal/lyrics"
	"molten-lyrics/internal/overlay"
	"molten-lyrics/internal/player"
	"molten-lyrics/internal/settings"
	"molten-lyrics/internal/term"
)

const seekStep = 5.0

var playCmd = &cobra.Command{
	Use:   "play [lyric_file]",
	Short: "Play a lyric file in the terminal with a local clock",
	Long: `Play an .lrc or .srt file in the terminal with karaoke fill, timed by a
local clock instead of a music player.

Controls (type and press enter):
  p or empty line   pause / resume
  + / -             seek 5 seconds
  q                 quit

Examples:
  molten-lyrics play song.lrc
  molten-lyrics play episode.srt --overlay`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().
		Bool("overlay", false, "Also drive the configured IPC and socket.io overlays")
	playCmd.Flags().
		Float64("offset", 0, "Lyric offset in seconds, overrides the stored setting")
}

func runPlay(cmd *cobra.Command, args []string) error {
	path := args[0]
	lines, err := lyrics.ReadFile(path)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: %s has no timed lines", lyrics.ErrNotFound, path)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	prefs := loadSettings(ctx)
	if cmd.Flags().Changed("offset") {
		offset, _ := cmd.Flags().GetFloat64("offset")
		if err := settings.ValidateOffset(offset); err != nil {
			return err
		}
		prefs.LyricOffset = offset
	}

	var surface karaoke.Surface
	if withOverlay, _ := cmd.Flags().GetBool("overlay"); withOverlay {
		hub, stop, err := startOverlay(ctx)
		if err != nil {
			return err
		}
		defer stop()
		hub.PushSettings(prefs.Display())
		surface = hub
	}

	limit := endOf(lines, cfg.Lyric.FallbackDuration)
	clock := player.NewWallClock(limit)
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	screen := term.NewRenderer(cmd.OutOrStdout(), title, prefs.Display())

	finished := make(chan struct{})
	var once sync.Once
	engine := karaoke.NewEngine(clock, surface,
		karaoke.WithThreshold(cfg.Lyric.OverlayThreshold),
		karaoke.WithFallbackDuration(cfg.Lyric.FallbackDuration),
		karaoke.WithRenderer(func(s karaoke.State) {
			screen.Draw(s)
			if !clock.IsPlaying() && clock.CurrentTime() >= limit {
				once.Do(func() { close(finished) })
			}
		}),
	)
	engine.SetOffset(prefs.LyricOffset)
	runner := karaoke.NewRunner(engine, cfg.FrameInterval())

	runCtx, stopRunner := context.WithCancel(ctx)
	defer stopRunner()
	go runner.Run(runCtx)

	runner.Load(lines)
	clock.Start()
	runner.Play()
	go readControls(cmd.InOrStdin(), clock, runner, cancel)

	select {
	case <-ctx.Done():
	case <-finished:
	}
	return nil
}

func loadSettings(ctx context.Context) settings.Settings {
	store, closeStore, err := app.SettingsStore(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Settings unavailable, using defaults")
		return settings.Defaults()
	}
	defer closeStore()
	s, err := store.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load settings, using defaults")
		return settings.Defaults()
	}
	return s
}

func startOverlay(ctx context.Context) (*overlay.Hub, func(), error) {
	var sinks []overlay.Sink
	var stops []func()
	stop := func() {
		for _, fn := range stops {
			fn()
		}
	}

	if cfg.Overlay.IPC {
		server := ipc.NewServer(cfg.App.SocketPath)
		if err := server.Start(); err != nil {
			return nil, nil, fmt.Errorf("failed to start IPC server: %w", err)
		}
		stops = append(stops, server.Close)
		sinks = append(sinks, overlay.IPC(server))
	}
	if cfg.Overlay.SocketIOAddr != "" {
		sio := overlay.NewSocketIO(cfg.Overlay.SocketIOAddr)
		if err := sio.Start(); err != nil {
			stop()
			return nil, nil, fmt.Errorf("failed to start socket.io server: %w", err)
		}
		stops = append(stops, func() { sio.Close() })
		sinks = append(sinks, sio)
	}

	hub := overlay.NewHub(sinks...)
	go hub.Run(ctx)
	return hub, stop, nil
}

// endOf is where playback of lines ends: the explicit end of the last line
// or its start plus the fallback duration.
func endOf(lines []lyrics.Line, fallback float64) float64 {
	last := lines[len(lines)-1]
	if end, ok := last.End(); ok && end > last.Time {
		return end
	}
	return last.Time + fallback
}

func readControls(in io.Reader, clock *player.WallClock, runner *karaoke.Runner, quit func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "", "p":
			if clock.Toggle() {
				runner.Play()
			}
		case "+":
			clock.Seek(seekStep)
		case "-":
			clock.Seek(-seekStep)
		case "q":
			quit()
			return
		default:
			continue
		}
		// 立即按新时间重绘
		runner.Do(func(e *karaoke.Engine) { e.Tick() })
	}
}
