// Package app follows the external player, resolves lyrics for the current
// track and keeps the karaoke engine and overlays in sync with it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"molten-lyrics/internal/config"
	"molten-lyrics/internal/i3block"
	"molten-lyrics/internal/ipc"
	"molten-lyrics/internal/karaoke"
	"molten-lyrics/internal/lyrics"
	"molten-lyrics/internal/overlay"
	"molten-lyrics/internal/player"
	"molten-lyrics/internal/settings"
	"molten-lyrics/internal/summary"
	"molten-lyrics/internal/transcribe"
	"molten-lyrics/pkg/fileutil"
)

const resolveTimeout = 30 * time.Second

type watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

type App struct {
	cfg        *config.Config
	player     player.Player
	clock      *player.SampledClock
	runner     *karaoke.Runner
	hub        *overlay.Hub
	ipcServer  *ipc.Server
	socketIO   *overlay.SocketIO
	i3         *i3block.Controller
	provider   *lyrics.Provider
	settings   settings.Store
	jobs       *transcribe.Jobs
	summarizer *summary.Summarizer
	closers    []io.Closer

	mutex       sync.Mutex
	currentSong player.Song
	songCancel  context.CancelFunc
	noPlayer    bool

	applied    settings.Settings
	hasApplied bool
}

// Run starts the overlays and the engine, then checks the player every
// check_interval (and on MPD player events) until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := os.MkdirAll(a.cfg.App.CacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", a.cfg.App.CacheDir, err)
	}
	log.Info().Str("cache_dir", a.cfg.App.CacheDir).Msg("Lyrics cache directory")

	if a.ipcServer != nil {
		if err := a.ipcServer.Start(); err != nil {
			return fmt.Errorf("failed to start IPC server: %w", err)
		}
		defer a.ipcServer.Close()
	}
	if a.socketIO != nil {
		if err := a.socketIO.Start(); err != nil {
			return fmt.Errorf("failed to start socket.io server: %w", err)
		}
		defer a.socketIO.Close()
	}
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	start := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	start(func() { a.hub.Run(ctx) })
	start(func() { a.runner.Run(ctx) })
	if a.i3 != nil {
		start(func() { a.i3.Run(ctx) })
	}
	defer wg.Wait()
	defer cancel()

	var events <-chan struct{}
	if w, ok := a.player.(watcher); ok {
		ch, err := w.Watch(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Player events unavailable, polling only")
		} else {
			events = ch
		}
	}

	ticker := time.NewTicker(a.cfg.App.CheckInterval)
	defer ticker.Stop()

	log.Info().Msg("Starting player check loop...")
	for {
		a.check(ctx)
		select {
		case <-ctx.Done():
			a.cancelSong()
			if a.jobs != nil {
				a.jobs.Wait()
			}
			return nil
		case <-ticker.C:
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		}
	}
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Close failed")
		}
	}
}

// check samples the player once: settings, song change, clock and
// play/pause state.
//
// 换歌时先清空 engine 再同步时钟，否则新歌的位置会落到旧歌的歌词上。
func (a *App) check(ctx context.Context) {
	a.reloadSettings(ctx)

	song, err := a.player.CurrentSong()
	if err != nil || song.Empty() {
		a.lostPlayer(err)
		return
	}

	a.mutex.Lock()
	changed := song.Key() != a.currentSong.Key()
	a.mutex.Unlock()
	if changed {
		a.songChanged(ctx, song)
	}

	if err := a.clock.Sync(); err != nil {
		a.lostPlayer(err)
		return
	}
	a.noPlayer = false

	if a.clock.IsPlaying() {
		a.runner.Play()
	} else {
		a.runner.Pause()
	}
}

func (a *App) lostPlayer(err error) {
	a.runner.Pause()
	if a.noPlayer {
		return
	}
	a.noPlayer = true
	log.Debug().Err(err).Msg("No active player")
	a.hub.Status("No music playing...")
}

func (a *App) cancelSong() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.songCancel != nil {
		a.songCancel()
		a.songCancel = nil
	}
}

// songChanged clears the engine, cancels any lookup still running for the
// previous track and resolves lyrics for song in the background.
func (a *App) songChanged(ctx context.Context, song player.Song) {
	log.Info().Msg("-----------------------------------------------------")
	log.Info().Str("song", song.Identifier()).Str("path", song.Path).Msg("New song detected")

	songCtx, cancel := context.WithCancel(ctx)
	a.mutex.Lock()
	if a.songCancel != nil {
		a.songCancel()
	}
	a.songCancel = cancel
	a.currentSong = song
	a.mutex.Unlock()

	// 同步等待，之后的帧不会再用旧歌词
	if err := a.runner.Call(ctx, func(e *karaoke.Engine) { e.Load(nil) }); err != nil {
		log.Warn().Err(err).Msg("Failed to clear lyrics")
	}

	a.hub.Status(fmt.Sprintf("... Searching for lyrics for %s ...", song.Identifier()))

	go func() {
		resolveCtx, cancel := context.WithTimeout(songCtx, resolveTimeout)
		defer cancel()

		res, err := a.provider.Resolve(resolveCtx, song)
		if songCtx.Err() != nil {
			log.Debug().Str("song", song.Identifier()).Msg("Lyric lookup abandoned, song changed")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to get lyrics")
			if errors.Is(err, lyrics.ErrNotFound) && a.jobs != nil && song.Path != "" {
				a.transcribe(songCtx, song)
				return
			}
			a.hub.Status(fmt.Sprintf("Error getting lyrics: %v", err))
			return
		}
		log.Info().Str("source", res.Source).Int("lines_count", len(res.Lines)).Msg("Lyrics resolved")
		a.load(song, res.Lines)
	}()
}

// load hands lines to the engine if song is still the current track.
func (a *App) load(song player.Song, lines []lyrics.Line) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if song.Key() != a.currentSong.Key() {
		log.Info().Str("song", song.Identifier()).Msg("Discarding lyrics for a previous song")
		return false
	}
	a.hub.Status(fmt.Sprintf("♪ %s ♪", song.Identifier()))
	a.runner.Load(lines)
	return true
}

func (a *App) transcribe(ctx context.Context, song player.Song) {
	a.hub.Status(fmt.Sprintf("... Transcribing %s ...", filepath.Base(song.Path)))
	a.jobs.Submit(ctx, song.Path, func(job transcribe.Job) {
		if job.Status != transcribe.StatusCompleted {
			if ctx.Err() == nil {
				a.hub.Status(fmt.Sprintf("Error transcribing: %v", job.Err))
			}
			return
		}
		if err := a.provider.Store(ctx, song.Title, song.Artist, lyrics.FormatSRT, job.Result); err != nil {
			log.Error().Err(err).Msg("Failed to cache transcription")
		}
		lines := lyrics.ParseSRT(job.Result)
		if !a.load(song, lines) || a.summarizer == nil {
			return
		}
		a.summarize(ctx, song, lines)
	})
}

func (a *App) summarize(ctx context.Context, song player.Song, lines []lyrics.Line) {
	text, err := a.summarizer.Summarize(ctx, song.Key(), lines)
	if err != nil {
		log.Error().Err(err).Msg("Failed to summarize transcription")
		return
	}
	base := filepath.Base(song.Path)
	path := filepath.Join(a.cfg.App.CacheDir, base[:len(base)-len(filepath.Ext(base))]+".summary.txt")
	if err := fileutil.WriteFileAtomic(path, []byte(text+"\n"), 0644); err != nil {
		log.Error().Err(err).Msg("Failed to save summary")
		return
	}
	log.Info().Str("path", path).Msg("Summary saved")
}

// reloadSettings applies the stored settings when they changed.
func (a *App) reloadSettings(ctx context.Context) {
	s, err := a.settings.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load settings")
		return
	}
	if a.hasApplied && s == a.applied {
		return
	}
	a.applied, a.hasApplied = s, true

	log.Info().Float64("offset", s.LyricOffset).Bool("desktop_lyric", s.ShowDesktopLyric).Msg("Applying settings")
	a.runner.SetOffset(s.LyricOffset)
	a.runner.SetOverlayEnabled(s.ShowDesktopLyric)
	a.hub.SetVisible(s.ShowDesktopLyric)
	a.hub.PushSettings(s.Display())
}
