package player

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

// MPD reads playback state from a Music Player Daemon.
type MPD struct {
	addr     string
	password string
	musicDir string

	mu     sync.Mutex
	client *mpd.Client
}

// NewMPD connects lazily. musicDir is MPD's music_directory and is used to
// turn the relative "file" attribute into a local path.
func NewMPD(addr, password, musicDir string) *MPD {
	if addr == "" {
		addr = "localhost:6600"
	}
	return &MPD{addr: addr, password: password, musicDir: musicDir}
}

func (m *MPD) connectLocked() error {
	client, err := mpd.Dial("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to MPD at %s: %v", ErrNoPlayer, m.addr, err)
	}
	if m.password != "" {
		if err := client.Command("password %s", m.password).OK(); err != nil {
			client.Close()
			return fmt.Errorf("MPD authentication failed: %w", err)
		}
	}
	m.client = client
	logger().Info().Str("addr", m.addr).Msg("Connected to MPD")
	return nil
}

func (m *MPD) ensureConnectedLocked() error {
	if m.client == nil {
		return m.connectLocked()
	}
	if err := m.client.Ping(); err != nil {
		logger().Warn().Err(err).Msg("MPD connection lost, reconnecting")
		m.client.Close()
		m.client = nil
		return m.connectLocked()
	}
	return nil
}

func (m *MPD) status() (mpd.Attrs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureConnectedLocked(); err != nil {
		return nil, err
	}
	return m.client.Status()
}

func (m *MPD) CurrentSong() (Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureConnectedLocked(); err != nil {
		return Song{}, err
	}

	attrs, err := m.client.CurrentSong()
	if err != nil {
		return Song{}, fmt.Errorf("failed to read current song: %w", err)
	}
	if len(attrs) == 0 {
		return Song{}, ErrNoPlayer
	}
	return songFromAttrs(attrs, m.musicDir), nil
}

func songFromAttrs(attrs mpd.Attrs, musicDir string) Song {
	song := Song{
		Title:  attrs["Title"],
		Artist: attrs["Artist"],
		ID:     attrs["Id"],
	}
	if file := attrs["file"]; file != "" {
		if musicDir != "" && !filepath.IsAbs(file) {
			file = filepath.Join(musicDir, file)
		}
		if filepath.IsAbs(file) {
			song.Path = file
		}
		if song.Title == "" {
			song.Title = filepath.Base(file)
		}
	}
	if d, err := strconv.ParseFloat(attrs["duration"], 64); err == nil {
		song.Duration = d
	} else if d, err := strconv.ParseFloat(attrs["Time"], 64); err == nil {
		song.Duration = d
	}
	return song
}

func (m *MPD) Position() (float64, error) {
	attrs, err := m.status()
	if err != nil {
		return 0, err
	}
	elapsed, ok := attrs["elapsed"]
	if !ok {
		return 0, nil
	}
	return strconv.ParseFloat(elapsed, 64)
}

func (m *MPD) Playing() (bool, error) {
	attrs, err := m.status()
	if err != nil {
		return false, err
	}
	return attrs["state"] == "play", nil
}

// Watch reports MPD "player" subsystem events (play, pause, seek, track
// change) until ctx is cancelled.
func (m *MPD) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := mpd.NewWatcher("tcp", m.addr, m.password, "player")
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Event:
				if !ok {
					return
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			case err := <-watcher.Error:
				logger().Error().Err(err).Msg("MPD watcher error")
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
		}
	}()
	return ch, nil
}

func (m *MPD) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	return err
}
