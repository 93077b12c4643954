package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", "/var/cache/test")

	cfg := Load("")
	if cfg.App.SocketPath != DefaultSocketPath || cfg.App.CheckInterval != DefaultCheckInterval {
		t.Errorf("unexpected app defaults %+v", cfg.App)
	}
	if cfg.App.CacheDir != "/var/cache/test/lyrics" {
		t.Errorf("unexpected cache dir %s", cfg.App.CacheDir)
	}
	if !cfg.Overlay.IPC || cfg.Player.Backend != "playerctl" {
		t.Errorf("unexpected defaults %+v %+v", cfg.Overlay, cfg.Player)
	}
	if cfg.Lyric.FallbackDuration != 2 || cfg.Lyric.OverlayThreshold != 0.02 {
		t.Errorf("unexpected lyric defaults %+v", cfg.Lyric)
	}
	if cfg.FrameInterval() != time.Second/60 {
		t.Errorf("unexpected frame interval %v", cfg.FrameInterval())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[app]
check_interval = "2s"
frame_rate = 30

[player]
backend = "mpd"
mpd_addr = "10.0.0.2:6600"
music_dir = "/music"

[lyric]
fallback_duration = 3.5
translate = "zh"
providers = ["netease"]

[overlay]
ipc = false
socketio_addr = ":3001"
i3blocks = true

[redis]
enabled = true
db = 2

[transcribe]
provider = "tencent"
auto = true

[settings]
store = "redis"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.App.CheckInterval != 2*time.Second || cfg.FrameInterval() != time.Second/30 {
		t.Errorf("unexpected app %+v", cfg.App)
	}
	if cfg.Player.Backend != "mpd" || cfg.Player.MPDAddr != "10.0.0.2:6600" || cfg.Player.MusicDir != "/music" {
		t.Errorf("unexpected player %+v", cfg.Player)
	}
	if cfg.Lyric.FallbackDuration != 3.5 || cfg.Lyric.OverlayThreshold != DefaultOverlayThreshold {
		t.Errorf("unexpected lyric %+v", cfg.Lyric)
	}
	if cfg.Lyric.Translate != "zh" || len(cfg.Lyric.Providers) != 1 {
		t.Errorf("unexpected lyric %+v", cfg.Lyric)
	}
	if cfg.Overlay.IPC || cfg.Overlay.SocketIOAddr != ":3001" || !cfg.Overlay.I3Blocks {
		t.Errorf("unexpected overlay %+v", cfg.Overlay)
	}
	if !cfg.Redis.Enabled || cfg.Redis.DB != 2 || cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected redis %+v", cfg.Redis)
	}
	if cfg.Transcribe.Provider != "tencent" || !cfg.Transcribe.Auto || cfg.Transcribe.Model != "base" {
		t.Errorf("unexpected transcribe %+v", cfg.Transcribe)
	}
	if cfg.Settings.Store != "redis" {
		t.Errorf("unexpected settings %+v", cfg.Settings)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(dir, "duration.toml")
		os.WriteFile(path, []byte("[app]\ncheck_interval = \"soon\"\n"), 0644)
		if cfg := Load(path); cfg.App.CheckInterval != DefaultCheckInterval {
			t.Errorf("expected default interval, got %v", cfg.App.CheckInterval)
		}
	})

	t.Run("broken file", func(t *testing.T) {
		path := filepath.Join(dir, "broken.toml")
		os.WriteFile(path, []byte("[app\n"), 0644)
		if cfg := Load(path); cfg.App.FrameRate != DefaultFrameRate {
			t.Errorf("expected defaults, got %+v", cfg.App)
		}
	})
}
