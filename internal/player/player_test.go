package player

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

func fakePlayerctl(outputs map[string]string, fail bool) *Playerctl {
	return &Playerctl{run: func(ctx context.Context, args ...string) (string, error) {
		if fail {
			return "", errors.New("exit status 1")
		}
		return outputs[args[0]], nil
	}}
}

func TestPlayerctlCurrentSong(t *testing.T) {
	p := fakePlayerctl(map[string]string{
		"metadata": "Aimer\t残響散歌\tfile:///home/u/Music/Aimer%20-%20%E6%AE%8B.flac\t245000000\t/org/mpris/1",
		"position": "12.500000",
		"status":   "Playing",
	}, false)

	song, err := p.CurrentSong()
	if err != nil {
		t.Fatalf("CurrentSong failed: %v", err)
	}
	if song.Artist != "Aimer" || song.Title != "残響散歌" {
		t.Errorf("unexpected song %+v", song)
	}
	if song.Path != "/home/u/Music/Aimer - 残.flac" {
		t.Errorf("unexpected path %q", song.Path)
	}
	if song.Duration != 245 {
		t.Errorf("expected duration 245, got %v", song.Duration)
	}
	if song.Identifier() != "Aimer - 残響散歌" {
		t.Errorf("unexpected identifier %q", song.Identifier())
	}

	pos, err := p.Position()
	if err != nil || pos != 12.5 {
		t.Errorf("Position() = %v, %v", pos, err)
	}
	playing, err := p.Playing()
	if err != nil || !playing {
		t.Errorf("Playing() = %v, %v", playing, err)
	}
}

func TestPlayerctlNoPlayer(t *testing.T) {
	p := fakePlayerctl(nil, true)
	if _, err := p.CurrentSong(); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("expected ErrNoPlayer, got %v", err)
	}
	if _, err := p.Position(); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("expected ErrNoPlayer, got %v", err)
	}
}

func TestPlayerctlPlayerFlag(t *testing.T) {
	var got []string
	p := NewPlayerctl("mpv")
	p.run = func(ctx context.Context, args ...string) (string, error) {
		got = args
		return "Paused", nil
	}
	playing, _ := p.Playing()
	if playing {
		t.Error("Paused should not be playing")
	}
	if strings.Join(got, " ") != "--player mpv status" {
		t.Errorf("unexpected args %v", got)
	}
}

func TestSongFromAttrs(t *testing.T) {
	song := songFromAttrs(mpd.Attrs{
		"file":     "jpop/track.flac",
		"Artist":   "YOASOBI",
		"duration": "258.123",
		"Id":       "7",
	}, "/srv/music")

	if song.Path != "/srv/music/jpop/track.flac" {
		t.Errorf("unexpected path %q", song.Path)
	}
	if song.Title != "track.flac" {
		t.Errorf("title should fall back to file name, got %q", song.Title)
	}
	if song.Duration != 258.123 || song.Key() != "7" {
		t.Errorf("unexpected song %+v", song)
	}

	stream := songFromAttrs(mpd.Attrs{"file": "http://radio/stream", "Title": "Live"}, "")
	if stream.Path != "" {
		t.Errorf("stream should have no local path, got %q", stream.Path)
	}
}

type stubPlayer struct {
	position float64
	playing  bool
	err      error
}

func (s *stubPlayer) CurrentSong() (Song, error) { return Song{}, s.err }
func (s *stubPlayer) Position() (float64, error) { return s.position, s.err }
func (s *stubPlayer) Playing() (bool, error)     { return s.playing, s.err }

func TestSampledClock(t *testing.T) {
	now := time.Unix(1000, 0)
	stub := &stubPlayer{position: 10, playing: true}
	c := NewSampledClock(stub)
	c.now = func() time.Time { return now }

	if err := c.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	now = now.Add(1500 * time.Millisecond)
	if got := c.CurrentTime(); got != 11.5 {
		t.Errorf("expected extrapolated 11.5, got %v", got)
	}
	if !c.IsPlaying() {
		t.Error("clock should be playing")
	}

	// 暂停时不外推
	stub.playing = false
	stub.position = 11.6
	c.Sync()
	now = now.Add(time.Second)
	if got := c.CurrentTime(); got != 11.6 {
		t.Errorf("expected 11.6 while paused, got %v", got)
	}

	t.Run("PlayerGone", func(t *testing.T) {
		stub.playing = true
		stub.err = ErrNoPlayer
		if err := c.Sync(); err == nil {
			t.Fatal("expected error")
		}
		if c.IsPlaying() {
			t.Error("clock should stop when the player is gone")
		}
	})
}

func TestWallClock(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewWallClock(10)
	c.now = func() time.Time { return now }

	if c.IsPlaying() || c.CurrentTime() != 0 {
		t.Fatal("new clock should be stopped at 0")
	}

	c.Start()
	now = now.Add(2 * time.Second)
	if got := c.CurrentTime(); got != 2 {
		t.Errorf("expected 2, got %v", got)
	}

	c.Pause()
	now = now.Add(5 * time.Second)
	if got := c.CurrentTime(); got != 2 {
		t.Errorf("expected 2 while paused, got %v", got)
	}

	c.Seek(-5)
	if got := c.CurrentTime(); got != 0 {
		t.Errorf("seek below zero should clamp, got %v", got)
	}

	if !c.Toggle() {
		t.Fatal("toggle should start the clock")
	}
	now = now.Add(20 * time.Second)
	if c.IsPlaying() {
		t.Error("clock should stop at the limit")
	}
	if got := c.CurrentTime(); got != 10 {
		t.Errorf("expected limit 10, got %v", got)
	}
}
