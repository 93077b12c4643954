// Package settings holds the user-facing display and sync preferences
// shared by the engine and every overlay.
package settings

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// MaxLyricOffset 歌词偏移的上下限（秒）
const MaxLyricOffset = 10.0

// Settings 用户设置
type Settings struct {
	FontSize         int     `toml:"font_size" json:"fontSize"`
	Color            string  `toml:"color" json:"color"`
	ActiveColor      string  `toml:"active_color" json:"activeColor"`
	BackgroundColor  string  `toml:"background_color" json:"backgroundColor"`
	ShadowOpacity    float64 `toml:"shadow_opacity" json:"shadowOpacity"`
	ShowDesktopLyric bool    `toml:"show_desktop_lyric" json:"showDesktopLyric"`
	Loop             bool    `toml:"loop" json:"loop"`
	LyricOffset      float64 `toml:"lyric_offset" json:"lyricOffset"` // 秒，正数表示歌词提前
	APIURL           string  `toml:"api_url" json:"apiUrl"`
}

// Display is the part of Settings an overlay needs to draw text.
type Display struct {
	FontSize        int     `json:"fontSize"`
	Color           string  `json:"color"`
	ActiveColor     string  `json:"activeColor"`
	BackgroundColor string  `json:"backgroundColor"`
	ShadowOpacity   float64 `json:"shadowOpacity"`
}

func Defaults() Settings {
	return Settings{
		FontSize:         32,
		Color:            "#ffffff",
		ActiveColor:      "#ffeb3b",
		BackgroundColor:  "rgba(0,0,0,0)",
		ShadowOpacity:    0.1,
		ShowDesktopLyric: true,
		Loop:             false,
		LyricOffset:      0,
		APIURL:           "http://localhost:8080",
	}
}

func (s Settings) Display() Display {
	return Display{
		FontSize:        s.FontSize,
		Color:           s.Color,
		ActiveColor:     s.ActiveColor,
		BackgroundColor: s.BackgroundColor,
		ShadowOpacity:   s.ShadowOpacity,
	}
}

// Sanitize replaces out of range or empty values with defaults.
func (s Settings) Sanitize() Settings {
	d := Defaults()
	if s.FontSize <= 0 {
		s.FontSize = d.FontSize
	}
	if strings.TrimSpace(s.Color) == "" {
		s.Color = d.Color
	}
	if strings.TrimSpace(s.ActiveColor) == "" {
		s.ActiveColor = d.ActiveColor
	}
	if strings.TrimSpace(s.BackgroundColor) == "" {
		s.BackgroundColor = d.BackgroundColor
	}
	if s.ShadowOpacity < 0 || s.ShadowOpacity > 1 {
		s.ShadowOpacity = d.ShadowOpacity
	}
	if strings.TrimSpace(s.APIURL) == "" {
		s.APIURL = d.APIURL
	}
	s.LyricOffset = ClampOffset(s.LyricOffset)
	return s
}

// ClampOffset limits seconds to [-MaxLyricOffset, MaxLyricOffset]; NaN and
// infinities become 0.
func ClampOffset(seconds float64) float64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return math.Max(-MaxLyricOffset, math.Min(MaxLyricOffset, seconds))
}

// ValidateOffset rejects offsets that ClampOffset would change.
func ValidateOffset(seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || math.Abs(seconds) > MaxLyricOffset {
		return fmt.Errorf("lyric offset %v out of range [-%g, %g]", seconds, MaxLyricOffset, MaxLyricOffset)
	}
	return nil
}

// Store persists Settings. Load returns defaults for anything missing.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// Update loads, applies fn and saves.
func Update(ctx context.Context, store Store, fn func(*Settings)) (Settings, error) {
	s, err := store.Load(ctx)
	if err != nil {
		return s, err
	}
	fn(&s)
	s = s.Sanitize()
	return s, store.Save(ctx, s)
}
