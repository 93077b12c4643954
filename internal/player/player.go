// Package player reads the current track and playback position from an
// external media player and exposes them as a karaoke clock.
package player

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrNoPlayer = errors.New("no active player")

func logger() *zerolog.Logger {
	l := log.With().Str("component", "player").Logger()
	return &l
}

// Song describes the track currently loaded in the player.
type Song struct {
	Title    string
	Artist   string
	Path     string  // local file path, empty for streams
	Duration float64 // seconds, 0 when unknown
	ID       string
}

// Identifier is the "artist - title" form used for display and lookups.
func (s Song) Identifier() string {
	switch {
	case s.Artist == "":
		return s.Title
	case s.Title == "":
		return s.Artist
	default:
		return s.Artist + " - " + s.Title
	}
}

// Key identifies a track for change detection.
func (s Song) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Identifier() + "|" + s.Path
}

func (s Song) Empty() bool {
	return strings.TrimSpace(s.Title) == "" && s.Path == ""
}

type Player interface {
	CurrentSong() (Song, error)
	Position() (float64, error)
	Playing() (bool, error)
}

// New returns the player backend named by backend: "playerctl" or "mpd".
// name restricts playerctl to one player, empty means the active one.
func New(backend, name, mpdAddr, mpdPassword, musicDir string) (Player, error) {
	switch backend {
	case "", "playerctl":
		return NewPlayerctl(name), nil
	case "mpd":
		return NewMPD(mpdAddr, mpdPassword, musicDir), nil
	default:
		return nil, fmt.Errorf("unknown player backend: %s", backend)
	}
}
