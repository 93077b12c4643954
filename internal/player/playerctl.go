package player

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	playerctlTimeout = 2 * time.Second
	metadataFormat   = "{{artist}}\t{{title}}\t{{xesam:url}}\t{{mpris:length}}\t{{mpris:trackid}}"
)

// Playerctl talks to MPRIS players through the playerctl command.
type Playerctl struct {
	player string
	run    func(ctx context.Context, args ...string) (string, error)
}

// NewPlayerctl targets the given player name, or whichever player
// playerctl picks when name is empty.
func NewPlayerctl(name string) *Playerctl {
	return &Playerctl{player: name, run: runPlayerctl}
}

func runPlayerctl(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "playerctl", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *Playerctl) exec(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), playerctlTimeout)
	defer cancel()

	command := args[0]
	if p.player != "" {
		args = append([]string{"--player", p.player}, args...)
	}
	out, err := p.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("%w: playerctl %s: %v", ErrNoPlayer, command, err)
	}
	return out, nil
}

func (p *Playerctl) CurrentSong() (Song, error) {
	out, err := p.exec("metadata", "--format", metadataFormat)
	if err != nil {
		return Song{}, err
	}
	if out == "" || out == "No players found" {
		return Song{}, ErrNoPlayer
	}

	fields := strings.Split(out, "\t")
	for len(fields) < 5 {
		fields = append(fields, "")
	}

	song := Song{
		Artist: strings.TrimSpace(fields[0]),
		Title:  strings.TrimSpace(fields[1]),
		Path:   filePath(fields[2]),
		ID:     strings.TrimSpace(fields[4]),
	}
	// mpris:length 单位为微秒
	if us, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64); err == nil {
		song.Duration = us / 1e6
	}
	return song, nil
}

func (p *Playerctl) Position() (float64, error) {
	out, err := p.exec("position")
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", out, err)
	}
	return seconds, nil
}

func (p *Playerctl) Playing() (bool, error) {
	out, err := p.exec("status")
	if err != nil {
		return false, err
	}
	return out == "Playing", nil
}

// filePath converts a file:// URL to a local path.
func filePath(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "file://") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}
