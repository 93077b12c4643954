package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"molten-lyrics/internal/karaoke"
	"molten-lyrics/internal/lyrics"
	"molten-lyrics/internal/player"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[settings]\npath = \"" + filepath.Join(dir, "settings.toml") + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOffsetAndToggle(t *testing.T) {
	path := writeConfig(t)

	out, err := execute(t, "--config", path, "offset", "0.75")
	if err != nil {
		t.Fatalf("offset failed: %v", err)
	}
	if !strings.Contains(out, "lyric offset: 0.75s") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = execute(t, "--config", path, "toggle")
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !strings.Contains(out, "desktop lyric: false") || !strings.Contains(out, "0.75s") {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := execute(t, "--config", path, "offset", "soon"); err == nil {
		t.Error("expected an error for a non numeric offset")
	}
	for _, bad := range []string{"NaN", "Inf", "11", "-10.5"} {
		if _, err := execute(t, "--config", path, "offset", "--", bad); err == nil {
			t.Errorf("expected an error for offset %s", bad)
		}
	}
	out, err = execute(t, "--config", path, "offset")
	if err != nil || !strings.Contains(out, "lyric offset: 0.75s") {
		t.Errorf("rejected offsets must not be saved, got %q (%v)", out, err)
	}
}

func TestPlayMissingFile(t *testing.T) {
	path := writeConfig(t)
	if _, err := execute(t, "--config", path, "play", filepath.Join(t.TempDir(), "nope.lrc")); err == nil {
		t.Error("expected an error for a missing lyric file")
	}
}

func TestEndOf(t *testing.T) {
	lrc := lyrics.ParseLRC("[00:01.00]a\n[00:04.00]b\n")
	if got := endOf(lrc, 2); got != 6 {
		t.Errorf("endOf(lrc) = %v, want 6", got)
	}
	srt := []lyrics.Line{{Time: 1, EndTime: lyrics.Seconds(3.5), Text: "a"}}
	if got := endOf(srt, 2); got != 3.5 {
		t.Errorf("endOf(srt) = %v, want 3.5", got)
	}
}

func TestReadControls(t *testing.T) {
	clock := player.NewWallClock(0)
	engine := karaoke.NewEngine(clock, nil)
	runner := karaoke.NewRunner(engine, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	quit := make(chan struct{})
	readControls(strings.NewReader("+\n+\n-\nq\n"), clock, runner, func() { close(quit) })

	select {
	case <-quit:
	default:
		t.Fatal("q should quit")
	}
	if got := clock.CurrentTime(); got != 5 {
		t.Errorf("expected clock at 5s, got %v", got)
	}
}
