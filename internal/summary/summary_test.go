package summary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"molten-lyrics/internal/lyrics"
)

type mockAI struct {
	calls  int
	prompt string
	reply  string
	err    error
}

func (m *mockAI) Name() string { return "mock" }

func (m *mockAI) HandleText(ctx context.Context, msg string) (string, error) {
	m.calls++
	m.prompt = msg
	return m.reply, m.err
}

type mapCache map[string]string

func (m mapCache) Get(ctx context.Context, key string) (string, error) {
	return m[key], nil
}

func (m mapCache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	m[key] = value
	return nil
}

func TestTranscript(t *testing.T) {
	lines := []lyrics.Line{
		{Time: 5, Text: "intro"},
		{Time: 65.5, Text: "first\nsecond"},
		{Time: 70, Text: "  "},
	}
	want := "[00:05] intro\n[01:05] first second"
	if got := Transcript(lines); got != want {
		t.Errorf("Transcript() = %q, want %q", got, want)
	}

	long := make([]lyrics.Line, 2000)
	for i := range long {
		long[i] = lyrics.Line{Time: float64(i), Text: "some words here"}
	}
	if n := len([]rune(Transcript(long))); n > maxTranscriptRunes {
		t.Errorf("transcript not truncated: %d runes", n)
	}
}

func TestSummarize(t *testing.T) {
	lines := []lyrics.Line{{Time: 1, Text: "hello"}}

	t.Run("cached", func(t *testing.T) {
		client := &mockAI{reply: " summary \n"}
		cache := mapCache{}
		s := New(client, cache)

		out, err := s.Summarize(context.Background(), "ep1", lines)
		if err != nil || out != "summary" {
			t.Fatalf("Summarize() = %q, %v", out, err)
		}
		if !strings.Contains(client.prompt, "[00:01] hello") {
			t.Errorf("prompt misses transcript: %q", client.prompt)
		}
		if cache["summary:ep1"] != "summary" {
			t.Errorf("summary not cached: %v", cache)
		}

		s.Summarize(context.Background(), "ep1", lines)
		if client.calls != 1 {
			t.Errorf("expected cache hit, model called %d times", client.calls)
		}
	})

	t.Run("empty transcript", func(t *testing.T) {
		s := New(&mockAI{}, nil)
		if _, err := s.Summarize(context.Background(), "", nil); !errors.Is(err, ErrEmptyTranscript) {
			t.Errorf("expected ErrEmptyTranscript, got %v", err)
		}
	})

	t.Run("model error", func(t *testing.T) {
		s := New(&mockAI{err: errors.New("quota")}, nil)
		if _, err := s.Summarize(context.Background(), "", lines); err == nil {
			t.Error("expected error")
		}
	})
}
