package music

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeSource struct {
	name    string
	content string
	err     error
	calls   int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Lookup(ctx context.Context, title, artist string, duration float64) (string, error) {
	f.calls++
	return f.content, f.err
}

func TestChainLookup(t *testing.T) {
	q := Query{Title: "Lemon", Artist: "米津玄師", Duration: 256}

	t.Run("first answer wins", func(t *testing.T) {
		a := &fakeSource{name: "a", content: "[00:01.00]a"}
		b := &fakeSource{name: "b", content: "[00:01.00]b"}
		m, err := NewChain(a, b).Lookup(context.Background(), q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.Source != "a" || m.Content != "[00:01.00]a" {
			t.Errorf("unexpected match %+v", m)
		}
		if b.calls != 0 {
			t.Error("second source should not be asked")
		}
	})

	t.Run("falls back on error and empty answers", func(t *testing.T) {
		a := &fakeSource{name: "a", err: errors.New("boom")}
		b := &fakeSource{name: "b", content: "  \n"}
		c := &fakeSource{name: "c", content: "[00:01.00]c"}
		m, err := NewChain(a, b, c).Lookup(context.Background(), q)
		if err != nil || m.Source != "c" {
			t.Errorf("expected source c, got %+v, %v", m, err)
		}
	})

	t.Run("all failing", func(t *testing.T) {
		a := &fakeSource{name: "a", err: errors.New("boom")}
		_, err := NewChain(a).Lookup(context.Background(), q)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if !strings.Contains(err.Error(), "a: boom") {
			t.Errorf("source error missing from %q", err)
		}
	})

	t.Run("no sources", func(t *testing.T) {
		if _, err := NewChain().Lookup(context.Background(), q); !errors.Is(err, ErrNoSource) {
			t.Errorf("expected ErrNoSource, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		a := &fakeSource{name: "a", content: "x"}
		if _, err := NewChain(a).Lookup(ctx, q); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestQueryString(t *testing.T) {
	if got := (Query{Title: "Lemon"}).String(); got != "'Lemon'" {
		t.Errorf("unexpected %s", got)
	}
	if got := (Query{Title: "Lemon", Artist: "Aimer"}).String(); got != "'Lemon - Aimer'" {
		t.Errorf("unexpected %s", got)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"netease": KindNetEase,
		"163":     KindNetEase,
		"网易云":     KindNetEase,
		"lrclib":  KindLRCLib,
	}
	for name, want := range cases {
		got, err := ParseKind(name)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseKind("qq"); err == nil {
		t.Error("expected error for unsupported source")
	}
}

func TestFromNames(t *testing.T) {
	chain, err := FromNames([]string{"qq", "netease"})
	if err != nil {
		t.Fatalf("FromNames failed: %v", err)
	}
	if names := chain.Names(); len(names) != 1 || names[0] != "netease" {
		t.Errorf("unexpected sources %v", names)
	}
	if _, err := FromNames([]string{"qq"}); !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
	chain, _ = FromNames(nil)
	if names := chain.Names(); len(names) != 2 || names[0] != "lrclib" {
		t.Errorf("unexpected default sources %v", names)
	}
}
