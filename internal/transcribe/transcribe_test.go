package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"molten-lyrics/internal/lyrics"
	"molten-lyrics/pkg/tencent"
)

const sampleSRT = "1\n00:00:01,000 --> 00:00:02,500\nhello\n\n"

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.mp3")
	if err := os.WriteFile(path, []byte("ID3fake"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWhisper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "base" {
			t.Errorf("expected model base, got %q", got)
		}
		if got := r.FormValue("response_format"); got != "srt" {
			t.Errorf("expected srt format, got %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(sampleSRT))
	}))
	defer server.Close()

	w := NewWhisper(server.URL+"/", "", "", "")
	srt, err := w.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	lines := lyrics.ParseSRT(srt)
	if len(lines) != 1 || lines[0].Text != "hello" || lines[0].Time != 1 {
		t.Errorf("unexpected lines %+v", lines)
	}
}

func TestWhisperServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer server.Close()

	w := NewWhisper(server.URL, "", "base", "")
	if _, err := w.Transcribe(context.Background(), writeAudio(t)); err == nil {
		t.Fatal("expected an error")
	}
}

type fakeRecognizer struct {
	engine    string
	sentences []tencent.Sentence
}

func (f *fakeRecognizer) Recognize(ctx context.Context, audio []byte, engine string) ([]tencent.Sentence, error) {
	f.engine = engine
	return f.sentences, nil
}

func words(start float64, texts ...string) []tencent.Word {
	var out []tencent.Word
	for i, s := range texts {
		from := start + float64(i)*0.25
		out = append(out, tencent.Word{Text: s, Start: from, End: from + 0.25})
	}
	return out
}

func TestGroupLines(t *testing.T) {
	t.Run("punctuation and english spacing", func(t *testing.T) {
		lines := groupLines([]tencent.Sentence{{Words: words(0, "hello", "world,", "again")}})
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %+v", lines)
		}
		if lines[0].Text != "hello world" || lines[0].Time != 0 || *lines[0].EndTime != 0.5 {
			t.Errorf("unexpected first line %+v", lines[0])
		}
		if lines[1].Text != "again" || lines[1].Time != 0.5 {
			t.Errorf("unexpected second line %+v", lines[1])
		}
	})

	t.Run("gap", func(t *testing.T) {
		ws := []tencent.Word{
			{Text: "我", Start: 3, End: 3.25},
			{Text: "们", Start: 3.25, End: 3.5},
			{Text: "走", Start: 4.5, End: 4.75},
		}
		lines := groupLines([]tencent.Sentence{{Words: ws}})
		if len(lines) != 2 || lines[0].Text != "我们" || lines[1].Text != "走" || lines[1].Time != 4.5 {
			t.Errorf("unexpected lines %+v", lines)
		}
	})

	t.Run("length", func(t *testing.T) {
		var texts []string
		for i := 0; i < 30; i++ {
			texts = append(texts, "啦")
		}
		lines := groupLines([]tencent.Sentence{{Words: words(0, texts...)}})
		if len(lines) != 2 || len([]rune(lines[0].Text)) != maxLineRunes {
			t.Errorf("unexpected split %+v", lines)
		}
	})

	t.Run("sentence without words", func(t *testing.T) {
		lines := groupLines([]tencent.Sentence{{Text: "结束。", Start: 6, End: 7}})
		if len(lines) != 1 || lines[0].Text != "结束" || *lines[0].EndTime != 7 {
			t.Errorf("unexpected lines %+v", lines)
		}
	})
}

func TestTencentTranscribe(t *testing.T) {
	rec := &fakeRecognizer{sentences: []tencent.Sentence{{Words: words(1, "la", "la.")}}}
	tc := &Tencent{asr: rec, engine: engineFor("en")}

	srt, err := tc.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if rec.engine != "16k_en" {
		t.Errorf("unexpected engine %s", rec.engine)
	}
	if !strings.Contains(srt, "00:00:01,000 --> 00:00:01,500\nla la") {
		t.Errorf("unexpected srt %q", srt)
	}

	rec.sentences = nil
	if _, err := tc.Transcribe(context.Background(), writeAudio(t)); !errors.Is(err, lyrics.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFactory(t *testing.T) {
	if _, err := Factory(Config{Provider: "nope"}); !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("expected ErrUnsupportedProvider, got %v", err)
	}
	if _, err := Factory(Config{Provider: "whisper"}); err == nil {
		t.Error("whisper without base url should fail")
	}
	if _, err := Factory(Config{Provider: "tencent"}); err == nil {
		t.Error("tencent without credentials should fail")
	}

	tr, err := Factory(Config{Provider: "whisper", BaseURL: "http://localhost:8080", Compress: true})
	if err != nil {
		t.Fatalf("Factory failed: %v", err)
	}
	if _, ok := tr.(*compressed); !ok {
		t.Errorf("expected compressing wrapper, got %T", tr)
	}
}

type fakeTranscriber struct {
	result string
	err    error
}

func (f fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return f.result, f.err
}

func TestJobs(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		jobs := NewJobs(fakeTranscriber{result: sampleSRT})

		var mu sync.Mutex
		var finished Job
		id := jobs.Submit(context.Background(), "a.mp3", func(j Job) {
			mu.Lock()
			finished = j
			mu.Unlock()
		})
		jobs.Wait()

		job, ok := jobs.Get(id)
		if !ok || job.Status != StatusCompleted || job.Result != sampleSRT {
			t.Errorf("unexpected job %+v", job)
		}
		mu.Lock()
		defer mu.Unlock()
		if finished.ID != id || finished.Status != StatusCompleted {
			t.Errorf("callback got %+v", finished)
		}
	})

	t.Run("failed", func(t *testing.T) {
		jobs := NewJobs(fakeTranscriber{err: errors.New("offline")})
		id := jobs.Submit(context.Background(), "a.mp3", nil)
		jobs.Wait()

		job, _ := jobs.Get(id)
		if job.Status != StatusFailed || job.Err == nil {
			t.Errorf("unexpected job %+v", job)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, ok := NewJobs(fakeTranscriber{}).Get("missing"); ok {
			t.Error("expected no job")
		}
	})
}
