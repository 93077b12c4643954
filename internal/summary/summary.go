// Package summary asks a language model for a short summary of a
// transcript.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"molten-lyrics/internal/lyrics"
	"molten-lyrics/pkg/ai"
)

const (
	maxTranscriptRunes = 8000
	cacheTTL           = 30 * 24 * time.Hour
)

var ErrEmptyTranscript = errors.New("transcript is empty")

func logger() *zerolog.Logger {
	l := log.With().Str("component", "summary").Logger()
	return &l
}

// Cache keeps generated summaries, redis in practice.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}

type Summarizer struct {
	client ai.Client
	cache  Cache
}

func New(client ai.Client, cache Cache) *Summarizer {
	return &Summarizer{client: client, cache: cache}
}

// Summarize returns a summary of lines. A non-empty key enables caching.
func (s *Summarizer) Summarize(ctx context.Context, key string, lines []lyrics.Line) (string, error) {
	transcript := Transcript(lines)
	if transcript == "" {
		return "", ErrEmptyTranscript
	}

	if key != "" && s.cache != nil {
		if cached, err := s.cache.Get(ctx, "summary:"+key); err == nil && cached != "" {
			logger().Debug().Str("key", key).Msg("Summary cache hit")
			return cached, nil
		}
	}

	logger().Info().Str("model", s.client.Name()).Int("lines", len(lines)).Msg("Requesting summary")
	out, err := s.client.HandleText(ctx, prompt(transcript))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("summarize: empty response")
	}

	if key != "" && s.cache != nil {
		if err := s.cache.Put(ctx, "summary:"+key, out, cacheTTL); err != nil {
			logger().Warn().Err(err).Msg("Failed to cache summary")
		}
	}
	return out, nil
}

// Transcript renders lines as "[mm:ss] text", cut to a size models accept.
func Transcript(lines []lyrics.Line) string {
	var b strings.Builder
	runes := 0
	for _, l := range lines {
		text := strings.TrimSpace(strings.ReplaceAll(l.Text, "\n", " "))
		if text == "" {
			continue
		}
		entry := fmt.Sprintf("[%02d:%02d] %s\n", int(l.Time)/60, int(l.Time)%60, text)
		n := len([]rune(entry))
		if runes+n > maxTranscriptRunes {
			break
		}
		b.WriteString(entry)
		runes += n
	}
	return strings.TrimSpace(b.String())
}

func prompt(transcript string) string {
	return "你是一个专业的播客文稿摘要助手。请根据以下带时间轴的转录文本，生成一份简洁生动的内容摘要。" +
		"要求：概括核心亮点，用时间轴标记关键话题，直接输出摘要内容。\n\n文本内容：\n" + transcript
}
