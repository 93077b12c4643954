package music

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoSource = errors.New("no lyric source configured")
	ErrNotFound = errors.New("lyrics not found")
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "music").Logger()
	return &l
}

// Chain asks its sources in order and returns the first non-empty answer.
type Chain struct {
	sources []Source
}

func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Names lists the sources in lookup order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}

func (c *Chain) Lookup(ctx context.Context, q Query) (Match, error) {
	if len(c.sources) == 0 {
		return Match{}, ErrNoSource
	}

	var errs []error
	for i, s := range c.sources {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}
		logger().Info().
			Str("source", s.Name()).
			Str("query", q.String()).
			Float64("duration", q.Duration).
			Int("attempt", i+1).
			Int("total_sources", len(c.sources)).
			Msg("Trying lyric source")

		content, err := s.Lookup(ctx, q.Title, q.Artist, q.Duration)
		if err == nil && strings.TrimSpace(content) == "" {
			err = errors.New("empty response")
		}
		if err != nil {
			logger().Warn().Err(err).Str("source", s.Name()).Msg("Lyric source failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}

		logger().Info().Str("source", s.Name()).Str("query", q.String()).Msg("Got lyrics")
		return Match{Source: s.Name(), Content: content}, nil
	}
	return Match{}, fmt.Errorf("%w for %s: %w", ErrNotFound, q, errors.Join(errs...))
}
