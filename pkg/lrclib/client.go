// Package lrclib queries lrclib.net for synced lyrics.
package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL = "https://lrclib.net/api"
	userAgent      = "molten-lyrics/1.0 (https://lrclib.net)"
	// 时长误差在这个范围内视为同一版本
	durationSlack = 3.0
)

// ErrNoSynced is returned when lrclib only has plain lyrics for a track,
// which cannot drive karaoke timing.
var ErrNoSynced = errors.New("no synced lyrics")

func logger() *zerolog.Logger {
	l := log.With().Str("component", "lrclib").Logger()
	return &l
}

// Record is one entry of the /search response.
type Record struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	retries    int
	backoff    time.Duration
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    defaultBaseURL,
		retries:    3,
		backoff:    500 * time.Millisecond,
	}
}

func (c *Client) Name() string {
	return "lrclib"
}

// Lookup searches by title and artist and returns the synced lyrics of the
// record closest to the given duration.
func (c *Client) Lookup(ctx context.Context, title, artist string, duration float64) (string, error) {
	records, err := c.search(ctx, title, artist)
	if err != nil {
		return "", err
	}
	logger().Debug().Int("results", len(records)).Str("title", title).Str("artist", artist).Msg("Search finished")

	best := pick(records, title, artist, duration)
	if best == nil {
		if len(records) > 0 {
			return "", fmt.Errorf("%w for '%s - %s'", ErrNoSynced, title, artist)
		}
		return "", fmt.Errorf("no results for '%s - %s'", title, artist)
	}
	logger().Info().
		Int("id", best.ID).
		Str("track", best.TrackName).
		Str("artist", best.ArtistName).
		Float64("duration", best.Duration).
		Float64("target", duration).
		Msg("Selected synced lyrics")
	return best.SyncedLyrics, nil
}

func (c *Client) search(ctx context.Context, title, artist string) ([]Record, error) {
	params := url.Values{}
	params.Set("track_name", title)
	if artist != "" {
		params.Set("artist_name", artist)
	}
	searchURL := c.baseURL + "/search?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
			logger().Info().Int("attempt", attempt).Int("max_retries", c.retries).Msg("Retrying search")
		}

		records, retry, err := c.get(ctx, searchURL)
		if err == nil {
			return records, nil
		}
		lastErr = err
		if !retry {
			break
		}
		logger().Warn().Err(err).Int("attempt", attempt+1).Msg("Search failed")
	}
	return nil, fmt.Errorf("lrclib search failed: %w", lastErr)
}

// get reports whether a failed request is worth retrying.
func (c *Client) get(ctx context.Context, rawURL string) ([]Record, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests,
			fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}
	return records, false, nil
}

// pick scores records with synced lyrics: a title match outweighs an artist
// match, which outweighs a duration within durationSlack. Ties go to the
// closer duration and then to search order.
func pick(records []Record, title, artist string, duration float64) *Record {
	var best *Record
	bestScore, bestDiff := -1, math.Inf(1)
	for i := range records {
		r := &records[i]
		if r.Instrumental || strings.TrimSpace(r.SyncedLyrics) == "" {
			continue
		}

		score := 0
		if containsFold(r.TrackName, title) {
			score += 4
		}
		if artist != "" && containsFold(r.ArtistName, artist) {
			score += 2
		}
		diff := 0.0
		if duration > 0 {
			diff = math.Abs(r.Duration - duration)
			if diff <= durationSlack {
				score++
			}
		}

		if score > bestScore || (score == bestScore && diff < bestDiff) {
			best, bestScore, bestDiff = r, score, diff
		}
	}
	return best
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
