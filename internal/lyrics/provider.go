package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"molten-lyrics/internal/player"
	"molten-lyrics/pkg/ai"
	"molten-lyrics/pkg/fileutil"
	"molten-lyrics/pkg/music"
)

const (
	identifyRetries = 3
	redisKeyPrefix  = "lyrics:"
	redisExpiration = 30 * 24 * time.Hour
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "lyrics").Logger()
	return &l
}

var (
	unsafeFilename  = regexp.MustCompile(`[\\/:*?"<>|]`)
	errNotASong     = errors.New("not a song")
	cacheExtensions = []Format{FormatLRC, FormatSRT}
)

// Fetcher looks lyrics up online.
type Fetcher interface {
	Lookup(ctx context.Context, q music.Query) (music.Match, error)
}

// Cache is a shared remote lyric cache.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}

// Memo remembers AI identification results by raw media title.
type Memo interface {
	Get(key string) (string, error)
	Add(key, value string) error
}

// Translator translates a single lyric line.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Result is a resolved lyric sequence and where it came from.
type Result struct {
	Lines  []Line
	Source string // local, cache, redis, online
	Title  string
	Artist string
}

type Provider struct {
	cacheDir   string
	fetcher    Fetcher
	aiClient   ai.Client
	redis      Cache
	memo       Memo
	translator Translator
	target     string
}

type ProviderOption func(*Provider)

// WithAI enables identification of title and artist from raw media titles.
func WithAI(c ai.Client) ProviderOption {
	return func(p *Provider) { p.aiClient = c }
}

func WithRedis(c Cache) ProviderOption {
	return func(p *Provider) { p.redis = c }
}

func WithMemo(m Memo) ProviderOption {
	return func(p *Provider) { p.memo = m }
}

// WithTranslator adds a translation below every line in the target language.
func WithTranslator(t Translator, target string) ProviderOption {
	return func(p *Provider) {
		p.translator = t
		p.target = target
	}
}

func NewProvider(cacheDir string, fetcher Fetcher, opts ...ProviderOption) *Provider {
	p := &Provider{cacheDir: cacheDir, fetcher: fetcher}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func formatQuerySong(title string) string {
	return fmt.Sprintf(`请精确地按照以下JSON格式提取歌曲信息: {"is_song": true, "title": "歌曲标题", "artist": "演唱者"}。  输入是一个媒体标题，如果标题中包含歌曲信息，请返回符合格式的JSON；否则，返回{"is_song": false}。 请注意，"title" 和 "artist" 必须准确，否则将被视为错误，切记不要任何markdown格式，并将繁体中文转换为简体。 媒体标题是：%s`, title)
}

// Resolve finds lyrics for song: a sidecar file next to the audio, then the
// cache, then AI identification and the online providers.
func (p *Provider) Resolve(ctx context.Context, song player.Song) (*Result, error) {
	if song.Path != "" {
		if path, err := FindMatching(song.Path); err == nil {
			lines, err := ReadFile(path)
			if err == nil && len(lines) > 0 {
				logger().Info().Str("path", path).Msg("Using local lyric file")
				return p.finish(ctx, &Result{Lines: lines, Source: "local", Title: song.Title, Artist: song.Artist})
			}
			logger().Warn().Err(err).Str("path", path).Msg("Ignoring unusable lyric file")
		}
	}

	if res, ok := p.fromCache(ctx, song.Title, song.Artist); ok {
		return p.finish(ctx, res)
	}

	title, artist := song.Title, song.Artist
	if p.aiClient != nil {
		info, err := p.identify(ctx, song.Identifier())
		switch {
		case errors.Is(err, errNotASong):
			return nil, fmt.Errorf("%w: '%s' is not a song", ErrNotFound, song.Identifier())
		case err != nil:
			logger().Warn().Err(err).Msg("Song identification failed, using player metadata")
		default:
			title, artist = info.Title, info.Artist
			if res, ok := p.fromCache(ctx, title, artist); ok {
				return p.finish(ctx, res)
			}
		}
	}

	if p.fetcher == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, song.Identifier())
	}
	logger().Info().Str("title", title).Str("artist", artist).Msg("Cache MISS, fetching from API")

	match, err := p.fetcher.Lookup(ctx, music.Query{Title: title, Artist: artist, Duration: song.Duration})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get lyrics for '%s - %s': %v", ErrNotFound, title, artist, err)
	}
	content := match.Content
	lines := ParseLRC(content)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no synced lyrics for '%s - %s' from %s", ErrNotFound, title, artist, match.Source)
	}

	if err := p.Store(ctx, title, artist, FormatLRC, content); err != nil {
		logger().Error().Err(err).Msg("Failed to write lyric cache")
	}
	return p.finish(ctx, &Result{Lines: lines, Source: "online", Title: title, Artist: artist})
}

// Store caches content for title and artist, in redis when configured and
// otherwise as a file in the cache directory.
func (p *Provider) Store(ctx context.Context, title, artist string, format Format, content string) error {
	key := cacheKey(title, artist)
	if p.redis != nil {
		return p.redis.Put(ctx, redisKeyPrefix+key, content, redisExpiration)
	}
	path := filepath.Join(p.cacheDir, key+"."+string(format))
	logger().Info().Str("path", path).Msg("Saving lyrics to cache file")
	return fileutil.WriteFileAtomic(path, []byte(content), 0644)
}

func (p *Provider) fromCache(ctx context.Context, title, artist string) (*Result, bool) {
	if strings.TrimSpace(title) == "" {
		return nil, false
	}
	key := cacheKey(title, artist)

	if p.redis != nil {
		content, err := p.redis.Get(ctx, redisKeyPrefix+key)
		if err != nil {
			logger().Warn().Err(err).Msg("Redis lookup failed")
		} else if content != "" {
			if lines, _ := Parse(Detect(content), content); len(lines) > 0 {
				logger().Info().Str("key", key).Msg("Redis cache HIT")
				return &Result{Lines: lines, Source: "redis", Title: title, Artist: artist}, true
			}
		}
	}

	for _, format := range cacheExtensions {
		path := filepath.Join(p.cacheDir, key+"."+string(format))
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if lines, _ := Parse(format, string(content)); len(lines) > 0 {
			logger().Info().Str("path", path).Msg("Cache HIT")
			return &Result{Lines: lines, Source: "cache", Title: title, Artist: artist}, true
		}
	}
	return nil, false
}

func (p *Provider) identify(ctx context.Context, raw string) (music.SongInfo, error) {
	var info music.SongInfo
	if p.memo != nil {
		if v, err := p.memo.Get(raw); err == nil && json.Unmarshal([]byte(v), &info) == nil {
			if !info.IsSong {
				return info, errNotASong
			}
			return info, nil
		}
	}

	var rawSongInfo string
	var err error
	for i := range identifyRetries {
		rawSongInfo, err = p.aiClient.HandleText(ctx, formatQuerySong(raw))
		if err == nil {
			break
		}
		logger().Warn().Err(err).Int("attempt", i+1).Str("model", p.aiClient.Name()).Msg("Failed to query AI")
		select {
		case <-ctx.Done():
			return info, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	if err != nil {
		return info, fmt.Errorf("failed to query %s after %d attempts: %w", p.aiClient.Name(), identifyRetries, err)
	}

	cleaned := ai.CleanJSON(rawSongInfo)
	if err := json.Unmarshal([]byte(cleaned), &info); err != nil {
		return info, fmt.Errorf("failed to parse %s response: %w", p.aiClient.Name(), err)
	}
	if p.memo != nil {
		if err := p.memo.Add(raw, cleaned); err != nil {
			logger().Warn().Err(err).Msg("Failed to remember identification")
		}
	}
	if !info.IsSong {
		return info, errNotASong
	}
	logger().Info().Str("title", info.Title).Str("artist", info.Artist).Msg("AI returned song info")
	return info, nil
}

func (p *Provider) finish(ctx context.Context, res *Result) (*Result, error) {
	res.Lines = MergeSameTime(Normalize(res.Lines))
	if p.translator != nil {
		res.Lines = p.translate(ctx, res.Lines)
	}
	return res, nil
}

// translate appends a translation row to lines that have none. The first
// failure stops translation and the remaining lines stay as they are.
func (p *Provider) translate(ctx context.Context, lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	for i, l := range out {
		text := strings.TrimSpace(l.Text)
		if text == "" || strings.Contains(text, "\n") {
			continue
		}
		translated, err := p.translator.Translate(ctx, text, p.target)
		if err != nil {
			logger().Warn().Err(err).Int("index", i).Msg("Translation failed, keeping original lyrics")
			break
		}
		if translated = strings.TrimSpace(translated); translated != "" && translated != text {
			out[i].Text = text + "\n" + translated
		}
	}
	return out
}

func cacheKey(title, artist string) string {
	name := strings.TrimSpace(title)
	if artist = strings.TrimSpace(artist); artist != "" {
		name += "-" + artist
	}
	return unsafeFilename.ReplaceAllString(name, "-")
}
