package netease

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "netease").Logger()
	return &l
}

var lyricTagPattern = regexp.MustCompile(`\[(\d{2}:\d{2}\.\d{2,3})\](.*)`)

type song struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"` // 毫秒
	Artists  []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

func (s *song) hasArtist(name string) bool {
	// 可能有多个歌手，只要一个满足就算
	for _, a := range s.Artists {
		if containsIgnoreCase(a.Name, name) {
			return true
		}
	}
	return false
}

type searchResponse struct {
	Result struct {
		Songs []song `json:"songs"`
	} `json:"result"`
}

type lyricResponse struct {
	Nolyric     bool `json:"nolyric"`
	Uncollected bool `json:"uncollected"`
	Lrc         struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
	Tlyric struct {
		Lyric string `json:"lyric"`
	} `json:"tlyric"`
}

// Client 网易云音乐客户端，NETEASE_COOKIE 环境变量可提供登录 cookie
type Client struct {
	httpClient     *http.Client
	baseURL        string
	cookie         string
	maxRetries     int
	requestTimeout time.Duration
}

// NewClient 创建新的网易云音乐客户端
func NewClient() *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		baseURL:        "https://music.163.com",
		cookie:         os.Getenv("NETEASE_COOKIE"),
		maxRetries:     3,
		requestTimeout: 5 * time.Second,
	}
}

// doRequestWithRetry 发送请求，网络错误或 5xx 时按退避重试
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Duration(attempt*100) * time.Millisecond):
			}
			logger().Info().Int("attempt", attempt+1).Int("max_retries", attempts).Msg("Retrying request")
		}

		ctx := req.Context()
		var cancel context.CancelFunc = func() {}
		if c.requestTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		}

		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err != nil {
			cancel()
			lastErr = err
			logger().Warn().Err(err).Int("attempt", attempt+1).Msg("Request failed")
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			cancel()
			lastErr = fmt.Errorf("request returned status %d", resp.StatusCode)
			logger().Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("Request failed")
			continue
		}

		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}
	// 设置Cookie
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	return req, nil
}

func (c *Client) Name() string {
	return "netease"
}

// Lookup searches by title, picks the song matching artist and duration and
// returns its lyrics with the translation rows merged in.
func (c *Client) Lookup(ctx context.Context, title, artist string, duration float64) (string, error) {
	id, err := c.search(ctx, title, artist, duration)
	if err != nil {
		return "", err
	}
	return c.lyric(ctx, id)
}

func (c *Client) search(ctx context.Context, title, artist string, duration float64) (int, error) {
	keyword := strings.TrimSpace(title + " " + artist)
	searchURL := fmt.Sprintf("%s/api/search/get/web?csrf_token=hlpretag&hlposttag=&s=%s&type=1&limit=30", c.baseURL, url.QueryEscape(keyword))
	logger().Debug().Str("url", searchURL).Msg("Searching for song")

	var searchResp searchResponse
	if err := c.getJSON(ctx, searchURL, &searchResp); err != nil {
		return 0, fmt.Errorf("search failed: %w", err)
	}
	if len(searchResp.Result.Songs) == 0 {
		return 0, fmt.Errorf("no songs found for '%s'", keyword)
	}

	match := bestMatch(searchResp.Result.Songs, title, artist, duration)
	if match == nil {
		return 0, fmt.Errorf("no matching song found for '%s' by '%s'", title, artist)
	}
	logger().Info().Str("song", match.Name).Int("id", match.ID).Int("duration_ms", match.Duration).Msg("Found matching song")
	return match.ID, nil
}

func (c *Client) lyric(ctx context.Context, id int) (string, error) {
	lyricURL := fmt.Sprintf("%s/api/song/lyric?os=pc&id=%d&lv=-1&kv=-1&tv=-1", c.baseURL, id)

	var lyricResp lyricResponse
	if err := c.getJSON(ctx, lyricURL, &lyricResp); err != nil {
		return "", fmt.Errorf("lyric request failed: %w", err)
	}
	if lyricResp.Nolyric || lyricResp.Uncollected || strings.TrimSpace(lyricResp.Lrc.Lyric) == "" {
		return "", fmt.Errorf("song %d has no lyrics", id)
	}
	// 有翻译时合并为同一时间戳的双语歌词
	if strings.TrimSpace(lyricResp.Tlyric.Lyric) != "" {
		return combineLyrics(lyricResp.Lrc.Lyric, lyricResp.Tlyric.Lyric), nil
	}
	return lyricResp.Lrc.Lyric, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := c.newRequest(ctx, rawURL)
	if err != nil {
		return err
	}
	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// bestMatch 标题必须匹配；歌手匹配优先，其次时长误差在 3 秒内，最后取第一个标题匹配的
func bestMatch(songs []song, title, artist string, duration float64) *song {
	var titleOnly, artistOnly *song
	for i := range songs {
		s := &songs[i]
		if !containsIgnoreCase(s.Name, title) {
			continue
		}
		if titleOnly == nil {
			titleOnly = s
		}
		if artist == "" || !s.hasArtist(artist) {
			continue
		}
		if duration <= 0 || math.Abs(float64(s.Duration)/1000-duration) <= 3 {
			return s
		}
		if artistOnly == nil {
			artistOnly = s
		}
	}
	if artistOnly != nil {
		return artistOnly
	}
	return titleOnly
}

// combineLyrics 合并原文和翻译歌词
func combineLyrics(originalLyrics, translatedLyrics string) string {
	originalLines := parseLyrics(originalLyrics)
	translatedLines := parseLyrics(translatedLyrics)

	var timestamps []string
	for t := range originalLines {
		timestamps = append(timestamps, t)
	}
	sort.Strings(timestamps)

	var combinedLyrics strings.Builder
	for _, t := range timestamps {
		combinedLyrics.WriteString(fmt.Sprintf("[%s]%s\n", t, originalLines[t]))
		if translated, ok := translatedLines[t]; ok {
			combinedLyrics.WriteString(fmt.Sprintf("[%s]%s\n", t, translated))
		}
	}

	return strings.TrimSpace(combinedLyrics.String())
}

// parseLyrics 解析歌词，提取时间戳和歌词内容
func parseLyrics(lyricText string) map[string]string {
	lines := make(map[string]string)
	matches := lyricTagPattern.FindAllStringSubmatch(lyricText, -1)
	for _, match := range matches {
		if len(match) > 2 {
			time := match[1]
			text := strings.TrimSpace(match[2])
			if text != "" {
				lines[time] = text
			}
		}
	}
	return lines
}

// normalizeString 标准化字符串（转小写，去空格）
func normalizeString(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// containsIgnoreCase 忽略大小写和空格的包含关系检查
func containsIgnoreCase(s1, s2 string) bool {
	norm1, norm2 := normalizeString(s1), normalizeString(s2)
	return strings.Contains(norm1, norm2) || strings.Contains(norm2, norm1)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
