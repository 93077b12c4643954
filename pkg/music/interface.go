// Package music looks synced lyrics up on online lyric services.
package music

import (
	"context"
	"fmt"
	"strings"
)

// Query describes the track a source is asked about. Duration is in seconds,
// zero when unknown.
type Query struct {
	Title    string
	Artist   string
	Duration float64
}

func (q Query) String() string {
	if strings.TrimSpace(q.Artist) == "" {
		return fmt.Sprintf("'%s'", q.Title)
	}
	return fmt.Sprintf("'%s - %s'", q.Title, q.Artist)
}

// Source returns LRC text for a track.
type Source interface {
	Name() string
	Lookup(ctx context.Context, title, artist string, duration float64) (string, error)
}

// Match is an LRC document and the source that returned it.
type Match struct {
	Source  string
	Content string
}

// SongInfo 歌曲信息，AI 识别媒体标题的结果
type SongInfo struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Duration float64 `json:"duration"` // 歌曲时长（秒）
	IsSong   bool    `json:"is_song"`
}
