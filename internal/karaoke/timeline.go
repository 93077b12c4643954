// Package karaoke turns a timed lyric sequence and a playback clock into the
// active line, its fill progress and the per-character highlight used for
// karaoke rendering, and projects that state to overlay surfaces.
package karaoke

import (
	"sort"

	"molten-lyrics/internal/lyrics"
)

// Timeline is an immutable, time-ordered lyric sequence. Lines with equal
// start times keep their original relative order.
type Timeline struct {
	lines    []lyrics.Line
	fallback float64
}

// NewTimeline copies and stable-sorts lines. fallback is the duration given
// to a final line without an end time; values <= 0 select DefaultFallbackDuration.
func NewTimeline(lines []lyrics.Line, fallback float64) *Timeline {
	if fallback <= 0 {
		fallback = DefaultFallbackDuration
	}
	return &Timeline{lines: lyrics.Normalize(lines), fallback: fallback}
}

func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.lines)
}

// Lines returns the normalized sequence. Callers must not modify it.
func (t *Timeline) Lines() []lyrics.Line {
	if t == nil {
		return nil
	}
	return t.lines
}

func (t *Timeline) Line(i int) (lyrics.Line, bool) {
	if t == nil || i < 0 || i >= len(t.lines) {
		return lyrics.Line{}, false
	}
	return t.lines[i], true
}

// Locate returns the index of the line active at time at, or -1.
func (t *Timeline) Locate(at float64) int {
	if t == nil {
		return -1
	}
	return locateSorted(t.lines, at)
}

// Progress returns the fill progress of line index at time at.
func (t *Timeline) Progress(index int, at float64) float64 {
	if t == nil {
		return 0
	}
	return progress(t.lines, index, at, t.fallback)
}

// Locate returns the index of the last started line at time at: the line
// with the greatest start time <= at, and among lines sharing that start
// time the first one. It returns -1 for an empty sequence or a time before
// the first line. Unsorted input is treated as if stable-sorted first; the
// returned index then refers to the sorted order.
func Locate(lines []lyrics.Line, at float64) int {
	if !lyrics.IsSorted(lines) {
		lines = lyrics.Normalize(lines)
	}
	return locateSorted(lines, at)
}

func locateSorted(lines []lyrics.Line, at float64) int {
	n := len(lines)
	if n == 0 || at < lines[0].Time {
		return -1
	}

	// 二分查找最后一个 Time <= at 的行
	last := sort.Search(n, func(i int) bool { return lines[i].Time > at }) - 1
	if last < 0 {
		return -1
	}

	// 相同开始时间时取原顺序中的第一行
	start := lines[last].Time
	return sort.Search(last+1, func(i int) bool { return lines[i].Time >= start })
}
