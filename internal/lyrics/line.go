package lyrics

import (
	"errors"
	"sort"
)

var (
	ErrNotFound          = errors.New("lyrics not found")
	ErrUnsupportedFormat = errors.New("unsupported lyric format")
)

// Line 一行带时间戳的歌词
type Line struct {
	Time    float64  `json:"time"`              // 开始时间（秒）
	EndTime *float64 `json:"endTime,omitempty"` // 结束时间（秒），LRC 没有
	Text    string   `json:"text"`              // 可以包含换行，用于双语/多行显示
}

// End 返回结束时间以及是否显式给出
func (l Line) End() (float64, bool) {
	if l.EndTime == nil {
		return 0, false
	}
	return *l.EndTime, true
}

// Seconds 用于构造 EndTime
func Seconds(v float64) *float64 {
	return &v
}

// IsSorted 判断歌词是否已按开始时间升序
func IsSorted(lines []Line) bool {
	return sort.SliceIsSorted(lines, func(i, j int) bool { return lines[i].Time < lines[j].Time })
}

// Normalize 返回按开始时间稳定排序后的副本，相同时间保持原有顺序
func Normalize(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// MergeSameTime 把开始时间相同的相邻行合并为一行多行文本，
// 例如原文和翻译共用一个时间戳的双语歌词
func MergeSameTime(lines []Line) []Line {
	if len(lines) == 0 {
		return nil
	}
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		n := len(out)
		if n > 0 && out[n-1].Time == l.Time {
			prev := &out[n-1]
			prev.Text += "\n" + l.Text
			if end, ok := l.End(); ok {
				if cur, has := prev.End(); !has || end > cur {
					prev.EndTime = Seconds(end)
				}
			}
			continue
		}
		out = append(out, l)
	}
	return out
}
