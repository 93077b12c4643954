package lyrics

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

var lrcTimeTag = regexp.MustCompile(`\[(\d{2}):(\d{2})(?:\.(\d{1,3}))?\]`)

// ParseLRC 解析 LRC 歌词。一行可以有多个时间标签，空歌词行会被跳过
func ParseLRC(lrc string) []Line {
	scanner := bufio.NewScanner(strings.NewReader(lrc))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var result []Line

	for scanner.Scan() {
		line := scanner.Text()
		matches := lrcTimeTag.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			continue
		}
		text := strings.TrimSpace(lrcTimeTag.ReplaceAllString(line, ""))
		if text == "" {
			continue
		}
		for _, match := range matches {
			result = append(result, Line{Time: lrcTimestamp(match[1], match[2], match[3]), Text: text})
		}
	}
	return Normalize(result)
}

func lrcTimestamp(minStr, secStr, fracStr string) float64 {
	min, _ := strconv.Atoi(minStr)
	sec, _ := strconv.Atoi(secStr)
	ms := 0
	if fracStr != "" {
		ms, _ = strconv.Atoi(fracStr)
		// 根据毫秒字符串的长度来正确处理毫秒值
		switch len(fracStr) {
		case 1:
			ms *= 100 // .1 表示 100ms
		case 2:
			ms *= 10 // .49 表示 490ms
		}
	}
	return float64(min*60+sec) + float64(ms)/1000
}
