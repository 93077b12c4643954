package lyrics

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	srtTimeRange = regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})`)
	srtBlankLine = regexp.MustCompile(`\n\s*\n`)
	htmlTag      = regexp.MustCompile(`<[^>]*>`)

	htmlEntities = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// ParseSRT 解析 SRT 字幕，保留结束时间和多行文本
func ParseSRT(content string) []Line {
	content = strings.TrimPrefix(strings.TrimSpace(content), "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	var result []Line
	for _, block := range srtBlankLine.Split(content, -1) {
		var rows []string
		for _, row := range strings.Split(block, "\n") {
			if row = strings.TrimSpace(row); row != "" {
				rows = append(rows, row)
			}
		}
		if len(rows) < 2 {
			continue
		}

		// 时间行可能在第1行或第2行（跳过序号行）
		timeRow := -1
		var match []string
		for i, row := range rows {
			if match = srtTimeRange.FindStringSubmatch(row); match != nil {
				timeRow = i
				break
			}
		}
		if timeRow == -1 || timeRow == len(rows)-1 {
			continue
		}

		text := strings.Join(rows[timeRow+1:], "\n")
		text = strings.TrimSpace(htmlEntities.Replace(htmlTag.ReplaceAllString(text, "")))
		if text == "" {
			continue
		}

		result = append(result, Line{
			Time:    srtTimestamp(match[1:5]),
			EndTime: Seconds(srtTimestamp(match[5:9])),
			Text:    text,
		})
	}

	// 排序并去掉重复时间点（精确到 0.01 秒，保留第一个）
	sorted := Normalize(result)
	unique := sorted[:0]
	seen := make(map[float64]struct{}, len(sorted))
	for _, l := range sorted {
		key := math.Floor(l.Time*100) / 100
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, l)
	}
	return unique
}

func srtTimestamp(parts []string) float64 {
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.Atoi(parts[2])
	ms, _ := strconv.Atoi(parts[3])
	return float64(h*3600+m*60+s) + float64(ms)/1000
}

// EncodeSRT 把歌词写回 SRT 格式。没有结束时间的行用下一行开始时间补齐
func EncodeSRT(lines []Line) string {
	var b strings.Builder
	for i, l := range lines {
		end, ok := l.End()
		if !ok {
			if i+1 < len(lines) {
				end = lines[i+1].Time
			} else {
				end = l.Time + 2
			}
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, formatSRTTime(l.Time), formatSRTTime(end), l.Text)
	}
	return b.String()
}

func formatSRTTime(seconds float64) string {
	total := int64(math.Round(math.Max(seconds, 0) * 1000))
	return fmt.Sprintf("%02d:%02d:%02d,%03d", total/3600000, total/60000%60, total/1000%60, total%1000)
}
