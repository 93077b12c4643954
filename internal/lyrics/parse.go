package lyrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format 歌词文件格式
type Format string

const (
	FormatLRC Format = "lrc"
	FormatSRT Format = "srt"
)

// 与音频同名的歌词文件，按顺序查找
var sidecarExts = []string{".lrc", ".srt", ".LRC", ".SRT"}

// FormatFromPath 根据扩展名判断格式
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lrc":
		return FormatLRC, nil
	case ".srt":
		return FormatSRT, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Parse 按格式解析歌词文本
func Parse(format Format, content string) ([]Line, error) {
	switch format {
	case FormatLRC:
		return ParseLRC(content), nil
	case FormatSRT:
		return ParseSRT(content), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ReadFile 读取并解析歌词文件
func ReadFile(path string) ([]Line, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lyric file %s: %w", path, err)
	}
	return Parse(format, string(content))
}

// FindMatching 查找与音频文件同名的 .lrc/.srt 文件
func FindMatching(audioPath string) (string, error) {
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	for _, ext := range sidecarExts {
		candidate := base + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no sidecar for %s", ErrNotFound, audioPath)
}

// Detect 根据内容猜测格式，SRT 必有 "-->" 时间行
func Detect(content string) Format {
	if strings.Contains(content, "-->") {
		return FormatSRT
	}
	return FormatLRC
}
