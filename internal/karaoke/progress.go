package karaoke

import "molten-lyrics/internal/lyrics"

const (
	// DefaultFallbackDuration is the duration of a final line that has no
	// end time and no following line.
	DefaultFallbackDuration = 2.0

	// degenerateDuration replaces a zero or negative duration.
	degenerateDuration = 1.0
)

// Duration returns the effective duration D of lines[index]:
// the explicit end time if present, else the gap to the next line, else
// fallback. Non-positive results are replaced by one second.
func Duration(lines []lyrics.Line, index int, fallback float64) float64 {
	if index < 0 || index >= len(lines) {
		return degenerateDuration
	}
	l := lines[index]

	var d float64
	if end, ok := l.End(); ok {
		d = end - l.Time
	} else if index+1 < len(lines) {
		d = lines[index+1].Time - l.Time
	} else {
		d = fallback
	}

	if d <= 0 {
		return degenerateDuration
	}
	return d
}

// Progress returns clamp((at - start) / D, 0, 1) for lines[index] using
// DefaultFallbackDuration. It returns 0 for an out of range index.
func Progress(lines []lyrics.Line, index int, at float64) float64 {
	return progress(lines, index, at, DefaultFallbackDuration)
}

func progress(lines []lyrics.Line, index int, at, fallback float64) float64 {
	if index < 0 || index >= len(lines) {
		return 0
	}
	d := Duration(lines, index, fallback)
	return clamp01((at - lines[index].Time) / d)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
