package karaoke

import (
	"strings"
	"unicode"
)

// Word is a maximal run of whitespace or of non-whitespace runes together
// with the fill fraction of each of its runes.
type Word struct {
	Text  string
	Fill  []float64 // one entry per rune, in [0,1]
	Start float64   // aggregate interval of the word within the line
	End   float64
	Space bool

	// Focused is set while the line progress is strictly inside the word.
	Focused bool
	// Sung is set once the line progress has passed the end of the word.
	Sung bool
}

// Split partitions text into alternating whitespace and non-whitespace runs
// and computes per-rune fill from the line progress. Rune i of N owns the
// interval [i/N, (i+1)/N).
func Split(text string, progress float64) []Word {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	total := float64(len(runes))

	var words []Word
	for i := 0; i < len(runes); {
		space := unicode.IsSpace(runes[i])
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) == space {
			j++
		}

		w := Word{
			Text:  string(runes[i:j]),
			Fill:  make([]float64, j-i),
			Start: float64(i) / total,
			End:   float64(j) / total,
			Space: space,
		}
		for k := i; k < j; k++ {
			w.Fill[k-i] = charFill(progress, float64(k)/total, float64(k+1)/total)
		}
		w.Focused = progress > w.Start && progress < w.End
		w.Sung = progress >= w.End
		words = append(words, w)
		i = j
	}
	return words
}

// SplitLines splits a multi-line text on "\n" and applies the same line
// progress to every row, the way the desktop overlay renders a translated
// line below the original.
func SplitLines(text string, progress float64) [][]Word {
	rows := strings.Split(text, "\n")
	out := make([][]Word, len(rows))
	for i, row := range rows {
		out[i] = Split(row, progress)
	}
	return out
}

func charFill(progress, start, end float64) float64 {
	switch {
	case progress >= end:
		return 1
	case progress <= start:
		return 0
	default:
		return (progress - start) / (end - start)
	}
}
