package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"molten-lyrics/internal/lyrics"
	"molten-lyrics/pkg/tencent"
)

const (
	maxLineRunes = 24
	maxWordGap   = 0.8
)

type recognizer interface {
	Recognize(ctx context.Context, audio []byte, engine string) ([]tencent.Sentence, error)
}

// Tencent uses Tencent Cloud file recognition and groups the recognized
// words into lyric sized lines.
type Tencent struct {
	asr    recognizer
	engine string
}

func NewTencent(secretID, secretKey, language string) (*Tencent, error) {
	if secretID == "" || secretKey == "" {
		return nil, fmt.Errorf("tencent secret id and key are required")
	}
	client, err := tencent.NewClient(secretID, secretKey)
	if err != nil {
		return nil, err
	}
	return &Tencent{asr: client, engine: engineFor(language)}, nil
}

func engineFor(language string) string {
	switch language {
	case "", "zh":
		return "16k_zh"
	case "en", "ja", "ko", "yue":
		return "16k_" + language
	default:
		return "16k_zh_en"
	}
}

func (t *Tencent) Transcribe(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", err
	}
	if len(audio) > tencent.MaxDataLen {
		return "", fmt.Errorf("%s is too large for tencent (%d bytes), enable compress", audioPath, len(audio))
	}

	sentences, err := t.asr.Recognize(ctx, audio, t.engine)
	if err != nil {
		return "", err
	}
	lines := groupLines(sentences)
	if len(lines) == 0 {
		return "", lyrics.ErrNotFound
	}
	logger().Info().Int("sentences", len(sentences)).Int("lines", len(lines)).Msg("Tencent recognition finished")
	return lyrics.EncodeSRT(lines), nil
}

// groupLines 按标点、停顿或长度把词拆成歌词行
func groupLines(sentences []tencent.Sentence) []lyrics.Line {
	var (
		out     []lyrics.Line
		text    strings.Builder
		start   float64
		end     float64
		pending bool
	)
	flush := func() {
		if !pending {
			return
		}
		if s := strings.TrimRightFunc(text.String(), isBreak); s != "" {
			out = append(out, lyrics.Line{Time: start, EndTime: lyrics.Seconds(end), Text: s})
		}
		text.Reset()
		pending = false
	}

	for _, s := range sentences {
		if len(s.Words) == 0 {
			flush()
			if t := strings.TrimRightFunc(strings.TrimSpace(s.Text), isBreak); t != "" {
				out = append(out, lyrics.Line{Time: s.Start, EndTime: lyrics.Seconds(s.End), Text: t})
			}
			continue
		}
		for _, w := range s.Words {
			word := strings.TrimSpace(w.Text)
			if word == "" {
				continue
			}
			if pending && (w.Start-end > maxWordGap || utf8.RuneCountInString(text.String()) >= maxLineRunes) {
				flush()
			}
			if !pending {
				start = w.Start
				pending = true
			} else if needsSpace(text.String(), word) {
				text.WriteByte(' ')
			}
			text.WriteString(word)
			end = w.End

			r, _ := utf8.DecodeLastRuneInString(word)
			if isBreak(r) {
				flush()
			}
		}
		flush()
	}
	return out
}

func isBreak(r rune) bool {
	return unicode.IsPunct(r) && r != '\'' && r != '-'
}

// needsSpace 英文单词之间补空格，中文不补
func needsSpace(prev, next string) bool {
	a, _ := utf8.DecodeLastRuneInString(prev)
	b, _ := utf8.DecodeRuneInString(next)
	return isLatin(a) && isLatin(b)
}

func isLatin(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
