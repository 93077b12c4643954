// Package term draws karaoke lines in a terminal.
package term

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"molten-lyrics/internal/karaoke"
	"molten-lyrics/internal/settings"
)

const clearScreen = "\033[H\033[2J"

// Renderer colours sung runes with the active colour, pending runes with the
// base colour and the rune being sung with a blend of both. The focused word
// is bold.
type Renderer struct {
	out    io.Writer
	r      *lipgloss.Renderer
	title  string
	base   string
	active string

	mu   sync.Mutex
	last string
}

func NewRenderer(out io.Writer, title string, d settings.Display) *Renderer {
	return &Renderer{
		out:    out,
		r:      lipgloss.NewRenderer(out),
		title:  title,
		base:   d.Color,
		active: d.ActiveColor,
	}
}

// Line renders one karaoke state. Rows of a multi-line text share the same
// progress.
func (t *Renderer) Line(state karaoke.State) string {
	if state.Index < 0 || state.Text == "" {
		return t.r.NewStyle().Foreground(lipgloss.Color(t.base)).Faint(true).Render("♪")
	}
	rows := karaoke.SplitLines(state.Text, state.Progress)
	out := make([]string, len(rows))
	for i, words := range rows {
		var b strings.Builder
		for _, w := range words {
			b.WriteString(t.word(w))
		}
		out[i] = b.String()
	}
	return strings.Join(out, "\n")
}

func (t *Renderer) word(w karaoke.Word) string {
	if w.Space {
		return w.Text
	}
	var b strings.Builder
	for i, r := range []rune(w.Text) {
		color := t.base
		switch fill := w.Fill[i]; {
		case fill >= 1:
			color = t.active
		case fill > 0:
			color = blend(t.base, t.active, fill)
		}
		style := t.r.NewStyle().Foreground(lipgloss.Color(color))
		if w.Focused {
			style = style.Bold(true)
		}
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}

// Draw redraws the screen when the rendered line changed. It is meant to be
// used as the engine's render callback.
func (t *Renderer) Draw(state karaoke.State) {
	line := t.Line(state)

	t.mu.Lock()
	defer t.mu.Unlock()
	if line == t.last {
		return
	}
	t.last = line

	header := t.r.NewStyle().Bold(true).Render(t.title)
	fmt.Fprintf(t.out, "%s%s\n\n%s\n", clearScreen, header, line)
}

// blend mixes two #rrggbb colours, t=0 gives a and t=1 gives b. Anything
// that is not a hex colour falls back to b.
func blend(a, b string, t float64) string {
	ca, okA := parseHex(a)
	cb, okB := parseHex(b)
	if !okA || !okB {
		return b
	}
	var mixed [3]int
	for i := range mixed {
		mixed[i] = int(float64(ca[i]) + (float64(cb[i])-float64(ca[i]))*t + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", mixed[0], mixed[1], mixed[2])
}

func parseHex(s string) ([3]int, bool) {
	var c [3]int
	if len(s) != 7 || s[0] != '#' {
		return c, false
	}
	for i := range c {
		v, err := strconv.ParseUint(s[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return c, false
		}
		c[i] = int(v)
	}
	return c, true
}
