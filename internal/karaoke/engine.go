package karaoke

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"molten-lyrics/internal/lyrics"
)

// logger 在首次使用时从全局 logger 派生，以便继承 CLI 设置的输出格式
func logger() *zerolog.Logger {
	l := log.With().Str("component", "karaoke").Logger()
	return &l
}

// Clock is the playback clock read once per tick.
type Clock interface {
	CurrentTime() float64
	IsPlaying() bool
}

// State is the derived per-tick state exposed to the UI.
type State struct {
	Index    int     // -1 while no line is active
	Progress float64 // fill progress of the active line
	Time     float64 // clock time after the lyric offset
	Text     string
	Words    []Word
}

// RenderFunc is called after every tick and after every sequence change.
type RenderFunc func(State)

// ActiveLineFunc is called when the active line index changes, e.g. to
// scroll a lyric list. line is the zero Line when index is -1.
type ActiveLineFunc func(index int, line lyrics.Line)

type Option func(*Engine)

func WithThreshold(v float64) Option {
	return func(e *Engine) { e.threshold = v }
}

func WithFallbackDuration(v float64) Option {
	return func(e *Engine) { e.fallback = v }
}

func WithRenderer(fn RenderFunc) Option {
	return func(e *Engine) { e.render = fn }
}

func WithActiveLineHandler(fn ActiveLineFunc) Option {
	return func(e *Engine) { e.onActive = fn }
}

// Engine holds the sync loop state: Idle or Running, the current lyric
// timeline, the lyric offset and the active line. It is not safe for
// concurrent use; Runner serializes all access on one goroutine.
type Engine struct {
	clock     Clock
	projector *Projector
	timeline  *Timeline

	fallback  float64
	threshold float64
	offset    float64
	overlay   bool
	running   bool

	state    State
	render   RenderFunc
	onActive ActiveLineFunc
}

func NewEngine(clock Clock, surface Surface, opts ...Option) *Engine {
	e := &Engine{
		clock:     clock,
		fallback:  DefaultFallbackDuration,
		threshold: DefaultThreshold,
		overlay:   true,
		state:     State{Index: -1},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.projector = NewProjector(surface, e.threshold)
	e.timeline = NewTimeline(nil, e.fallback)
	return e
}

// Load replaces the lyric sequence and resets the active line and the last
// overlay snapshot. The next tick samples against the new sequence.
func (e *Engine) Load(lines []lyrics.Line) {
	e.timeline = NewTimeline(lines, e.fallback)
	e.state = State{Index: -1}
	e.projector.Reset()
	logger().Info().Int("lines_count", e.timeline.Len()).Msg("Lyric sequence loaded")
	if e.render != nil {
		e.render(e.state)
	}
}

func (e *Engine) Timeline() *Timeline { return e.timeline }

// SetOffset sets the lyric offset in seconds added to the clock time.
// A non-finite offset is treated as 0.
func (e *Engine) SetOffset(seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	e.offset = seconds
}

func (e *Engine) Offset() float64 { return e.offset }

// SetOverlayEnabled turns overlay forwarding on or off. Re-enabling forces
// the next tick to forward.
func (e *Engine) SetOverlayEnabled(enabled bool) {
	if enabled && !e.overlay {
		e.projector.Reset()
	}
	e.overlay = enabled
}

// Start moves Idle -> Running. It reports whether the state changed.
func (e *Engine) Start() bool {
	if e.running {
		return false
	}
	e.running = true
	logger().Debug().Msg("Sync loop running")
	return true
}

// Stop moves Running -> Idle. It reports whether the state changed.
func (e *Engine) Stop() bool {
	if !e.running {
		return false
	}
	e.running = false
	logger().Debug().Msg("Sync loop idle")
	return true
}

func (e *Engine) Running() bool { return e.running }

func (e *Engine) State() State { return e.state }

// Tick samples the clock once and runs locate, progress, split and overlay
// forwarding in that order, then renders. A tick while Idle does nothing.
// When the clock reports that playback stopped the engine goes Idle.
func (e *Engine) Tick() {
	if !e.running {
		return
	}

	timeline := e.timeline
	at := e.clock.CurrentTime() + e.offset
	index := timeline.Locate(at)
	e.state.Time = at

	if index != e.state.Index {
		e.state.Index = index
		line, _ := timeline.Line(index)
		logger().Info().
			Int("index", index).
			Float64("player_time", at-e.offset).
			Float64("lyric_time", line.Time).
			Str("lyric", line.Text).
			Msg("Active line changed")
		if e.onActive != nil {
			e.onActive(index, line)
		}
	}

	if line, ok := timeline.Line(index); ok {
		e.state.Progress = timeline.Progress(index, at)
		e.state.Text = line.Text
		e.state.Words = Split(line.Text, e.state.Progress)
		if e.overlay {
			e.projector.Project(index, e.state.Progress, line.Text)
		}
	} else {
		e.state.Progress = 0
		e.state.Text = ""
		e.state.Words = nil
	}

	if e.render != nil {
		e.render(e.state)
	}

	if !e.clock.IsPlaying() {
		e.Stop()
	}
}
