package karaoke

import (
	"context"
	"errors"
	"time"

	"molten-lyrics/internal/lyrics"
)

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = time.Second / 60

var ErrRunnerStopped = errors.New("karaoke runner stopped")

// Ticker delivers frame ticks. Stop must guarantee that the runner never
// observes another tick from this ticker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// Runner owns an Engine on a single goroutine. Frame ticks and commands
// (load, offset, play, pause) are handled one at a time, so a tick never
// observes a half-applied change and no tick runs after a pause.
type Runner struct {
	engine    *Engine
	newTicker func() Ticker
	cmds      chan func(*Engine)
	done      chan struct{}
}

// NewRunner creates a runner ticking every interval while the engine runs.
func NewRunner(engine *Engine, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return NewRunnerWithTicker(engine, func() Ticker {
		return timeTicker{time.NewTicker(interval)}
	})
}

// NewRunnerWithTicker uses newTicker to schedule frames.
func NewRunnerWithTicker(engine *Engine, newTicker func() Ticker) *Runner {
	return &Runner{
		engine:    engine,
		newTicker: newTicker,
		cmds:      make(chan func(*Engine), 64),
		done:      make(chan struct{}),
	}
}

// Run processes ticks and commands until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	var ticker Ticker
	var frames <-chan time.Time

	schedule := func() {
		switch {
		case r.engine.Running() && ticker == nil:
			ticker = r.newTicker()
			frames = ticker.C()
		case !r.engine.Running() && ticker != nil:
			ticker.Stop()
			ticker, frames = nil, nil
		}
	}
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	logger().Info().Msg("Lyric scheduler started")
	for {
		select {
		case <-ctx.Done():
			r.engine.Stop()
			logger().Info().Msg("Lyric scheduler cancelled")
			return ctx.Err()
		case cmd := <-r.cmds:
			cmd(r.engine)
			schedule()
		case <-frames:
			r.engine.Tick()
			schedule()
		}
	}
}

// Do queues fn to run on the runner goroutine.
func (r *Runner) Do(fn func(*Engine)) error {
	select {
	case r.cmds <- fn:
		return nil
	case <-r.done:
		return ErrRunnerStopped
	}
}

// Call runs fn on the runner goroutine and waits for it to finish.
func (r *Runner) Call(ctx context.Context, fn func(*Engine)) error {
	finished := make(chan struct{})
	if err := r.Do(func(e *Engine) {
		defer close(finished)
		fn(e)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) Play() error {
	return r.Do(func(e *Engine) { e.Start() })
}

func (r *Runner) Pause() error {
	return r.Do(func(e *Engine) { e.Stop() })
}

func (r *Runner) Load(lines []lyrics.Line) error {
	return r.Do(func(e *Engine) { e.Load(lines) })
}

func (r *Runner) SetOffset(seconds float64) error {
	return r.Do(func(e *Engine) { e.SetOffset(seconds) })
}

func (r *Runner) SetOverlayEnabled(enabled bool) error {
	return r.Do(func(e *Engine) { e.SetOverlayEnabled(enabled) })
}

// State returns a copy of the engine state read on the runner goroutine.
func (r *Runner) State(ctx context.Context) (State, error) {
	// 带缓冲，调用方放弃等待后 runner 也不会阻塞
	ch := make(chan State, 1)
	if err := r.Do(func(e *Engine) { ch <- e.State() }); err != nil {
		return State{}, err
	}
	select {
	case s := <-ch:
		return s, nil
	case <-r.done:
		return State{}, ErrRunnerStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}
