package player

import (
	"sync"
	"time"
)

// SampledClock is a karaoke clock fed by periodic player samples. Between
// samples it extrapolates with the local monotonic clock, so reading it at
// frame rate never touches the player.
type SampledClock struct {
	player Player
	now    func() time.Time

	mu        sync.Mutex
	position  float64
	sampledAt time.Time
	playing   bool
}

func NewSampledClock(p Player) *SampledClock {
	return &SampledClock{player: p, now: time.Now}
}

// Sync samples position and playing state from the player.
func (c *SampledClock) Sync() error {
	playing, err := c.player.Playing()
	if err != nil {
		c.Observe(c.CurrentTime(), false)
		return err
	}
	position, err := c.player.Position()
	if err != nil {
		c.Observe(c.CurrentTime(), false)
		return err
	}
	c.Observe(position, playing)
	return nil
}

// Observe records a sample taken now.
func (c *SampledClock) Observe(position float64, playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
	c.playing = playing
	c.sampledAt = c.now()
}

func (c *SampledClock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return c.position
	}
	return c.position + c.now().Sub(c.sampledAt).Seconds()
}

func (c *SampledClock) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// WallClock is a standalone playback clock driven by the local clock, used
// when no external player is involved. When limit is positive the clock
// reports stopped once it is reached.
type WallClock struct {
	now   func() time.Time
	limit float64

	mu      sync.Mutex
	base    float64
	started time.Time
	playing bool
}

func NewWallClock(limit float64) *WallClock {
	return &WallClock{now: time.Now, limit: limit}
}

func (c *WallClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	c.started = c.now()
	c.playing = true
}

func (c *WallClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = c.elapsedLocked()
	c.playing = false
}

// Toggle switches between playing and paused and reports the new state.
func (c *WallClock) Toggle() bool {
	if c.IsPlaying() {
		c.Pause()
		return false
	}
	c.Start()
	return true
}

// Seek moves the clock by delta seconds, never below zero.
func (c *WallClock) Seek(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := c.elapsedLocked() + delta
	if pos < 0 {
		pos = 0
	}
	c.base = pos
	c.started = c.now()
}

func (c *WallClock) elapsedLocked() float64 {
	pos := c.base
	if c.playing {
		pos += c.now().Sub(c.started).Seconds()
	}
	if c.limit > 0 && pos > c.limit {
		pos = c.limit
	}
	return pos
}

func (c *WallClock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

func (c *WallClock) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit > 0 && c.elapsedLocked() >= c.limit {
		return false
	}
	return c.playing
}
