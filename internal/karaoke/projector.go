package karaoke

import "math"

// DefaultThreshold is the minimum progress change that is forwarded to the
// overlay while the active line stays the same.
const DefaultThreshold = 0.02

// Snapshot is the reduced state mirrored on an overlay surface.
type Snapshot struct {
	Text     string  `json:"text"`
	Progress float64 `json:"progress"`
}

// Surface receives overlay snapshots. Send must not block the caller for
// long and reports whether the snapshot was accepted; a rejected snapshot
// is offered again on the next frame.
type Surface interface {
	Send(Snapshot) bool
}

// SurfaceFunc adapts a function to Surface. It accepts every snapshot.
type SurfaceFunc func(Snapshot)

func (f SurfaceFunc) Send(s Snapshot) bool {
	f(s)
	return true
}

// Projector forwards a snapshot only when the active line changed or the
// progress moved by more than the threshold since the last forwarded value.
type Projector struct {
	surface   Surface
	threshold float64

	lastIndex    int
	lastProgress float64
}

func NewProjector(surface Surface, threshold float64) *Projector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	p := &Projector{surface: surface, threshold: threshold}
	p.Reset()
	return p
}

// Project reports whether a snapshot was forwarded.
func (p *Projector) Project(index int, progress float64, text string) bool {
	if index == p.lastIndex && math.Abs(progress-p.lastProgress) <= p.threshold {
		return false
	}
	if p.surface != nil && !p.surface.Send(Snapshot{Text: text, Progress: progress}) {
		return false
	}
	p.lastIndex = index
	p.lastProgress = progress
	return true
}

// Reset forgets the last forwarded snapshot so the next Project always sends.
func (p *Projector) Reset() {
	p.lastIndex = -1
	p.lastProgress = -1
}
