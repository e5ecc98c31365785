package blur

import (
	"math"
	"sync/atomic"

	"screenblur/pkg/display"
)

// Snapshot is one consistent value of the blur state
type Snapshot struct {
	Enabled bool          `json:"enabled"`
	Opacity float64       `json:"opacity"`
	Tint    display.Color `json:"tint"`
}

// State is the process-wide blur state shared by the control surface (the
// only writer) and the poll loop (the reader). Every update replaces the
// whole value, so a tick never sees a half-applied change.
type State struct {
	v atomic.Pointer[Snapshot]
}

// New creates a state holding initial, with the opacity clamped to [0,1]
func New(initial Snapshot) *State {
	s := &State{}
	s.Store(initial)
	return s
}

// Load returns the current value
func (s *State) Load() Snapshot {
	return *s.v.Load()
}

// Store replaces the current value
func (s *State) Store(snap Snapshot) {
	snap.Opacity = ClampOpacity(snap.Opacity)
	s.v.Store(&snap)
}

// Update applies fn to the current value and stores the result atomically
func (s *State) Update(fn func(Snapshot) Snapshot) Snapshot {
	for {
		old := s.v.Load()
		next := fn(*old)
		next.Opacity = ClampOpacity(next.Opacity)
		if s.v.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// ClampOpacity forces o into [0,1]. NaN becomes 0.
func ClampOpacity(o float64) float64 {
	if math.IsNaN(o) || o < 0 {
		return 0
	}
	if o > 1 {
		return 1
	}
	return o
}
