// Package fade animates a single overlay opacity between targets.
package fade

import (
	"time"
)

// EasingFunc maps progress [0,1] to an eased value [0,1]
type EasingFunc func(progress float64) float64

var (
	// EaseLinear - No easing, constant speed
	EaseLinear EasingFunc = func(t float64) float64 { return t }

	// EaseSmoothstep - Smooth S-curve, the default
	EaseSmoothstep EasingFunc = func(t float64) float64 {
		return t * t * (3.0 - 2.0*t)
	}
)

// Timeline is one animated value. It is not safe for concurrent use; the
// owning surface serialises access.
type Timeline struct {
	current   float64
	start     float64
	target    float64
	startTime time.Time
	duration  time.Duration
	easing    EasingFunc
}

// NewTimeline creates a settled timeline at initial
func NewTimeline(initial float64, duration time.Duration) *Timeline {
	return &Timeline{
		current:  initial,
		start:    initial,
		target:   initial,
		duration: duration,
		easing:   EaseSmoothstep,
	}
}

// SetEasing replaces the easing function. nil restores smoothstep.
func (tl *Timeline) SetEasing(fn EasingFunc) {
	if fn == nil {
		fn = EaseSmoothstep
	}
	tl.easing = fn
}

// Retarget starts a transition from the current value toward target.
// Retargeting to the value already being approached is a no-op, so the
// running transition is neither restarted nor slowed down.
func (tl *Timeline) Retarget(target float64, now time.Time) bool {
	if target == tl.target {
		return false
	}
	tl.Value(now)
	tl.start = tl.current
	tl.target = target
	tl.startTime = now
	if tl.duration <= 0 {
		tl.current = target
	}
	return true
}

// Value advances the timeline to now and returns the current value
func (tl *Timeline) Value(now time.Time) float64 {
	if tl.current == tl.target {
		return tl.current
	}
	if tl.duration <= 0 {
		tl.current = tl.target
		return tl.current
	}

	progress := float64(now.Sub(tl.startTime)) / float64(tl.duration)
	switch {
	case progress >= 1:
		tl.current = tl.target
	case progress <= 0:
		tl.current = tl.start
	default:
		tl.current = tl.start + (tl.target-tl.start)*tl.easing(progress)
	}
	return tl.current
}

// Target returns the value being approached
func (tl *Timeline) Target() float64 {
	return tl.target
}

// Settled reports whether the value has reached its target at now
func (tl *Timeline) Settled(now time.Time) bool {
	return tl.Value(now) == tl.target
}
