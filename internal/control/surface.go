// Package control holds the validated mutations of the blur state. Every
// accepted change is applied in memory first and then persisted.
package control

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"screenblur/internal/blur"
	"screenblur/internal/config"
	"screenblur/internal/models"
)

var (
	ErrInvalidOpacity  = errors.New("opacity must be a number between 0 and 1")
	ErrUnknownColor    = errors.New("unknown color")
	ErrInvalidInterval = errors.New("invalid check interval")
)

// SettingsStore persists the settings row
type SettingsStore interface {
	LoadSettings(defaults models.Settings) (*models.Settings, error)
	SaveSettings(settings *models.Settings) error
}

// IntervalSetter receives check interval changes, normally the poll loop
type IntervalSetter interface {
	SetInterval(d time.Duration)
}

// View is the externally visible control state
type View struct {
	Enabled    bool    `json:"enabled"`
	Opacity    float64 `json:"opacity"`
	Color      string  `json:"color"`
	IntervalMs int64   `json:"interval_ms"`
}

// Patch is a partial update; nil fields are left unchanged
type Patch struct {
	Enabled    *bool    `json:"enabled,omitempty"`
	Opacity    *float64 `json:"opacity,omitempty"`
	Color      *string  `json:"color,omitempty"`
	IntervalMs *int64   `json:"interval_ms,omitempty"`
}

type Surface struct {
	state  *blur.State
	store  SettingsStore
	cfg    *config.Config
	poller IntervalSetter

	// Serialises writers so the persisted row always matches memory
	mu       sync.Mutex
	interval time.Duration
}

// New creates a control surface over state. store may be nil, in which case
// changes are kept in memory only.
func New(state *blur.State, store SettingsStore, cfg *config.Config) *Surface {
	return &Surface{
		state:    state,
		store:    store,
		cfg:      cfg,
		interval: cfg.Poller.CheckInterval,
	}
}

// AttachPoller forwards interval changes to p
func (s *Surface) AttachPoller(p IntervalSetter) {
	s.mu.Lock()
	s.poller = p
	s.mu.Unlock()
}

// Restore loads the stored settings into the blur state. The configured
// values seed the row on first run. Invalid stored values fall back to config.
func (s *Surface) Restore() error {
	if s.store == nil {
		return nil
	}

	defaults := models.Settings{
		ID:      models.SettingsID,
		Enabled: s.cfg.Blur.Enabled,
		Opacity: s.cfg.Blur.Opacity,
		Color:   s.cfg.Blur.Color,
	}

	stored, err := s.store.LoadSettings(defaults)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	tint, err := ParseColor(stored.Color)
	if err != nil {
		tint, _ = ParseColor(s.cfg.Blur.Color)
	}
	opacity := stored.Opacity
	if validateOpacity(opacity) != nil {
		opacity = s.cfg.Blur.Opacity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Store(blur.Snapshot{Enabled: stored.Enabled, Opacity: opacity, Tint: tint})
	if d := stored.CheckInterval(); d > 0 && s.cfg.CheckIntervalAllowed(d) == nil {
		s.interval = d
	}
	return nil
}

// State returns the current control state
func (s *Surface) State() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Interval returns the current check interval
func (s *Surface) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Surface) SetEnabled(enabled bool) (View, error) {
	return s.Apply(Patch{Enabled: &enabled})
}

// Toggle flips enabled and leaves opacity and colour alone
func (s *Surface) Toggle() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Update(func(snap blur.Snapshot) blur.Snapshot {
		snap.Enabled = !snap.Enabled
		return snap
	})
	return s.viewLocked(), s.persistLocked()
}

func (s *Surface) SetOpacity(opacity float64) (View, error) {
	return s.Apply(Patch{Opacity: &opacity})
}

func (s *Surface) SetColor(name string) (View, error) {
	return s.Apply(Patch{Color: &name})
}

func (s *Surface) SetInterval(d time.Duration) (View, error) {
	ms := d.Milliseconds()
	if time.Duration(ms)*time.Millisecond != d {
		return s.State(), fmt.Errorf("%w: %v is not a whole number of milliseconds", ErrInvalidInterval, d)
	}
	return s.Apply(Patch{IntervalMs: &ms})
}

// Apply validates every field of p and then applies them as one change.
// Nothing is applied if any field is invalid. A persistence error is
// returned with the new state, which stays in effect.
func (s *Surface) Apply(p Patch) (View, error) {
	var (
		tint     = s.state.Load().Tint
		interval time.Duration
	)

	if p.Opacity != nil {
		if err := validateOpacity(*p.Opacity); err != nil {
			return s.State(), err
		}
	}
	if p.Color != nil {
		c, err := ParseColor(*p.Color)
		if err != nil {
			return s.State(), err
		}
		tint = c
	}
	if p.IntervalMs != nil {
		interval = time.Duration(*p.IntervalMs) * time.Millisecond
		if err := s.cfg.CheckIntervalAllowed(interval); err != nil {
			return s.State(), fmt.Errorf("%w: %v", ErrInvalidInterval, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Update(func(snap blur.Snapshot) blur.Snapshot {
		if p.Enabled != nil {
			snap.Enabled = *p.Enabled
		}
		if p.Opacity != nil {
			snap.Opacity = *p.Opacity
		}
		if p.Color != nil {
			snap.Tint = tint
		}
		return snap
	})

	if p.IntervalMs != nil && interval != s.interval {
		s.interval = interval
		if s.poller != nil {
			s.poller.SetInterval(interval)
		}
	}

	return s.viewLocked(), s.persistLocked()
}

func (s *Surface) viewLocked() View {
	snap := s.state.Load()
	return View{
		Enabled:    snap.Enabled,
		Opacity:    snap.Opacity,
		Color:      ColorName(snap.Tint),
		IntervalMs: s.interval.Milliseconds(),
	}
}

func (s *Surface) persistLocked() error {
	if s.store == nil {
		return nil
	}

	snap := s.state.Load()
	settings := &models.Settings{
		ID:              models.SettingsID,
		Enabled:         snap.Enabled,
		Opacity:         snap.Opacity,
		CheckIntervalMs: s.interval.Milliseconds(),
		Color:           ColorName(snap.Tint),
	}

	if err := s.store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}

func validateOpacity(o float64) error {
	if math.IsNaN(o) || math.IsInf(o, 0) || o < 0 || o > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidOpacity, o)
	}
	return nil
}

// ParseOpacity accepts a fraction ("0.7") or a percentage ("70%")
func ParseOpacity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOpacity, s)
	}
	if percent {
		v /= 100
	}
	if err := validateOpacity(v); err != nil {
		return 0, err
	}
	return v, nil
}
