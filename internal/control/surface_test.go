package control

import (
	"errors"
	"math"
	"testing"
	"time"

	"screenblur/internal/blur"
	"screenblur/internal/config"
	"screenblur/internal/models"
)

type mockStore struct {
	stored  *models.Settings
	saves   int
	saveErr error
}

func (m *mockStore) LoadSettings(defaults models.Settings) (*models.Settings, error) {
	if m.stored == nil {
		m.stored = &defaults
	}
	s := *m.stored
	return &s, nil
}

func (m *mockStore) SaveSettings(settings *models.Settings) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	s := *settings
	m.stored = &s
	return nil
}

type mockPoller struct {
	intervals []time.Duration
}

func (m *mockPoller) SetInterval(d time.Duration) {
	m.intervals = append(m.intervals, d)
}

func newTestSurface(store SettingsStore) (*Surface, *blur.State) {
	state := blur.New(blur.Snapshot{Enabled: true, Opacity: 0.7})
	return New(state, store, config.Default()), state
}

func TestSetOpacityValidation(t *testing.T) {
	tests := []struct {
		name    string
		opacity float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"one", 1, false},
		{"middle", 0.35, false},
		{"negative", -0.1, true},
		{"above one", 1.01, true},
		{"nan", math.NaN(), true},
		{"inf", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			s, state := newTestSurface(store)

			_, err := s.SetOpacity(tt.opacity)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOpacity) {
					t.Fatalf("SetOpacity(%v) error = %v, want ErrInvalidOpacity", tt.opacity, err)
				}
				if got := state.Load().Opacity; got != 0.7 {
					t.Errorf("opacity changed to %v on rejected update", got)
				}
				if store.saves != 0 {
					t.Errorf("rejected update was persisted")
				}
				return
			}
			if err != nil {
				t.Fatalf("SetOpacity(%v) error: %v", tt.opacity, err)
			}
			if got := state.Load().Opacity; got != tt.opacity {
				t.Errorf("opacity = %v, want %v", got, tt.opacity)
			}
			if store.stored.Opacity != tt.opacity {
				t.Errorf("stored opacity = %v, want %v", store.stored.Opacity, tt.opacity)
			}
		})
	}
}

func TestToggleKeepsOpacityAndColor(t *testing.T) {
	store := &mockStore{}
	s, state := newTestSurface(store)

	if _, err := s.SetColor("blue"); err != nil {
		t.Fatal(err)
	}

	v, err := s.Toggle()
	if err != nil {
		t.Fatal(err)
	}
	if v.Enabled {
		t.Error("Toggle() left blur enabled")
	}
	if v.Opacity != 0.7 || v.Color != "blue" {
		t.Errorf("Toggle() changed opacity/color: %+v", v)
	}

	v, _ = s.Toggle()
	if !v.Enabled || !state.Load().Enabled {
		t.Error("second Toggle() did not re-enable")
	}
	if store.saves != 3 {
		t.Errorf("saves = %d, want 3", store.saves)
	}
}

func TestSetColor(t *testing.T) {
	s, state := newTestSurface(nil)

	if _, err := s.SetColor("DarkGray"); err != nil {
		t.Fatalf("SetColor(DarkGray) error: %v", err)
	}
	if state.Load().Tint != 0x1e1e1e {
		t.Errorf("tint = %#x, want 0x1e1e1e", state.Load().Tint)
	}

	if _, err := s.SetColor("mauve"); !errors.Is(err, ErrUnknownColor) {
		t.Errorf("SetColor(mauve) error = %v, want ErrUnknownColor", err)
	}
	if state.Load().Tint != 0x1e1e1e {
		t.Error("unknown colour changed the tint")
	}
}

func TestSetIntervalForwardsToPoller(t *testing.T) {
	store := &mockStore{}
	s, _ := newTestSurface(store)
	poller := &mockPoller{}
	s.AttachPoller(poller)

	if _, err := s.SetInterval(250 * time.Millisecond); err != nil {
		t.Fatalf("SetInterval error: %v", err)
	}
	if len(poller.intervals) != 1 || poller.intervals[0] != 250*time.Millisecond {
		t.Errorf("poller intervals = %v", poller.intervals)
	}
	if store.stored.CheckIntervalMs != 250 {
		t.Errorf("stored interval = %d, want 250", store.stored.CheckIntervalMs)
	}

	for _, d := range []time.Duration{time.Millisecond, time.Minute, 1500 * time.Microsecond} {
		if _, err := s.SetInterval(d); !errors.Is(err, ErrInvalidInterval) {
			t.Errorf("SetInterval(%v) error = %v, want ErrInvalidInterval", d, err)
		}
	}
	if len(poller.intervals) != 1 {
		t.Errorf("rejected intervals reached the poller: %v", poller.intervals)
	}
}

func TestApplyIsAllOrNothing(t *testing.T) {
	store := &mockStore{}
	s, state := newTestSurface(store)

	enabled := false
	opacity := 0.2
	color := "nope"
	_, err := s.Apply(Patch{Enabled: &enabled, Opacity: &opacity, Color: &color})
	if !errors.Is(err, ErrUnknownColor) {
		t.Fatalf("Apply error = %v, want ErrUnknownColor", err)
	}

	snap := state.Load()
	if !snap.Enabled || snap.Opacity != 0.7 {
		t.Errorf("partial patch applied: %+v", snap)
	}

	color = "white"
	v, err := s.Apply(Patch{Enabled: &enabled, Opacity: &opacity, Color: &color})
	if err != nil {
		t.Fatal(err)
	}
	if v.Enabled || v.Opacity != 0.2 || v.Color != "white" {
		t.Errorf("Apply() = %+v", v)
	}
}

func TestPersistFailureKeepsChange(t *testing.T) {
	store := &mockStore{saveErr: errors.New("disk full")}
	s, state := newTestSurface(store)

	v, err := s.SetEnabled(false)
	if err == nil {
		t.Fatal("SetEnabled() error = nil, want persistence error")
	}
	if v.Enabled || state.Load().Enabled {
		t.Error("in-memory change rolled back after persistence failure")
	}
}

func TestRestore(t *testing.T) {
	store := &mockStore{stored: &models.Settings{
		ID:              models.SettingsID,
		Enabled:         false,
		Opacity:         0.4,
		CheckIntervalMs: 50,
		Color:           "white",
	}}
	s, state := newTestSurface(store)

	if err := s.Restore(); err != nil {
		t.Fatal(err)
	}

	snap := state.Load()
	if snap.Enabled || snap.Opacity != 0.4 || snap.Tint != 0xffffff {
		t.Errorf("restored state = %+v", snap)
	}
	if s.Interval() != 50*time.Millisecond {
		t.Errorf("Interval() = %v, want 50ms", s.Interval())
	}
}

func TestRestoreSeedsDefaults(t *testing.T) {
	store := &mockStore{}
	s, state := newTestSurface(store)

	if err := s.Restore(); err != nil {
		t.Fatal(err)
	}
	if store.stored == nil || store.stored.Color != "black" || store.stored.Opacity != 0.7 {
		t.Errorf("seeded settings = %+v", store.stored)
	}
	if !state.Load().Enabled {
		t.Error("default enabled = false")
	}
	if s.Interval() != 100*time.Millisecond {
		t.Errorf("Interval() = %v, want configured 100ms", s.Interval())
	}
}

func TestParseOpacity(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0.7", 0.7, false},
		{"70%", 0.7, false},
		{" 100% ", 1, false},
		{"0", 0, false},
		{"1.5", 0, true},
		{"150%", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseOpacity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOpacity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseOpacity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestColorName(t *testing.T) {
	for _, name := range ColorNames() {
		c, err := ParseColor(name)
		if err != nil {
			t.Fatalf("ParseColor(%q) error: %v", name, err)
		}
		if got := ColorName(c); got != name {
			t.Errorf("ColorName(%#x) = %q, want %q", c, got, name)
		}
	}
	if got := ColorName(0x123456); got != "#123456" {
		t.Errorf("ColorName(0x123456) = %q", got)
	}
}
