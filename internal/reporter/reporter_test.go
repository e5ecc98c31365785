package reporter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"screenblur/internal/control"
	"screenblur/internal/models"
	"screenblur/internal/tracker"
	"screenblur/pkg/display"
)

type mockEngine struct {
	status tracker.Status
}

func (m *mockEngine) Status() tracker.Status { return m.status }

type mockHistory struct {
	last *models.RestartEvent
	err  error
}

func (m *mockHistory) GetLatestRestart() (*models.RestartEvent, error) { return m.last, m.err }

func twoMonitorStatus() tracker.Status {
	return tracker.Status{
		Phase:    tracker.PhaseRunning,
		Ticks:    12,
		Interval: 100 * time.Millisecond,
		Monitors: []display.Monitor{
			{Index: 0, Bounds: display.Bounds{Width: 1920, Height: 1080}},
			{Index: 1, Bounds: display.Bounds{X: 1920, Width: 2560, Height: 1440}},
		},
		Cursor:  display.Point{X: 2000, Y: 10},
		Focused: 1,
		Pushed: map[int]display.PushState{
			0: {Blurred: true, Opacity: 0.7},
			1: {Blurred: false, Opacity: 0.7},
		},
		Overlays: 2,
	}
}

var testView = control.View{Enabled: true, Opacity: 0.7, Color: "black", IntervalMs: 100}

func TestGenerateStatusRunning(t *testing.T) {
	restart := &models.RestartEvent{Timestamp: time.Now().Add(-10 * time.Minute), Reason: "monitor added"}
	r := New(&mockHistory{last: restart}, "x11")

	report, err := r.GenerateStatus(&mockEngine{status: twoMonitorStatus()}, testView)
	if err != nil {
		t.Fatal(err)
	}

	if !report.Running || report.Phase != "running" || report.FocusedIndex != 1 {
		t.Errorf("report = %+v", report)
	}
	if report.CheckInterval != "100ms" {
		t.Errorf("CheckInterval = %q, want 100ms", report.CheckInterval)
	}
	if len(report.Monitors) != 2 {
		t.Fatalf("monitors = %d, want 2", len(report.Monitors))
	}
	if !report.Monitors[0].Blurred || report.Monitors[0].Focused {
		t.Errorf("monitor 0 = %+v, want blurred and unfocused", report.Monitors[0])
	}
	if report.Monitors[1].Blurred || !report.Monitors[1].Focused || !report.Monitors[1].HasOverlay {
		t.Errorf("monitor 1 = %+v, want focused with overlay", report.Monitors[1])
	}

	text := r.FormatStatusText(report)
	for _, want := range []string{"running", "70%", "2560x1440+1920+0", "Last Restart: 10m ago (monitor added)"} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q:\n%s", want, text)
		}
	}
}

func TestGenerateStatusStopped(t *testing.T) {
	r := New(nil, "wayland")

	report, err := r.GenerateStatus(nil, testView)
	if err != nil {
		t.Fatal(err)
	}
	if report.Running || report.Phase != "stopped" {
		t.Errorf("report = %+v, want stopped", report)
	}

	out, err := r.FormatStatusJSON(report)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["display_server"] != "wayland" {
		t.Errorf("display_server = %v", decoded["display_server"])
	}
	if !strings.Contains(r.FormatStatusText(report), "not running") {
		t.Error("text report does not say not running")
	}
}

func TestGenerateStatusHistoryError(t *testing.T) {
	r := New(&mockHistory{err: errors.New("locked")}, "x11")
	if _, err := r.GenerateStatus(nil, testView); err == nil {
		t.Error("GenerateStatus() error = nil, want history error")
	}
}

func TestMonitorWithoutOverlay(t *testing.T) {
	st := twoMonitorStatus()
	delete(st.Pushed, 0)

	monitors := MonitorStatuses(st)
	if monitors[0].HasOverlay || monitors[0].Blurred {
		t.Errorf("monitor 0 = %+v, want no overlay", monitors[0])
	}
}

func TestFormatRestartsText(t *testing.T) {
	now := time.Now()
	events := []*models.RestartEvent{
		{Timestamp: now.Add(-30 * time.Second), Reason: "monitor removed", MonitorCount: 1, PID: 10, ChildPID: 11},
		{Timestamp: now.Add(-2 * time.Hour), Reason: "monitor added", MonitorCount: 2, PID: 9, Error: "exec failed"},
	}

	text := FormatRestartsText(events, now)
	for _, want := range []string{"30s ago", "2h ago", "failed", "monitor removed"} {
		if !strings.Contains(text, want) {
			t.Errorf("restarts text missing %q:\n%s", want, text)
		}
	}

	if FormatRestartsText(nil, now) != "No restarts recorded.\n" {
		t.Error("empty history text changed")
	}
}
