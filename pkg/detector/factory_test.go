package detector

import (
	"testing"
	"time"
)

func setSession(t *testing.T, sessionType, waylandDisplay, x11Display string) {
	t.Helper()
	t.Setenv("XDG_SESSION_TYPE", sessionType)
	t.Setenv("WAYLAND_DISPLAY", waylandDisplay)
	t.Setenv("DISPLAY", x11Display)
}

func TestDetectDisplayServer(t *testing.T) {
	tests := []struct {
		name           string
		sessionType    string
		waylandDisplay string
		x11Display     string
		want           string
	}{
		{"wayland session", "wayland", "wayland-0", "", "wayland"},
		{"x11 session", "x11", "", ":0", "x11"},
		{"nothing set", "", "", "", "unknown"},
		{"wayland display only", "", "wayland-1", "", "wayland"},
		{"x11 display only", "", "", ":1", "x11"},
		// XWayland exports DISPLAY too; the session is still Wayland
		{"xwayland", "", "wayland-0", ":0", "wayland"},
		{"tty session with display", "tty", "", ":0", "x11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setSession(t, tt.sessionType, tt.waylandDisplay, tt.x11Display)

			if got := DetectDisplayServer(); got != tt.want {
				t.Errorf("DetectDisplayServer() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewNeedsXConnection(t *testing.T) {
	setSession(t, "", "", "")

	backend, err := New(0, 16*time.Millisecond)
	if err == nil {
		backend.Close()
		t.Fatal("New() without DISPLAY succeeded, want error")
	}
	t.Logf("New() without DISPLAY: %v", err)
}

func TestNew(t *testing.T) {
	backend, err := New(0, 16*time.Millisecond)
	if err != nil {
		t.Skipf("No display available: %v", err)
	}
	defer backend.Close()

	ds := backend.GetDisplayServer()
	if ds != "x11" && ds != "wayland" {
		t.Errorf("GetDisplayServer() = %s, want x11 or wayland", ds)
	}
	t.Logf("Backend: %s", backend.GetStatus())

	host := backend.Host()
	if monitors, err := host.Monitors(); err != nil {
		t.Logf("Monitors() error: %v", err)
	} else {
		t.Logf("Monitors: %d", len(monitors))
	}

	if cursor, err := host.CursorPosition(); err != nil {
		t.Logf("CursorPosition() error: %v", err)
	} else {
		t.Logf("Cursor: %d,%d", cursor.X, cursor.Y)
	}
}
