package detector

import (
	"os"
	"time"

	"screenblur/pkg/integrations/hybrid"
)

// New builds the display backend for the current session
func New(fadeDuration, frameInterval time.Duration) (*hybrid.Backend, error) {
	return hybrid.NewBackend(fadeDuration, frameInterval)
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
