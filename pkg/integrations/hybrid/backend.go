package hybrid

import (
	"fmt"
	"log"
	"os"
	"time"

	"screenblur/pkg/display"
	"screenblur/pkg/integrations/wayland"
	"screenblur/pkg/integrations/x11"
)

// Backend pairs a host with X11 overlay surfaces. Under Wayland the
// surfaces live on XWayland while monitors and cursor come from the
// compositor when it exposes them.
type Backend struct {
	host    display.Host
	client  *x11.Client
	factory *x11.SurfaceFactory
}

func NewBackend(fadeDuration, frameInterval time.Duration) (*Backend, error) {
	client, err := x11.NewClient()
	if err != nil {
		return nil, fmt.Errorf("overlays need an X connection (X11 or XWayland): %w", err)
	}

	host, err := detectHost(client)
	if err != nil {
		client.Close()
		return nil, err
	}
	log.Printf("Display host initialized: %s", host.GetDisplayServer())

	return &Backend{
		host:    host,
		client:  client,
		factory: x11.NewSurfaceFactory(client, fadeDuration, frameInterval),
	}, nil
}

func detectHost(client *x11.Client) (display.Host, error) {
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	xdgSessionType := os.Getenv("XDG_SESSION_TYPE")

	if waylandDisplay != "" || xdgSessionType == "wayland" {
		host := wayland.NewHost()
		if host.IsAvailable() {
			return host, nil
		}
		log.Printf("No native cursor access on %s, reading it through XWayland", host.Compositor())
	}

	host, err := x11.NewHostWithClient(client)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize X11 host: %w", err)
	}
	return host, nil
}

// Host returns the monitor and cursor source
func (b *Backend) Host() display.Host {
	return b.host
}

// Factory returns the overlay surface factory
func (b *Backend) Factory() display.SurfaceFactory {
	return b.factory
}

func (b *Backend) GetDisplayServer() string {
	return b.host.GetDisplayServer()
}

// GetStatus describes the selected host
func (b *Backend) GetStatus() string {
	status := "Display Backend Status:\n"
	status += fmt.Sprintf("  Host: %s (available: %v)\n", b.host.GetDisplayServer(), b.host.IsAvailable())
	status += "  Surfaces: x11\n"
	return status
}

// Close releases the host, then the shared X connection
func (b *Backend) Close() error {
	if err := b.host.Close(); err != nil {
		log.Printf("Error closing display host: %v", err)
	}
	return b.client.Close()
}
