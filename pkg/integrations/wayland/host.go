package wayland

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"screenblur/pkg/display"
)

// Host implements display.Host for Hyprland through hyprctl and its event socket
type Host struct {
	compositor string
	hasHyprctl bool

	// run executes hyprctl; replaced in tests
	run func(args ...string) ([]byte, error)

	events    chan display.TopologyEvent
	mu        sync.Mutex
	sock      net.Conn
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewHost creates a new Wayland host
func NewHost() *Host {
	h := &Host{
		run:    runHyprctl,
		events: make(chan display.TopologyEvent, 4),
	}
	h.hasHyprctl = h.commandExists("hyprctl")
	h.detectCompositor()
	return h
}

func runHyprctl(args ...string) ([]byte, error) {
	return exec.Command("hyprctl", args...).Output()
}

// commandExists checks if a command is available in PATH
func (h *Host) commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// detectCompositor attempts to detect the Wayland compositor
func (h *Host) detectCompositor() {
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		h.compositor = "hyprland"
		return
	}

	compositors := map[string]string{
		"sway":         "sway",
		"Hyprland":     "hyprland",
		"wayfire":      "wayfire",
		"river":        "river",
		"gnome-shell":  "gnome",
		"kwin_wayland": "kde",
	}

	for process, name := range compositors {
		cmd := exec.Command("pgrep", "-x", process)
		if err := cmd.Run(); err == nil {
			h.compositor = name
			return
		}
	}

	h.compositor = "unknown"
}

// Compositor returns the detected compositor name
func (h *Host) Compositor() string {
	return h.compositor
}

// IsAvailable reports whether monitors and the cursor can be read natively.
// Only Hyprland exposes the global cursor position to clients.
func (h *Host) IsAvailable() bool {
	return h.compositor == "hyprland" && h.hasHyprctl
}

// GetDisplayServer returns "wayland"
func (h *Host) GetDisplayServer() string {
	return "wayland"
}

type hyprMonitor struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Scale     float64 `json:"scale"`
	Transform int     `json:"transform"`
	Disabled  bool    `json:"disabled"`
}

// Monitors returns enabled outputs in layout coordinates, ordered by Hyprland's monitor id
func (h *Host) Monitors() ([]display.Monitor, error) {
	output, err := h.run("monitors", "-j")
	if err != nil {
		return nil, fmt.Errorf("failed to execute hyprctl monitors: %w", err)
	}
	return parseMonitors(output)
}

func parseMonitors(data []byte) ([]display.Monitor, error) {
	var raw []hyprMonitor
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl monitors: %w", err)
	}

	monitors := make([]display.Monitor, 0, len(raw))
	for _, m := range raw {
		if m.Disabled {
			continue
		}
		monitors = append(monitors, display.Monitor{
			Index:  len(monitors),
			Bounds: logicalBounds(m),
		})
	}
	return monitors, nil
}

// logicalBounds converts a monitor's pixel mode to layout size: divided by
// the scale and swapped for rotated transforms.
func logicalBounds(m hyprMonitor) display.Bounds {
	scale := m.Scale
	if scale <= 0 {
		scale = 1
	}
	w := int(math.Round(float64(m.Width) / scale))
	h := int(math.Round(float64(m.Height) / scale))
	if m.Transform%2 == 1 {
		w, h = h, w
	}
	return display.Bounds{X: m.X, Y: m.Y, Width: w, Height: h}
}

// CursorPosition returns the global cursor position
func (h *Host) CursorPosition() (display.Point, error) {
	output, err := h.run("cursorpos", "-j")
	if err != nil {
		return display.Point{}, fmt.Errorf("failed to execute hyprctl cursorpos: %w", err)
	}

	var p display.Point
	if err := json.Unmarshal(output, &p); err != nil {
		return display.Point{}, fmt.Errorf("failed to parse cursor position: %w", err)
	}
	return p, nil
}

// TopologyChanges connects to the event socket on first use
func (h *Host) TopologyChanges() <-chan display.TopologyEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sock != nil {
		return h.events
	}

	conn, err := net.Dial("unix", eventSocketPath())
	if err != nil {
		log.Printf("Hyprland event socket unavailable, monitor hot-plug will not be detected: %v", err)
		return h.events
	}
	h.sock = conn

	h.wg.Add(1)
	go h.readEvents(conn)

	return h.events
}

func eventSocketPath() string {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		path := filepath.Join(dir, "hypr", sig, ".socket2.sock")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join("/tmp/hypr", sig, ".socket2.sock")
}

func (h *Host) readEvents(conn net.Conn) {
	defer h.wg.Done()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		kind, ok := parseEvent(scanner.Text())
		if !ok {
			continue
		}

		ev := display.TopologyEvent{Kind: kind}
		if monitors, err := h.Monitors(); err == nil {
			ev.Count = len(monitors)
		}

		select {
		case h.events <- ev:
		default:
			// A restart is already pending
		}
	}
}

// parseEvent recognises "monitoradded>>DP-1" and "monitorremoved>>DP-1".
// The v2 variants that Hyprland sends alongside are ignored.
func parseEvent(line string) (display.TopologyKind, bool) {
	name, _, found := strings.Cut(line, ">>")
	if !found {
		return 0, false
	}
	switch name {
	case "monitoradded":
		return display.MonitorAdded, true
	case "monitorremoved":
		return display.MonitorRemoved, true
	default:
		return 0, false
	}
}

// Close disconnects from the event socket
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		if h.sock != nil {
			h.sock.Close()
		}
		h.mu.Unlock()
		h.wg.Wait()
	})
	return nil
}
