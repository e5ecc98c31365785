package x11

import (
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xinerama"
	"github.com/jezek/xgb/xproto"

	"screenblur/pkg/display"
)

// Host implements display.Host for X11
type Host struct {
	client    *Client
	ownClient bool

	events    chan display.TopologyEvent
	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewHost opens its own X connection
func NewHost() (*Host, error) {
	client, err := NewClient()
	if err != nil {
		return nil, err
	}
	h, err := NewHostWithClient(client)
	if err != nil {
		client.Close()
		return nil, err
	}
	h.ownClient = true
	return h, nil
}

// NewHostWithClient uses a shared connection. Closing the host leaves it open.
func NewHostWithClient(client *Client) (*Host, error) {
	h := &Host{
		client: client,
		events: make(chan display.TopologyEvent, 4),
		stop:   make(chan struct{}),
	}

	if client.hasRandr {
		mask := uint16(randr.NotifyMaskScreenChange | randr.NotifyMaskCrtcChange | randr.NotifyMaskOutputChange)
		if err := randr.SelectInputChecked(client.conn, client.root, mask).Check(); err != nil {
			return nil, fmt.Errorf("failed to select RandR events: %w", err)
		}

		monitors, err := h.Monitors()
		if err != nil {
			return nil, err
		}

		h.wg.Add(1)
		go h.watchTopology(client.Subscribe(), len(monitors))
	} else {
		log.Printf("RandR unavailable, monitor hot-plug will not be detected")
	}

	return h, nil
}

// watchTopology re-enumerates after RandR notifications and reports a change
// only when the number of monitors differs. Mode or position changes alone
// are handled by the registry's geometry reconcile.
func (h *Host) watchTopology(changes <-chan struct{}, count int) {
	defer h.wg.Done()

	for {
		select {
		case <-h.stop:
			return
		case _, ok := <-changes:
			if !ok {
				return
			}

			monitors, err := h.Monitors()
			if err != nil {
				log.Printf("Failed to re-enumerate monitors: %v", err)
				continue
			}

			ev, changed := topologyEvent(count, len(monitors))
			if !changed {
				continue
			}
			count = len(monitors)

			select {
			case h.events <- ev:
			default:
				// A restart is already pending
			}
		}
	}
}

func topologyEvent(before, after int) (display.TopologyEvent, bool) {
	switch {
	case after > before:
		return display.TopologyEvent{Kind: display.MonitorAdded, Count: after}, true
	case after < before:
		return display.TopologyEvent{Kind: display.MonitorRemoved, Count: after}, true
	default:
		return display.TopologyEvent{}, false
	}
}

// Monitors enumerates active CRTCs through RandR, then Xinerama, then
// falls back to the root window as a single monitor.
func (h *Host) Monitors() ([]display.Monitor, error) {
	if h.client.hasRandr {
		if monitors, err := h.randrMonitors(); err == nil && len(monitors) > 0 {
			return monitors, nil
		} else if err != nil {
			log.Printf("RandR enumeration failed, trying Xinerama: %v", err)
		}
	}

	if h.client.hasXinerama {
		if monitors, err := h.xineramaMonitors(); err == nil && len(monitors) > 0 {
			return monitors, nil
		}
	}

	return h.rootMonitor()
}

func (h *Host) randrMonitors() ([]display.Monitor, error) {
	conn := h.client.conn

	res, err := randr.GetScreenResourcesCurrent(conn, h.client.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	rects := make([]display.Bounds, 0, len(res.Crtcs))
	for _, crtc := range res.Crtcs {
		info, err := randr.GetCrtcInfo(conn, crtc, res.ConfigTimestamp).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to get CRTC info: %w", err)
		}
		if info.Mode == 0 || info.NumOutputs == 0 {
			continue
		}
		rects = append(rects, display.Bounds{
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}

	return monitorsFromRects(rects), nil
}

func (h *Host) xineramaMonitors() ([]display.Monitor, error) {
	reply, err := xinerama.QueryScreens(h.client.conn).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query Xinerama screens: %w", err)
	}

	rects := make([]display.Bounds, 0, len(reply.ScreenInfo))
	for _, s := range reply.ScreenInfo {
		rects = append(rects, display.Bounds{
			X:      int(s.XOrg),
			Y:      int(s.YOrg),
			Width:  int(s.Width),
			Height: int(s.Height),
		})
	}

	return monitorsFromRects(rects), nil
}

func (h *Host) rootMonitor() ([]display.Monitor, error) {
	geom, err := xproto.GetGeometry(h.client.conn, xproto.Drawable(h.client.root)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get root geometry: %w", err)
	}

	return []display.Monitor{{
		Index:  0,
		Bounds: display.Bounds{Width: int(geom.Width), Height: int(geom.Height)},
	}}, nil
}

// monitorsFromRects drops empty and mirrored rectangles and orders the rest
// left to right, then top to bottom.
func monitorsFromRects(rects []display.Bounds) []display.Monitor {
	seen := make(map[display.Bounds]bool, len(rects))
	unique := make([]display.Bounds, 0, len(rects))
	for _, r := range rects {
		if r.Width <= 0 || r.Height <= 0 || seen[r] {
			continue
		}
		seen[r] = true
		unique = append(unique, r)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].X != unique[j].X {
			return unique[i].X < unique[j].X
		}
		return unique[i].Y < unique[j].Y
	})

	monitors := make([]display.Monitor, len(unique))
	for i, r := range unique {
		monitors[i] = display.Monitor{Index: i, Bounds: r}
	}
	return monitors
}

// CursorPosition returns the pointer position relative to the root window
func (h *Host) CursorPosition() (display.Point, error) {
	reply, err := xproto.QueryPointer(h.client.conn, h.client.root).Reply()
	if err != nil {
		return display.Point{}, fmt.Errorf("failed to query pointer: %w", err)
	}
	return display.Point{X: int(reply.RootX), Y: int(reply.RootY)}, nil
}

func (h *Host) TopologyChanges() <-chan display.TopologyEvent {
	return h.events
}

// IsAvailable checks if an X display is configured
func (h *Host) IsAvailable() bool {
	return os.Getenv("DISPLAY") != ""
}

// GetDisplayServer returns "x11"
func (h *Host) GetDisplayServer() string {
	return "x11"
}

// Close stops the topology watcher and, if the host opened it, the connection
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		close(h.stop)
		h.wg.Wait()
		if h.ownClient {
			h.client.Close()
		}
	})
	return nil
}
