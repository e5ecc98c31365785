package x11

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jezek/xgb/shape"
	"github.com/jezek/xgb/xproto"

	"screenblur/pkg/display"
	"screenblur/pkg/fade"
)

// ErrSurfaceDestroyed is returned by Push after Destroy
var ErrSurfaceDestroyed = errors.New("surface destroyed")

// SurfaceFactory creates overlay windows on a shared connection
type SurfaceFactory struct {
	client        *Client
	fadeDuration  time.Duration
	frameInterval time.Duration
}

func NewSurfaceFactory(client *Client, fadeDuration, frameInterval time.Duration) *SurfaceFactory {
	return &SurfaceFactory{
		client:        client,
		fadeDuration:  fadeDuration,
		frameInterval: frameInterval,
	}
}

// CreateSurface creates an unmapped, click-through, override-redirect
// window covering bounds. It is mapped on the first blurred push.
func (f *SurfaceFactory) CreateSurface(index int, bounds display.Bounds) (display.Surface, error) {
	c := f.client
	if !c.hasShape {
		return nil, ErrNoShape
	}
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return nil, fmt.Errorf("invalid overlay bounds %+v", bounds)
	}

	wid, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate window id: %w", err)
	}

	// Value list order follows the mask bit order
	err = xproto.CreateWindowChecked(c.conn, c.screen.RootDepth, wid, c.root,
		int16(bounds.X), int16(bounds.Y), uint16(bounds.Width), uint16(bounds.Height), 0,
		xproto.WindowClassInputOutput, c.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect,
		[]uint32{0, 1}).Check()
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay window: %w", err)
	}

	s := &Surface{
		client:        c,
		index:         index,
		bounds:        bounds,
		window:        wid,
		fadeDuration:  f.fadeDuration,
		frameInterval: f.frameInterval,
		pushes:        make(chan display.PushState, 1),
		done:          make(chan struct{}),
	}

	if err := s.setup(); err != nil {
		xproto.DestroyWindow(c.conn, wid)
		return nil, err
	}

	s.wg.Add(1)
	go s.run()

	return s, nil
}

// Surface is one overlay window with its own fade loop
type Surface struct {
	client        *Client
	index         int
	bounds        display.Bounds
	window        xproto.Window
	fadeDuration  time.Duration
	frameInterval time.Duration

	mu        sync.Mutex
	last      display.PushState
	pushed    bool
	destroyed bool

	pushes chan display.PushState
	done   chan struct{}
	wg     sync.WaitGroup
}

func (s *Surface) setup() error {
	c := s.client

	// An empty input region lets every click fall through to the windows below
	err := shape.RectanglesChecked(c.conn, shape.SoSet, shape.SkInput, xproto.ClipOrderingUnsorted,
		s.window, 0, 0, nil).Check()
	if err != nil {
		return fmt.Errorf("failed to make overlay click-through: %w", err)
	}

	if err := c.setAtoms(s.window, "_NET_WM_WINDOW_TYPE", "_NET_WM_WINDOW_TYPE_NOTIFICATION"); err != nil {
		return fmt.Errorf("failed to set window type: %w", err)
	}
	if err := c.setAtoms(s.window, "_NET_WM_STATE",
		"_NET_WM_STATE_ABOVE", "_NET_WM_STATE_STICKY", "_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_SKIP_PAGER"); err != nil {
		return fmt.Errorf("failed to set window state: %w", err)
	}
	if err := c.setName(s.window, fmt.Sprintf("screenblur-%d", s.index)); err != nil {
		return fmt.Errorf("failed to set window name: %w", err)
	}

	c.setCardinal(s.window, "_NET_WM_WINDOW_OPACITY", 0)
	return nil
}

func (s *Surface) Index() int             { return s.index }
func (s *Surface) Bounds() display.Bounds { return s.bounds }

// Push hands state to the fade loop. Repeating the last state does nothing;
// only the newest pending state is kept.
func (s *Surface) Push(state display.PushState) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSurfaceDestroyed
	}
	if s.pushed && s.last == state {
		s.mu.Unlock()
		return nil
	}
	s.last = state
	s.pushed = true

	select {
	case <-s.pushes:
	default:
	}
	s.pushes <- state
	s.mu.Unlock()

	return nil
}

// Destroy stops the fade loop and destroys the window
func (s *Surface) Destroy() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil
	}
	s.destroyed = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()

	if err := xproto.DestroyWindowChecked(s.client.conn, s.window).Check(); err != nil {
		return fmt.Errorf("failed to destroy overlay %d: %w", s.index, err)
	}
	return nil
}

func (s *Surface) run() {
	defer s.wg.Done()

	var (
		timeline = fade.NewTimeline(0, s.fadeDuration)
		ticker   *time.Ticker
		frames   <-chan time.Time
		mapped   bool
		tint     display.Color
	)

	stopFrames := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, frames = nil, nil
		}
	}
	defer stopFrames()

	for {
		select {
		case <-s.done:
			return

		case state := <-s.pushes:
			if state.Tint != tint {
				s.setTint(state.Tint)
				tint = state.Tint
			}

			now := time.Now()
			target := targetOpacity(state)
			retargeted := timeline.Retarget(target, now)
			if retargeted && frames == nil {
				ticker = time.NewTicker(s.frameInterval)
				frames = ticker.C
			}
			wasMapped := mapped
			mapped = s.render(timeline.Value(now), mapped)
			if raiseOnPush(retargeted, wasMapped && mapped, target) {
				s.raise()
			}

		case now := <-frames:
			mapped = s.render(timeline.Value(now), mapped)
			if timeline.Settled(now) {
				stopFrames()
			}
		}
	}
}

// raiseOnPush reports whether an already mapped overlay should be restacked.
// Windows raised since it was mapped, such as full-screen clients, would
// otherwise stay above it.
func raiseOnPush(retargeted, mapped bool, target float64) bool {
	return retargeted && mapped && target > 0
}

func targetOpacity(state display.PushState) float64 {
	if !state.Blurred {
		return 0
	}
	return state.Opacity
}

// render applies one frame and returns whether the window is mapped.
// A fully clear overlay is unmapped so the compositor can skip it.
func (s *Surface) render(opacity float64, mapped bool) bool {
	conn := s.client.conn

	if opacity <= 0 {
		if mapped {
			if err := xproto.UnmapWindowChecked(conn, s.window).Check(); err != nil {
				log.Printf("Failed to unmap overlay %d: %v", s.index, err)
				return true
			}
		}
		return false
	}

	s.client.setCardinal(s.window, "_NET_WM_WINDOW_OPACITY", opacityCardinal(opacity))

	if !mapped {
		if err := xproto.MapWindowChecked(conn, s.window).Check(); err != nil {
			log.Printf("Failed to map overlay %d: %v", s.index, err)
			return false
		}
		s.raise()
	}
	return true
}

func (s *Surface) raise() {
	xproto.ConfigureWindow(s.client.conn, s.window, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
}

func (s *Surface) setTint(tint display.Color) {
	conn := s.client.conn
	xproto.ChangeWindowAttributes(conn, s.window, xproto.CwBackPixel, []uint32{s.pixel(tint)})
	xproto.ClearArea(conn, false, s.window, 0, 0, 0, 0)
}

// pixel converts an RGB tint to a pixel value of the root visual.
// TrueColor visuals at depth 24 and 32 share the 0xRRGGBB layout.
func (s *Surface) pixel(tint display.Color) uint32 {
	return uint32(tint) & 0xffffff
}

// opacityCardinal scales [0,1] to the 32-bit range used by _NET_WM_WINDOW_OPACITY
func opacityCardinal(opacity float64) uint32 {
	if opacity <= 0 {
		return 0
	}
	if opacity >= 1 {
		return 0xffffffff
	}
	return uint32(opacity * 0xffffffff)
}
