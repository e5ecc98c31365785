package display

// Bounds is a monitor rectangle in global desktop coordinates.
// It spans [X, X+Width) horizontally and [Y, Y+Height) vertically.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point is a position in global desktop coordinates
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Monitor is one entry of a topology snapshot. Index is the position in the
// current enumeration only and must not be used as an identity across ticks.
type Monitor struct {
	Index  int    `json:"index"`
	Bounds Bounds `json:"bounds"`
}

// Color is a 24-bit RGB overlay tint
type Color uint32

// RGB splits the color into its 8-bit channels
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// PushState is the message sent to an overlay surface every tick
type PushState struct {
	Blurred bool    `json:"blurred"`
	Opacity float64 `json:"opacity"`
	Tint    Color   `json:"tint"`
}

// TopologyKind says what happened to the set of monitors
type TopologyKind int

const (
	MonitorAdded TopologyKind = iota
	MonitorRemoved
)

func (k TopologyKind) String() string {
	switch k {
	case MonitorAdded:
		return "monitor added"
	case MonitorRemoved:
		return "monitor removed"
	default:
		return "topology changed"
	}
}

// TopologyEvent is emitted by a Host when a monitor is connected or disconnected
type TopologyEvent struct {
	Kind  TopologyKind
	Count int // Monitor count after the change, 0 if unknown
}

// Host is the interface that all display subsystem implementations must satisfy
type Host interface {
	// Monitors returns the current ordered set of monitor bounds
	Monitors() ([]Monitor, error)

	// CursorPosition returns the global cursor position
	CursorPosition() (Point, error)

	// TopologyChanges delivers monitor added/removed notifications
	TopologyChanges() <-chan TopologyEvent

	// IsAvailable checks if this host can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type ("x11" or "wayland")
	GetDisplayServer() string

	// Close cleans up any resources used by the host
	Close() error
}

// Surface is a borderless, click-through, always-on-top overlay pinned to one monitor.
type Surface interface {
	// Index is the monitor index the surface was created for
	Index() int

	// Bounds is the geometry fixed at creation time
	Bounds() Bounds

	// Push hands the latest state to the surface. Pushing the same state
	// twice must not change anything visible.
	Push(state PushState) error

	// Destroy releases the surface. It is safe to call more than once.
	Destroy() error
}

// SurfaceFactory creates overlay surfaces
type SurfaceFactory interface {
	CreateSurface(index int, bounds Bounds) (Surface, error)
}
