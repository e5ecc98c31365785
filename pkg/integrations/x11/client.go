package x11

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/shape"
	"github.com/jezek/xgb/xinerama"
	"github.com/jezek/xgb/xproto"
)

// ErrNoShape means the server cannot make a window click-through
var ErrNoShape = errors.New("X server lacks the SHAPE extension required for click-through overlays")

// Client is one X connection shared by the host and the overlay surfaces.
// It owns the only event reader on the connection.
type Client struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	root   xproto.Window
	atoms  map[string]xproto.Atom

	hasRandr    bool
	hasXinerama bool
	hasShape    bool

	mu          sync.Mutex
	subscribers []chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
}

var atomNames = []string{
	"_NET_WM_WINDOW_OPACITY",
	"_NET_WM_STATE",
	"_NET_WM_STATE_ABOVE",
	"_NET_WM_STATE_STICKY",
	"_NET_WM_STATE_SKIP_TASKBAR",
	"_NET_WM_STATE_SKIP_PAGER",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_WINDOW_TYPE_NOTIFICATION",
	"_NET_WM_NAME",
	"UTF8_STRING",
}

// NewClient connects to $DISPLAY and probes the extensions used for
// monitors, topology events and click-through surfaces.
func NewClient() (*Client, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	c := &Client{
		conn:   conn,
		screen: screen,
		root:   screen.Root,
		atoms:  make(map[string]xproto.Atom),
		done:   make(chan struct{}),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		c.atoms[name] = reply.Atom
	}

	if err := randr.Init(conn); err == nil {
		if _, err := randr.QueryVersion(conn, 1, 3).Reply(); err == nil {
			c.hasRandr = true
		}
	}
	if err := xinerama.Init(conn); err == nil {
		c.hasXinerama = true
	}
	if err := shape.Init(conn); err == nil {
		if _, err := shape.QueryVersion(conn).Reply(); err == nil {
			c.hasShape = true
		}
	}

	go c.readEvents()

	return c, nil
}

// readEvents drains the connection. Unchecked request errors are logged;
// any RandR notification wakes every subscriber.
func (c *Client) readEvents() {
	defer c.closeSubscribers()

	for {
		ev, xerr := c.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			log.Printf("X11 error: %v", xerr)
			continue
		}

		switch ev.(type) {
		case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
			c.notify()
		}
	}
}

// Subscribe returns a channel that receives a value after RandR
// notifications. Bursts are coalesced; the channel is closed with the connection.
func (c *Client) Subscribe() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan struct{}, 1)
	select {
	case <-c.done:
		close(ch)
		return ch
	default:
	}
	c.subscribers = append(c.subscribers, ch)
	return ch
}

func (c *Client) notify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (c *Client) closeSubscribers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.done) })
	for _, ch := range c.subscribers {
		close(ch)
	}
	c.subscribers = nil
}

// Close disconnects from the X server
func (c *Client) Close() error {
	c.conn.Close()
	return nil
}

func (c *Client) atom(name string) xproto.Atom {
	return c.atoms[name]
}

func (c *Client) setCardinal(window xproto.Window, property string, value uint32) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, value)
	xproto.ChangeProperty(c.conn, xproto.PropModeReplace, window, c.atom(property), xproto.AtomCardinal, 32, 1, data)
}

func (c *Client) setAtoms(window xproto.Window, property string, values ...string) error {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(c.atom(v)))
	}
	return xproto.ChangePropertyChecked(c.conn, xproto.PropModeReplace, window, c.atom(property),
		xproto.AtomAtom, 32, uint32(len(values)), data).Check()
}

func (c *Client) setName(window xproto.Window, name string) error {
	return xproto.ChangePropertyChecked(c.conn, xproto.PropModeReplace, window, c.atom("_NET_WM_NAME"),
		c.atom("UTF8_STRING"), 8, uint32(len(name)), []byte(name)).Check()
}
