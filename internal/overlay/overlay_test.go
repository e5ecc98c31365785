package overlay

import (
	"fmt"
	"testing"

	"screenblur/internal/blur"
	"screenblur/pkg/display"
)

type fakeSurface struct {
	index       int
	bounds      display.Bounds
	factory     *fakeFactory
	last        *display.PushState
	pushes      int
	transitions int
	destroyed   bool
	pushErr     error
}

func (s *fakeSurface) Index() int             { return s.index }
func (s *fakeSurface) Bounds() display.Bounds { return s.bounds }

func (s *fakeSurface) Push(state display.PushState) error {
	if s.pushErr != nil {
		return s.pushErr
	}
	s.pushes++
	if s.last == nil || *s.last != state {
		s.transitions++
	}
	s.last = &state
	return nil
}

func (s *fakeSurface) Destroy() error {
	if !s.destroyed {
		s.destroyed = true
		s.factory.journal = append(s.factory.journal, fmt.Sprintf("destroy %d", s.index))
	}
	return nil
}

type fakeFactory struct {
	created []*fakeSurface
	journal []string
	failFor map[int]int // index -> remaining failures
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{failFor: make(map[int]int)}
}

func (f *fakeFactory) CreateSurface(index int, bounds display.Bounds) (display.Surface, error) {
	if f.failFor[index] > 0 {
		f.failFor[index]--
		f.journal = append(f.journal, fmt.Sprintf("fail %d", index))
		return nil, fmt.Errorf("host refused overlay %d", index)
	}
	s := &fakeSurface{index: index, bounds: bounds, factory: f}
	f.created = append(f.created, s)
	f.journal = append(f.journal, fmt.Sprintf("create %d", index))
	return s, nil
}

func (f *fakeFactory) live() int {
	n := 0
	for _, s := range f.created {
		if !s.destroyed {
			n++
		}
	}
	return n
}

func topology(bounds ...display.Bounds) []display.Monitor {
	monitors := make([]display.Monitor, len(bounds))
	for i, b := range bounds {
		monitors[i] = display.Monitor{Index: i, Bounds: b}
	}
	return monitors
}

var (
	left  = display.Bounds{X: 0, Y: 0, Width: 1920, Height: 1080}
	right = display.Bounds{X: 1920, Y: 0, Width: 1920, Height: 1080}
	third = display.Bounds{X: 3840, Y: 0, Width: 1280, Height: 1024}
)

func assertMatches(t *testing.T, r *Registry, monitors []display.Monitor) {
	t.Helper()
	handles := r.Handles()
	if len(handles) != len(monitors) {
		t.Fatalf("registry has %d handles, want %d", len(handles), len(monitors))
	}
	for i, h := range handles {
		if h.Index() != i {
			t.Errorf("handle %d has index %d", i, h.Index())
		}
		if h.Bounds() != monitors[i].Bounds {
			t.Errorf("handle %d bounds = %+v, want %+v", i, h.Bounds(), monitors[i].Bounds)
		}
	}
}

func TestReconcileMatchesTopology(t *testing.T) {
	tests := []struct {
		name     string
		monitors []display.Monitor
	}{
		{"No monitors", nil},
		{"Single", topology(left)},
		{"Two", topology(left, right)},
		{"Three", topology(left, right, third)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFactory()
			r := NewRegistry(f)
			r.Reconcile(tt.monitors)
			assertMatches(t, r, tt.monitors)
			if f.live() != len(tt.monitors) {
				t.Errorf("live surfaces = %d, want %d", f.live(), len(tt.monitors))
			}
		})
	}
}

func TestReconcileIsStable(t *testing.T) {
	f := newFakeFactory()
	r := NewRegistry(f)
	mons := topology(left, right)

	for i := 0; i < 5; i++ {
		r.Reconcile(mons)
	}

	if len(f.created) != 2 {
		t.Errorf("created %d surfaces across stable ticks, want 2", len(f.created))
	}
	assertMatches(t, r, mons)
}

func TestReconcileDestroysBeforeCreating(t *testing.T) {
	f := newFakeFactory()
	r := NewRegistry(f)

	r.Reconcile(topology(left, right, third))
	f.journal = nil

	// Shrink to one monitor, then grow back to two
	r.Reconcile(topology(left))
	assertMatches(t, r, topology(left))
	r.Reconcile(topology(left, right))
	assertMatches(t, r, topology(left, right))

	want := []string{"destroy 1", "destroy 2", "create 1"}
	if fmt.Sprint(f.journal) != fmt.Sprint(want) {
		t.Errorf("journal = %v, want %v", f.journal, want)
	}
}

func TestReconcileRebuildsOnGeometryChange(t *testing.T) {
	f := newFakeFactory()
	r := NewRegistry(f)
	r.Reconcile(topology(left, right))
	f.journal = nil

	// Right monitor changed resolution: nothing is patched in place
	resized := display.Bounds{X: 1920, Y: 0, Width: 2560, Height: 1440}
	mons := topology(left, resized)
	r.Reconcile(mons)

	want := []string{"destroy 0", "destroy 1", "create 0", "create 1"}
	if fmt.Sprint(f.journal) != fmt.Sprint(want) {
		t.Errorf("journal = %v, want %v", f.journal, want)
	}
	assertMatches(t, r, mons)
	if f.live() != 2 {
		t.Errorf("live surfaces = %d, want 2", f.live())
	}
}

func TestReconcileRetriesFailedCreation(t *testing.T) {
	f := newFakeFactory()
	f.failFor[1] = 2
	r := NewRegistry(f)
	mons := topology(left, right)

	r.Reconcile(mons)
	if r.Has(1) {
		t.Fatal("index 1 present after failed creation")
	}
	if !r.Has(0) {
		t.Fatal("index 0 missing, failure of 1 must not affect it")
	}

	r.Reconcile(mons)
	if r.Has(1) {
		t.Fatal("index 1 present after second failed creation")
	}

	r.Reconcile(mons)
	assertMatches(t, r, mons)
}

func TestRegistryClose(t *testing.T) {
	f := newFakeFactory()
	r := NewRegistry(f)
	r.Reconcile(topology(left, right, third))

	r.Close()

	if r.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", r.Len())
	}
	if f.live() != 0 {
		t.Errorf("%d surfaces leaked after Close", f.live())
	}
}

func TestBroadcastFormula(t *testing.T) {
	f := newFakeFactory()
	r := NewRegistry(f)
	r.Reconcile(topology(left, right, third))
	b := NewBroadcaster()

	for _, enabled := range []bool{true, false} {
		for focused := 0; focused < 3; focused++ {
			state := blur.Snapshot{Enabled: enabled, Opacity: 0.6}
			pushed := b.Broadcast(r.Handles(), focused, state)

			if len(pushed) != 3 {
				t.Fatalf("pushed to %d surfaces, want 3", len(pushed))
			}
			for i, ps := range pushed {
				want := enabled && i != focused
				if ps.Blurred != want {
					t.Errorf("enabled=%v focused=%d: blurred[%d] = %v, want %v", enabled, focused, i, ps.Blurred, want)
				}
				if ps.Opacity != 0.6 {
					t.Errorf("opacity[%d] = %v, want 0.6", i, ps.Opacity)
				}
			}
		}
	}
}

func TestBroadcastScenarioA(t *testing.T) {
	f := newFakeFactory()
	r := NewRegistry(f)
	r.Reconcile(topology(left, right))
	b := NewBroadcaster()
	state := blur.Snapshot{Enabled: true, Opacity: 0.7}

	pushed := b.Broadcast(r.Handles(), 0, state)
	if pushed[0].Blurred || !pushed[1].Blurred {
		t.Errorf("cursor on A: got A=%v B=%v, want A clear and B blurred", pushed[0].Blurred, pushed[1].Blurred)
	}

	pushed = b.Broadcast(r.Handles(), 1, state)
	if !pushed[0].Blurred || pushed[1].Blurred {
		t.Errorf("cursor on B: got A=%v B=%v, want A blurred and B clear", pushed[0].Blurred, pushed[1].Blurred)
	}
}

func TestBroadcastPushesUnconditionallyAndIdempotently(t *testing.T) {
	f := newFakeFactory()
	r := NewRegistry(f)
	r.Reconcile(topology(left, right))
	b := NewBroadcaster()
	state := blur.Snapshot{Enabled: true, Opacity: 0.7}

	b.Broadcast(r.Handles(), 0, state)
	b.Broadcast(r.Handles(), 0, state)

	for _, s := range f.created {
		if s.pushes != 2 {
			t.Errorf("surface %d got %d pushes, want 2 (including clear ones)", s.index, s.pushes)
		}
		if s.transitions != 1 {
			t.Errorf("surface %d saw %d transitions, want 1", s.index, s.transitions)
		}
	}
}

func TestBroadcastSkipsFailingSurface(t *testing.T) {
	f := newFakeFactory()
	r := NewRegistry(f)
	r.Reconcile(topology(left, right))
	f.created[0].pushErr = fmt.Errorf("surface gone")

	pushed := NewBroadcaster().Broadcast(r.Handles(), 0, blur.Snapshot{Enabled: true, Opacity: 1})

	if _, ok := pushed[0]; ok {
		t.Error("failed push reported as pushed")
	}
	if !pushed[1].Blurred {
		t.Error("surface 1 not pushed after surface 0 failed")
	}
}
