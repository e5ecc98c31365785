package focus

import (
	"math/rand"
	"testing"

	"screenblur/pkg/display"
)

func monitorsOf(bounds ...display.Bounds) []display.Monitor {
	monitors := make([]display.Monitor, len(bounds))
	for i, b := range bounds {
		monitors[i] = display.Monitor{Index: i, Bounds: b}
	}
	return monitors
}

func TestResolve(t *testing.T) {
	sideBySide := monitorsOf(
		display.Bounds{X: 0, Y: 0, Width: 1920, Height: 1080},
		display.Bounds{X: 1920, Y: 0, Width: 1920, Height: 1080},
	)

	tests := []struct {
		name     string
		monitors []display.Monitor
		point    display.Point
		want     int
	}{
		{"Inside first", sideBySide, display.Point{X: 100, Y: 100}, 0},
		{"Inside second", sideBySide, display.Point{X: 2000, Y: 100}, 1},
		{"Left edge is inclusive", sideBySide, display.Point{X: 1920, Y: 0}, 1},
		{"Right edge is exclusive", sideBySide, display.Point{X: 1919, Y: 1079}, 0},
		{"Bottom edge is exclusive", sideBySide, display.Point{X: 2000, Y: 1080}, 0},
		{"Outside everything", sideBySide, display.Point{X: 5000, Y: 5000}, 0},
		{"Negative coordinates outside", sideBySide, display.Point{X: -1, Y: -1}, 0},
		{"Empty topology", nil, display.Point{X: 10, Y: 10}, 0},
		{
			name: "Monitor left of primary",
			monitors: monitorsOf(
				display.Bounds{X: 0, Y: 0, Width: 2560, Height: 1440},
				display.Bounds{X: -1280, Y: 200, Width: 1280, Height: 1024},
			),
			point: display.Point{X: -10, Y: 300},
			want:  1,
		},
		{
			name: "Overlapping bounds pick lowest index",
			monitors: monitorsOf(
				display.Bounds{X: 0, Y: 0, Width: 800, Height: 600},
				display.Bounds{X: 0, Y: 0, Width: 1920, Height: 1080},
				display.Bounds{X: 0, Y: 0, Width: 1920, Height: 1080},
			),
			point: display.Point{X: 1000, Y: 700},
			want:  1,
		},
		{
			name: "Zero sized monitor never matches",
			monitors: monitorsOf(
				display.Bounds{X: 0, Y: 0, Width: 1920, Height: 1080},
				display.Bounds{X: 1920, Y: 0, Width: 0, Height: 0},
			),
			point: display.Point{X: 1920, Y: 0},
			want:  0,
		},
		{
			name: "Bezel gap falls back to first",
			monitors: monitorsOf(
				display.Bounds{X: 0, Y: 0, Width: 1920, Height: 1080},
				display.Bounds{X: 1940, Y: 0, Width: 1920, Height: 1080},
			),
			point: display.Point{X: 1930, Y: 10},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.monitors, tt.point); got != tt.want {
				t.Errorf("Resolve(%v) = %d, want %d", tt.point, got, tt.want)
			}
		})
	}
}

// A grid of non-overlapping monitors: any point strictly inside cell r
// resolves to r, any point outside the grid resolves to 0.
func TestResolveGrid(t *testing.T) {
	const cols, rows, w, h = 3, 2, 1280, 720

	var monitors []display.Monitor
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			monitors = append(monitors, display.Monitor{
				Index:  len(monitors),
				Bounds: display.Bounds{X: c * w, Y: r * h, Width: w, Height: h},
			})
		}
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		want := rng.Intn(len(monitors))
		b := monitors[want].Bounds
		p := display.Point{X: b.X + rng.Intn(b.Width), Y: b.Y + rng.Intn(b.Height)}
		if got := Resolve(monitors, p); got != want {
			t.Fatalf("Resolve(%v) = %d, want %d", p, got, want)
		}
	}

	outside := []display.Point{
		{X: cols * w, Y: 0},
		{X: 0, Y: rows * h},
		{X: -1, Y: 100},
		{X: 100, Y: -1},
	}
	for _, p := range outside {
		if got := Resolve(monitors, p); got != 0 {
			t.Errorf("Resolve(%v) = %d, want 0", p, got)
		}
	}
}

func TestContains(t *testing.T) {
	b := display.Bounds{X: 10, Y: 20, Width: 5, Height: 5}

	tests := []struct {
		p    display.Point
		want bool
	}{
		{display.Point{X: 10, Y: 20}, true},
		{display.Point{X: 14, Y: 24}, true},
		{display.Point{X: 15, Y: 24}, false},
		{display.Point{X: 14, Y: 25}, false},
		{display.Point{X: 9, Y: 20}, false},
	}

	for _, tt := range tests {
		if got := Contains(b, tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func BenchmarkResolve(b *testing.B) {
	monitors := monitorsOf(
		display.Bounds{X: 0, Y: 0, Width: 1920, Height: 1080},
		display.Bounds{X: 1920, Y: 0, Width: 1920, Height: 1080},
		display.Bounds{X: 3840, Y: 0, Width: 1920, Height: 1080},
	)
	p := display.Point{X: 4000, Y: 500}

	for i := 0; i < b.N; i++ {
		_ = Resolve(monitors, p)
	}
}
