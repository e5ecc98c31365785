package focus

import "screenblur/pkg/display"

// Contains reports whether p lies inside b. Bounds are min-inclusive and
// max-exclusive on both axes, so adjacent monitors never share an edge pixel.
func Contains(b display.Bounds, p display.Point) bool {
	return p.X >= b.X && p.X < b.X+b.Width &&
		p.Y >= b.Y && p.Y < b.Y+b.Height
}

// Resolve returns the index of the monitor hosting p.
//
// A point outside every monitor (bezel gaps, transient bad reads, scaling
// rounding) resolves to 0. When monitors overlap the lowest matching index
// wins. Resolve never fails, whatever the topology looks like.
func Resolve(monitors []display.Monitor, p display.Point) int {
	for i, m := range monitors {
		if Contains(m.Bounds, p) {
			return i
		}
	}
	return 0
}
