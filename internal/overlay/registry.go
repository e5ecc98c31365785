package overlay

import (
	"log"
	"sort"

	"screenblur/pkg/display"
)

// Registry owns exactly one overlay surface per monitor index
type Registry struct {
	factory  display.SurfaceFactory
	surfaces map[int]display.Surface
}

// NewRegistry creates an empty registry that builds surfaces with factory
func NewRegistry(factory display.SurfaceFactory) *Registry {
	return &Registry{
		factory:  factory,
		surfaces: make(map[int]display.Surface),
	}
}

// Reconcile makes the surface set match monitors: one surface per index, each
// pinned to its monitor's bounds. Surfaces are never moved in place; if any
// surviving index changed geometry the whole set is rebuilt. Stale surfaces
// are destroyed before new ones are created so two overlays never cover the
// same monitor. A surface the factory fails to create stays absent until the
// next call.
func (r *Registry) Reconcile(monitors []display.Monitor) {
	if r.geometryChanged(monitors) {
		log.Printf("Monitor geometry changed, rebuilding %d overlays", len(r.surfaces))
		r.destroyWhere(func(int) bool { return true })
	}

	r.destroyWhere(func(index int) bool { return index >= len(monitors) })

	for i, m := range monitors {
		if _, ok := r.surfaces[i]; ok {
			continue
		}
		surface, err := r.factory.CreateSurface(i, m.Bounds)
		if err != nil {
			log.Printf("Failed to create overlay for monitor %d: %v", i, err)
			continue
		}
		r.surfaces[i] = surface
	}
}

func (r *Registry) geometryChanged(monitors []display.Monitor) bool {
	for index, surface := range r.surfaces {
		if index < len(monitors) && surface.Bounds() != monitors[index].Bounds {
			return true
		}
	}
	return false
}

func (r *Registry) destroyWhere(match func(index int) bool) {
	for _, index := range r.indices() {
		if !match(index) {
			continue
		}
		if err := r.surfaces[index].Destroy(); err != nil {
			log.Printf("Failed to destroy overlay for monitor %d: %v", index, err)
		}
		delete(r.surfaces, index)
	}
}

func (r *Registry) indices() []int {
	indices := make([]int, 0, len(r.surfaces))
	for index := range r.surfaces {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices
}

// Handles returns the live surfaces ordered by monitor index
func (r *Registry) Handles() []display.Surface {
	handles := make([]display.Surface, 0, len(r.surfaces))
	for _, index := range r.indices() {
		handles = append(handles, r.surfaces[index])
	}
	return handles
}

// Has reports whether a surface exists for index
func (r *Registry) Has(index int) bool {
	_, ok := r.surfaces[index]
	return ok
}

// Len returns the number of live surfaces
func (r *Registry) Len() int {
	return len(r.surfaces)
}

// Close destroys every surface
func (r *Registry) Close() {
	r.destroyWhere(func(int) bool { return true })
}
