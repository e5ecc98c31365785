package overlay

import (
	"log"

	"screenblur/internal/blur"
	"screenblur/pkg/display"
)

// Broadcaster pushes the blur state to every overlay surface
type Broadcaster struct{}

// NewBroadcaster creates a broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// StateFor computes what the surface at index should show
func StateFor(index, focused int, state blur.Snapshot) display.PushState {
	return display.PushState{
		Blurred: state.Enabled && index != focused,
		Opacity: state.Opacity,
		Tint:    state.Tint,
	}
}

// Broadcast pushes to every handle, including the ones that end up clear, so
// a surface can stage its own transition. A failing push is logged and does
// not stop the others. The returned map holds what was pushed, by index.
func (b *Broadcaster) Broadcast(handles []display.Surface, focused int, state blur.Snapshot) map[int]display.PushState {
	pushed := make(map[int]display.PushState, len(handles))
	for _, h := range handles {
		ps := StateFor(h.Index(), focused, state)
		if err := h.Push(ps); err != nil {
			log.Printf("Failed to push state to overlay %d: %v", h.Index(), err)
			continue
		}
		pushed[h.Index()] = ps
	}
	return pushed
}
