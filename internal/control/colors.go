package control

import (
	"fmt"
	"sort"
	"strings"

	"screenblur/pkg/display"
)

var colors = map[string]display.Color{
	"black":    0x000000,
	"white":    0xffffff,
	"blue":     0x000032,
	"darkgray": 0x1e1e1e,
}

// ParseColor maps a colour name to its tint. Names are case-insensitive.
func ParseColor(name string) (display.Color, error) {
	c, ok := colors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q (known: %s)", ErrUnknownColor, name, strings.Join(ColorNames(), ", "))
	}
	return c, nil
}

// ColorName returns the name of c, or its hex form when c has no name
func ColorName(c display.Color) string {
	for name, v := range colors {
		if v == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", uint32(c))
}

// ColorNames lists the known colour names in sorted order
func ColorNames() []string {
	names := make([]string, 0, len(colors))
	for name := range colors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
