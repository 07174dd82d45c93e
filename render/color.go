package render

import (
	"strconv"
	"strings"
)

// Color is an RGB color with 0-255 components.
type Color struct {
	R, G, B int
}

// Black is the default text and stroke color.
var Black = Color{}

// ParseColor parses a #RRGGBB hex color; the leading # is optional.
// Malformed input yields black and false.
func ParseColor(s string) (Color, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Black, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Black, false
	}
	return Color{R: int((v >> 16) & 0xff), G: int((v >> 8) & 0xff), B: int(v & 0xff)}, true
}
