package resolve

import pdftemplate "github.com/lvillar/pdftemplate"

// Origin is the corner a drawing backend measures y from.
type Origin int

const (
	// TopLeft backends share screen space: y grows downwards.
	TopLeft Origin = iota
	// BottomLeft backends use native PDF space: y grows upwards.
	BottomLeft
)

// Rect is a rectangle in a backend's native coordinates. For a bottom-left
// origin, (X, Y) is the lower-left corner; for top-left it is the upper-left.
type Rect struct {
	X, Y, W, H float64
}

// ToCanvasSpace converts a screen-space box into the backend's space.
func ToCanvasSpace(b pdftemplate.BBox, pageHeight float64, o Origin) Rect {
	if o == BottomLeft {
		return Rect{X: b.X, Y: pageHeight - b.Y - b.H, W: b.W, H: b.H}
	}
	return Rect{X: b.X, Y: b.Y, W: b.W, H: b.H}
}

// FromCanvasSpace is the inverse of ToCanvasSpace.
func FromCanvasSpace(r Rect, pageHeight float64, o Origin) pdftemplate.BBox {
	if o == BottomLeft {
		return pdftemplate.BBox{X: r.X, Y: pageHeight - r.Y - r.H, W: r.W, H: r.H}
	}
	return pdftemplate.BBox{X: r.X, Y: r.Y, W: r.W, H: r.H}
}

// PointY converts a screen-space y coordinate (a baseline or a line end).
// The conversion is its own inverse.
func PointY(y, pageHeight float64, o Origin) float64 {
	if o == BottomLeft {
		return pageHeight - y
	}
	return y
}
