// Package render draws template elements onto page canvases and assembles
// them into an overlay document.
//
// Elements are positioned in screen space (top-left origin, y down, points).
// Every primitive is converted to the target canvas' own coordinate system
// through the resolve package before it is drawn, so the same element list
// renders identically on a top-left backend such as gofpdf and on a
// bottom-left one.
package render

import (
	"io"

	"github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/fontset"
	"github.com/lvillar/pdftemplate/resolve"
)

// TextMode selects how glyph outlines are painted.
type TextMode int

const (
	TextFill TextMode = iota
	TextStroke
)

// Image is a decoded raster image ready to be placed on a canvas.
type Image struct {
	Name string // unique within a document
	Type string // gofpdf image type, e.g. "PNG"
	Data []byte
}

// Canvas is one page of an overlay document. Coordinates passed to a Canvas
// are in its own space as reported by Origin. Text y is the baseline.
type Canvas interface {
	Origin() resolve.Origin
	PageSize() pdftemplate.PageSize

	RegisterFont(f fontset.Font) error
	SetFont(f fontset.Font, size float64) error
	MeasureText(s string) (float64, error)
	Text(x, y float64, s string, c Color, mode TextMode) error

	FillRect(r resolve.Rect, c Color) error
	Line(x1, y1, x2, y2, width float64, c Color) error
	Image(r resolve.Rect, img *Image) error
	Barcode(r resolve.Rect, symbology, code string) error
}

// Document is an overlay document under construction.
type Document interface {
	AddPage(size pdftemplate.PageSize) (Canvas, error)
	Output(w io.Writer) error
}
