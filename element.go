package pdftemplate

import "strings"

// Kind is the discriminator of an element variant.
type Kind string

const (
	KindText     Kind = "text"
	KindCheckbox Kind = "checkbox"
	KindImage    Kind = "image"
	KindRepeat   Kind = "repeat"
	KindBarcode  Kind = "barcode"
)

// Align is a horizontal alignment.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// VAlign is a vertical alignment.
type VAlign string

const (
	VAlignTop    VAlign = "top"
	VAlignMiddle VAlign = "middle"
	VAlignBottom VAlign = "bottom"
)

// Overflow policies for text that is wider than its box.
const (
	OverflowVisible = "visible"
	OverflowShrink  = "shrink"
)

// Style defaults.
const (
	DefaultFontSize   = 10.0
	DefaultLineHeight = 1.2
	DefaultMinSize    = 4.0
	DefaultRowHeight  = 18.0
	DefaultColumnW    = 100.0
)

// BBox is an axis-aligned rectangle in screen coordinates: origin at the
// top-left of the page, y growing downwards, units in points.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// DefaultBBox is used for elements stored without a bbox.
func DefaultBBox() BBox {
	return BBox{W: 100, H: 20}
}

// Style holds text styling attributes. Zero values mean "use the default".
type Style struct {
	Font            string  `json:"font,omitempty"` // informational, chosen by the editor
	Size            float64 `json:"size,omitempty"`
	Align           Align   `json:"align,omitempty"`
	Weight          string  `json:"weight,omitempty"` // normal, bold
	Color           string  `json:"color,omitempty"`  // #RRGGBB
	BackgroundColor string  `json:"background_color,omitempty"`
	Underline       bool    `json:"underline,omitempty"`
	Strikethrough   bool    `json:"strikethrough,omitempty"`
	LineHeight      float64 `json:"line_height,omitempty"`
	LetterSpacing   float64 `json:"letter_spacing,omitempty"`
	VerticalAlign   VAlign  `json:"vertical_align,omitempty"`
	Overflow        string  `json:"overflow,omitempty"` // visible, shrink
	MinSize         float64 `json:"min_size,omitempty"`
}

// FontSize returns the font size in points.
func (s Style) FontSize() float64 {
	if s.Size > 0 {
		return s.Size
	}
	return DefaultFontSize
}

// HAlign returns the normalized horizontal alignment.
func (s Style) HAlign() Align {
	return ParseAlign(string(s.Align))
}

// VAlign returns the normalized vertical alignment.
func (s Style) VAlign() VAlign {
	switch VAlign(strings.ToLower(string(s.VerticalAlign))) {
	case VAlignMiddle:
		return VAlignMiddle
	case VAlignBottom:
		return VAlignBottom
	}
	return VAlignTop
}

// Bold reports whether a bold weight was requested.
func (s Style) Bold() bool {
	return strings.EqualFold(s.Weight, "bold")
}

// Background returns the background color and whether one should be painted.
// "transparent", "none" and the empty string mean no background.
func (s Style) Background() (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s.BackgroundColor)) {
	case "", "none", "transparent":
		return "", false
	}
	return s.BackgroundColor, true
}

// Shrink reports whether text should be shrunk to fit its box.
func (s Style) Shrink() bool {
	return strings.EqualFold(s.Overflow, OverflowShrink)
}

// MinFontSize returns the lower bound used by shrink-to-fit.
func (s Style) MinFontSize() float64 {
	if s.MinSize > 0 {
		return s.MinSize
	}
	return DefaultMinSize
}

// ParseAlign normalizes an alignment string; unknown values mean left.
// The single-letter forms L, C and R are accepted as well.
func ParseAlign(s string) Align {
	switch strings.ToLower(s) {
	case "center", "c":
		return AlignCenter
	case "right", "r":
		return AlignRight
	}
	return AlignLeft
}

// Element is one positioned, typed drawing instruction. The set of
// implementations is closed: *TextElement, *CheckboxElement, *ImageElement,
// *RepeatElement and *BarcodeElement.
type Element interface {
	Kind() Kind
	Common() *Base
	isElement()
}

// Base holds the fields shared by every element variant.
type Base struct {
	ID   string `json:"id,omitempty"`
	Page int    `json:"page,omitempty"`
	BBox BBox   `json:"bbox"`
}

// Common returns the shared fields.
func (b *Base) Common() *Base { return b }

// PageNumber returns the 1-based page, defaulting to 1.
func (b *Base) PageNumber() int {
	if b.Page < 1 {
		return 1
	}
	return b.Page
}

func (*Base) isElement() {}

// TextElement draws the value at DataPath inside its box.
type TextElement struct {
	Base
	DataPath string `json:"data_path"`
	Style    Style  `json:"style"`
}

// Kind implements Element.
func (*TextElement) Kind() Kind { return KindText }

// CheckboxElement draws a checkmark when its condition holds.
type CheckboxElement struct {
	Base
	DataPath string `json:"data_path"`
}

// Kind implements Element.
func (*CheckboxElement) Kind() Kind { return KindCheckbox }

// ImageElement draws an uploaded image stretched into its box.
type ImageElement struct {
	Base
	ImagePath string `json:"image_path"`
}

// Kind implements Element.
func (*ImageElement) Kind() Kind { return KindImage }

// Column is one column of a repeating table. X is relative to the table's
// left edge. The cell shows the item field named by Key; numbers with no
// fractional part print without one, so 12.0 in the data prints as "12".
type Column struct {
	Key   string  `json:"key"`
	X     float64 `json:"x"`
	W     float64 `json:"w"`
	Align Align   `json:"align,omitempty"`
}

// RepeatElement draws one row per item of the array at ItemsPath.
type RepeatElement struct {
	Base
	ItemsPath string   `json:"items_path"`
	Columns   []Column `json:"columns"`
	RowHeight float64  `json:"row_height"`
	Style     Style    `json:"style"`
}

// Kind implements Element.
func (*RepeatElement) Kind() Kind { return KindRepeat }

// Barcode symbologies.
const (
	SymbologyQR         = "qr"
	SymbologyCode128    = "code128"
	SymbologyPDF417     = "pdf417"
	SymbologyDataMatrix = "datamatrix"
)

// BarcodeElement encodes the value at DataPath as a barcode.
type BarcodeElement struct {
	Base
	DataPath  string `json:"data_path"`
	Symbology string `json:"symbology,omitempty"`
}

// Kind implements Element.
func (*BarcodeElement) Kind() Kind { return KindBarcode }

// Elements is an ordered element list. Order is paint order.
type Elements []Element

// MaxPage returns the highest referenced page number, or 1 for an empty list.
func (es Elements) MaxPage() int {
	max := 1
	for _, e := range es {
		if p := e.Common().PageNumber(); p > max {
			max = p
		}
	}
	return max
}

// ByPage groups elements by page number, preserving list order within a page.
func (es Elements) ByPage() map[int][]Element {
	out := make(map[int][]Element)
	for _, e := range es {
		p := e.Common().PageNumber()
		out[p] = append(out[p], e)
	}
	return out
}
