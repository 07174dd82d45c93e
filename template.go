// Package pdftemplate holds the data model of PDF form templates: a base PDF
// document plus an ordered list of positioned elements bound to data paths.
//
// Templates are persisted as JSON. Elements are a closed set of variants
// (text, checkbox, image, repeat, barcode) encoded as a tagged union on the
// "type" key:
//
//	{
//	  "template_id": "8d0c...",
//	  "page_size": {"w_pt": 595.28, "h_pt": 841.89},
//	  "elements": [
//	    {"type": "text", "page": 1, "bbox": {"x": 50, "y": 50, "w": 200, "h": 20},
//	     "data_path": "customer.name", "style": {"size": 12, "align": "left"}}
//	  ]
//	}
//
// Rendering lives in the render package, merging in pageops.
package pdftemplate

import "time"

// Default page dimensions in points (A4 portrait).
const (
	DefaultPageWidth  = 595.28
	DefaultPageHeight = 841.89
)

// ElementsOverrideKey is the reserved data key carrying a one-shot element list.
const ElementsOverrideKey = "_elements"

// PageSize is a page size in points.
type PageSize struct {
	W float64 `json:"w_pt"`
	H float64 `json:"h_pt"`
}

// OrDefault returns s, replacing non-positive dimensions with A4.
func (s *PageSize) OrDefault() PageSize {
	out := PageSize{W: DefaultPageWidth, H: DefaultPageHeight}
	if s == nil {
		return out
	}
	if s.W > 0 {
		out.W = s.W
	}
	if s.H > 0 {
		out.H = s.H
	}
	return out
}

// PageInfo describes one page of the base document. Informational only.
type PageInfo struct {
	Page     int     `json:"page"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	WidthPt  float64 `json:"width_pt"`
	HeightPt float64 `json:"height_pt"`
}

// FormField is an AcroForm field detected in the base document. Rect is in
// screen coordinates of the first page when the field carries one.
type FormField struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Rect *BBox  `json:"rect,omitempty"`
}

// Template is a persisted base document plus its field mapping.
type Template struct {
	ID          string      `json:"template_id"`
	Filename    string      `json:"filename,omitempty"`
	UserID      string      `json:"user_id,omitempty"`
	PageSize    *PageSize   `json:"page_size,omitempty"`
	Pages       []PageInfo  `json:"pages"`
	Elements    Elements    `json:"elements"`
	HasAcroForm bool        `json:"has_acroform,omitempty"`
	FormFields  []FormField `json:"form_fields,omitempty"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

// Summary is the listing view of a template.
type Summary struct {
	ID           string `json:"template_id"`
	Filename     string `json:"filename"`
	CreatedAt    string `json:"created_at"`
	ElementCount int    `json:"element_count"`
}

// Summary returns the listing view of t.
func (t *Template) Summary() Summary {
	return Summary{
		ID:           t.ID,
		Filename:     t.Filename,
		CreatedAt:    t.CreatedAt,
		ElementCount: len(t.Elements),
	}
}

// WithElements returns a shallow copy of t whose element list is replaced.
// The receiver is not modified.
func (t *Template) WithElements(elems Elements) *Template {
	cp := *t
	cp.Elements = elems
	return &cp
}

// MaxPage returns the highest page number referenced by any element, or 1.
func (t *Template) MaxPage() int {
	return t.Elements.MaxPage()
}

// Timestamp formats a creation time the way templates store it.
func Timestamp(now time.Time) string {
	return now.Format(time.RFC3339)
}
