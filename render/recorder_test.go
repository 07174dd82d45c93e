package render

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/fontset"
	"github.com/lvillar/pdftemplate/resolve"
)

// op is one recorded drawing call, with coordinates converted back to
// screen space so assertions read the same for either origin.
type op struct {
	Kind   string // text, rect, line, image, barcode
	X, Y   float64
	X2, Y2 float64
	W, H   float64
	Text   string
	Font   string
	Size   float64
	Mode   TextMode
	Color  Color
	Width  float64
}

// recorder is a Document and Canvas that records calls instead of drawing.
// Every glyph is half the font size wide.
type recorder struct {
	origin      resolve.Origin
	size        pdftemplate.PageSize
	pages       []pdftemplate.PageSize
	ops         []op
	font        fontset.Font
	fontSize    float64
	registered  []string
	failFonts   map[string]bool
	refuseFonts map[string]bool
	failMeasure bool
}

func newRecorder(o resolve.Origin) *recorder {
	return &recorder{origin: o, failFonts: map[string]bool{}, refuseFonts: map[string]bool{}}
}

func (r *recorder) AddPage(size pdftemplate.PageSize) (Canvas, error) {
	r.size = size
	r.pages = append(r.pages, size)
	return r, nil
}

func (r *recorder) Output(w io.Writer) error {
	_, err := fmt.Fprintf(w, "recorded %d pages", len(r.pages))
	return err
}

func (r *recorder) Origin() resolve.Origin         { return r.origin }
func (r *recorder) PageSize() pdftemplate.PageSize { return r.size }

func (r *recorder) RegisterFont(f fontset.Font) error {
	if r.failFonts[f.Name] {
		return errors.New("corrupt font")
	}
	r.registered = append(r.registered, f.Name)
	return nil
}

func (r *recorder) SetFont(f fontset.Font, size float64) error {
	if r.refuseFonts[f.Name] {
		return fmt.Errorf("undefined font: %s", f.Name)
	}
	r.font = f
	r.fontSize = size
	return nil
}

func (r *recorder) MeasureText(s string) (float64, error) {
	if r.failMeasure {
		return 0, errors.New("no metrics")
	}
	return float64(utf8.RuneCountInString(s)) * r.fontSize * 0.5, nil
}

func (r *recorder) y(y float64) float64 { return resolve.PointY(y, r.size.H, r.origin) }

func (r *recorder) Text(x, y float64, s string, c Color, mode TextMode) error {
	r.ops = append(r.ops, op{Kind: "text", X: x, Y: r.y(y), Text: s, Font: r.font.Name, Size: r.fontSize, Mode: mode, Color: c})
	return nil
}

func (r *recorder) box(rect resolve.Rect) pdftemplate.BBox {
	return resolve.FromCanvasSpace(rect, r.size.H, r.origin)
}

func (r *recorder) FillRect(rect resolve.Rect, c Color) error {
	b := r.box(rect)
	r.ops = append(r.ops, op{Kind: "rect", X: b.X, Y: b.Y, W: b.W, H: b.H, Color: c})
	return nil
}

func (r *recorder) Line(x1, y1, x2, y2, width float64, c Color) error {
	r.ops = append(r.ops, op{Kind: "line", X: x1, Y: r.y(y1), X2: x2, Y2: r.y(y2), Width: width, Color: c})
	return nil
}

func (r *recorder) Image(rect resolve.Rect, img *Image) error {
	b := r.box(rect)
	r.ops = append(r.ops, op{Kind: "image", X: b.X, Y: b.Y, W: b.W, H: b.H, Text: img.Name})
	return nil
}

func (r *recorder) Barcode(rect resolve.Rect, symbology, code string) error {
	b := r.box(rect)
	r.ops = append(r.ops, op{Kind: "barcode", X: b.X, Y: b.Y, W: b.W, H: b.H, Text: symbology + ":" + code})
	return nil
}

func (r *recorder) byKind(kind string) []op {
	var out []op
	for _, o := range r.ops {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}
