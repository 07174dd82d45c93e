package render

import (
	"errors"
	"math"

	"github.com/rivo/uniseg"

	"github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/fontset"
	"github.com/lvillar/pdftemplate/resolve"
)

// Fixed insets between a box edge and its text, in points.
const (
	textMargin  = 5.0
	shrinkStep  = 0.5
	ascentRatio = 0.8
)

// baseline returns the screen-space baseline for text of the given size.
func baseline(b pdftemplate.BBox, v pdftemplate.VAlign, size float64) float64 {
	switch v {
	case pdftemplate.VAlignMiddle:
		return b.Y + b.H/2 + size*0.3
	case pdftemplate.VAlignBottom:
		return b.Y + b.H - size*0.2 - textMargin
	}
	return b.Y + size*ascentRatio + textMargin
}

// startX returns the screen-space x of the first glyph. When the width could
// not be measured, centered text falls back to the left inset and right
// aligned text to the right inset.
func startX(x, w float64, a pdftemplate.Align, width float64, measured bool) float64 {
	switch a {
	case pdftemplate.AlignCenter:
		if measured {
			return x + (w-width)/2
		}
	case pdftemplate.AlignRight:
		if measured {
			return x + w - width - textMargin
		}
		return x + w - textMargin
	}
	return x + textMargin
}

func decorationWidth(size float64) float64 {
	return math.Max(0.5, size*0.05)
}

// graphemes splits text into user-perceived characters.
func graphemes(text string) []string {
	var out []string
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// measure returns the advance of text with extra spacing after every
// grapheme but the last.
func measure(c Canvas, text string, spacing float64) (float64, error) {
	if spacing == 0 {
		return c.MeasureText(text)
	}
	var total float64
	gs := graphemes(text)
	for i, g := range gs {
		w, err := c.MeasureText(g)
		if err != nil {
			return 0, err
		}
		total += w
		if i < len(gs)-1 {
			total += spacing
		}
	}
	return total, nil
}

// drawRun draws text at a canvas-space baseline, one grapheme at a time when
// letter spacing is set.
func drawRun(c Canvas, x, y float64, text string, spacing float64, col Color, mode TextMode) error {
	if spacing == 0 {
		return c.Text(x, y, text, col, mode)
	}
	for _, g := range graphemes(text) {
		if err := c.Text(x, y, g, col, mode); err != nil {
			return err
		}
		w, err := c.MeasureText(g)
		if err != nil {
			return err
		}
		x += w + spacing
	}
	return nil
}

// fitSize lowers size in fixed steps until text fits inside the box insets
// or the minimum is reached. The canvas is left set to the returned size.
func fitSize(c Canvas, f fontset.Font, text string, st pdftemplate.Style, boxW float64) (float64, error) {
	size := st.FontSize()
	limit := boxW - 2*textMargin
	floor := st.MinFontSize()
	for size > floor {
		w, err := measure(c, text, st.LetterSpacing)
		if err != nil || w <= limit {
			return size, nil
		}
		size = math.Max(size-shrinkStep, floor)
		if err := c.SetFont(f, size); err != nil {
			return size, err
		}
	}
	return size, nil
}

func (r *Renderer) drawText(c Canvas, e *pdftemplate.TextElement, data map[string]any) error {
	v, ok := resolve.Lookup(data, e.DataPath)
	if !ok {
		return nil
	}
	text := fontset.Normalize(resolve.Text(v))
	st := e.Style
	size := st.FontSize()
	col, _ := ParseColor(st.Color)
	ph := c.PageSize().H
	o := c.Origin()

	var errs []error
	if bg, ok := st.Background(); ok {
		bc, _ := ParseColor(bg)
		errs = append(errs, c.FillRect(resolve.ToCanvasSpace(e.BBox, ph, o), bc))
	}
	if text == "" {
		return errors.Join(errs...)
	}

	choice, err := r.useFont(c, e.ID, text, st.Bold(), size)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	if st.Shrink() {
		if size, err = fitSize(c, choice.Font, text, st, e.BBox.W); err != nil {
			return errors.Join(append(errs, err)...)
		}
	}

	width, werr := measure(c, text, st.LetterSpacing)
	measured := werr == nil
	x := startX(e.BBox.X, e.BBox.W, st.HAlign(), width, measured)
	y := baseline(e.BBox, st.VAlign(), size)
	cy := resolve.PointY(y, ph, o)

	if choice.SimulateBold {
		errs = append(errs, drawRun(c, x, cy, text, st.LetterSpacing, col, TextStroke))
	}
	errs = append(errs, drawRun(c, x, cy, text, st.LetterSpacing, col, TextFill))

	if measured {
		thick := decorationWidth(size)
		if st.Underline {
			ly := resolve.PointY(y+2, ph, o)
			errs = append(errs, c.Line(x, ly, x+width, ly, thick, col))
		}
		if st.Strikethrough {
			ly := resolve.PointY(y-size*0.3, ph, o)
			errs = append(errs, c.Line(x, ly, x+width, ly, thick, col))
		}
	}
	return errors.Join(errs...)
}
