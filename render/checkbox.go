package render

import (
	"errors"
	"math"

	"github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/resolve"
)

func (r *Renderer) checked(e *pdftemplate.CheckboxElement, data map[string]any) bool {
	if e.DataPath == "" {
		return false
	}
	if r.cfg.checkbox == CheckConfigured {
		return true
	}
	v, ok := resolve.Lookup(data, e.DataPath)
	return ok && resolve.Truthy(v)
}

// drawCheckbox draws a two-stroke checkmark in the top-left square of the
// box. No outline is drawn.
func (r *Renderer) drawCheckbox(c Canvas, e *pdftemplate.CheckboxElement, data map[string]any) error {
	if !r.checked(e, data) {
		return nil
	}
	b := e.BBox
	side := math.Min(b.W, b.H)
	off := side * 0.6 * 0.3
	cx, cy := b.X+side/2, b.Y+side/2
	width := math.Max(1.5, math.Min(4, side/8))

	ph := c.PageSize().H
	o := c.Origin()
	segments := [2][4]float64{
		{cx - off*0.8, cy, cx - off*0.2, cy + off*0.6},
		{cx - off*0.2, cy + off*0.6, cx + off, cy - off*0.4},
	}
	var errs []error
	for _, s := range segments {
		errs = append(errs, c.Line(s[0], resolve.PointY(s[1], ph, o), s[2], resolve.PointY(s[3], ph, o), width, Black))
	}
	return errors.Join(errs...)
}
