package render

import (
	"errors"

	"go.uber.org/zap"

	"github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/fontset"
	"github.com/lvillar/pdftemplate/resolve"
	"github.com/lvillar/pdftemplate/table"
)

// drawRepeat draws one row per item. Rows that would cross the bottom of
// the page are dropped; there is no continuation page.
func (r *Renderer) drawRepeat(c Canvas, e *pdftemplate.RepeatElement, data map[string]any) error {
	items, ok := resolve.Items(data, e.ItemsPath)
	if !ok {
		return nil
	}
	ph := c.PageSize().H
	o := c.Origin()
	layout := table.FromRepeat(e, items, ph).Plan()
	if layout.Truncated > 0 {
		r.logger().Info("repeat rows truncated at page bottom",
			zap.String("element", e.ID), zap.Int("rows", layout.Rows), zap.Int("dropped", layout.Truncated))
	}

	size := e.Style.FontSize()
	col, _ := ParseColor(e.Style.Color)
	var errs []error
	for _, cell := range layout.Cells {
		text := fontset.Normalize(cell.Text)
		if _, err := r.useFont(c, e.ID, text, false, size); err != nil {
			errs = append(errs, err)
			continue
		}
		w, err := c.MeasureText(text)
		x := startX(cell.X, cell.W, cell.Align, w, err == nil)
		y := cell.Y + size*ascentRatio + textMargin
		errs = append(errs, c.Text(x, resolve.PointY(y, ph, o), text, col, TextFill))
	}
	return errors.Join(errs...)
}
