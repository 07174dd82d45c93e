package render

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/fontset"
)

// Warning is an element-level failure. Warnings are reported and logged but
// never abort a render.
type Warning struct {
	Page    int
	Element string // element id, or its kind and index when it has none
	Kind    string
	Err     error
}

func (w Warning) Error() string {
	return fmt.Sprintf("page %d: %s %s: %v", w.Page, w.Kind, w.Element, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Renderer draws single elements. It holds no per-call state.
type Renderer struct {
	fonts *fontset.Table
	cfg   *config
}

// NewRenderer creates a renderer choosing faces from fonts.
func NewRenderer(fonts *fontset.Table, opts ...Option) *Renderer {
	return newRenderer(fonts, newConfig(opts))
}

func newRenderer(fonts *fontset.Table, cfg *config) *Renderer {
	if fonts == nil {
		fonts = fontset.NewTable()
	}
	return &Renderer{fonts: fonts, cfg: cfg}
}

// Draw renders e onto c using data. A missing data value draws nothing.
func (r *Renderer) Draw(c Canvas, e pdftemplate.Element, data map[string]any) []Warning {
	var err error
	switch e := e.(type) {
	case *pdftemplate.TextElement:
		err = r.drawText(c, e, data)
	case *pdftemplate.CheckboxElement:
		err = r.drawCheckbox(c, e, data)
	case *pdftemplate.ImageElement:
		err = r.drawImage(c, e)
	case *pdftemplate.RepeatElement:
		err = r.drawRepeat(c, e, data)
	case *pdftemplate.BarcodeElement:
		err = r.drawBarcode(c, e, data)
	default:
		err = fmt.Errorf("render: unsupported element %T", e)
	}
	if err == nil {
		return nil
	}
	b := e.Common()
	return []Warning{{Page: b.PageNumber(), Element: b.ID, Kind: string(e.Kind()), Err: err}}
}

func (r *Renderer) logger() *zap.Logger { return r.cfg.logger }

// useFont selects the face chosen for text at size. A face the canvas
// refuses is replaced by the core font and the output is marked degraded.
func (r *Renderer) useFont(c Canvas, element, text string, bold bool, size float64) (fontset.Choice, error) {
	choice := r.fonts.Select(text, bold)
	if choice.Degraded {
		r.logger().Warn("no font covers text, using core font",
			zap.String("element", element), zap.Stringer("script", choice.Script))
	}
	err := c.SetFont(choice.Font, size)
	if err == nil || choice.Font.Core {
		return choice, err
	}
	r.logger().Warn("font unusable, using core font",
		zap.String("element", element), zap.String("font", choice.Font.Name), zap.Error(err))
	choice = fontset.Choice{Font: fontset.CoreFont(bold), Script: choice.Script, Degraded: true}
	return choice, c.SetFont(choice.Font, size)
}
