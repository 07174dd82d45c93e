package render

import (
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/fontset"
)

// Result summarizes an overlay build.
type Result struct {
	Pages    int
	Warnings []Warning
}

// Builder turns an element list into an overlay document with one page per
// referenced page number.
type Builder struct {
	fonts *fontset.Table
	cfg   *config
}

// NewBuilder creates a builder drawing with faces from fonts.
func NewBuilder(fonts *fontset.Table, opts ...Option) *Builder {
	if fonts == nil {
		fonts = fontset.NewTable()
	}
	return &Builder{fonts: fonts, cfg: newConfig(opts)}
}

// Build renders elems against data and writes the overlay to w. The overlay
// has exactly elems.MaxPage() pages, all of the given size; pages without
// elements are blank. Element failures are collected as warnings; only a
// failure to create pages or write the document is returned as an error.
func (b *Builder) Build(w io.Writer, elems pdftemplate.Elements, size pdftemplate.PageSize, data map[string]any) (*Result, error) {
	doc := b.cfg.newDocument(size)
	groups := elems.ByPage()
	res := &Result{Pages: elems.MaxPage()}
	fonts := b.fonts

	for p := 1; p <= res.Pages; p++ {
		c, err := doc.AddPage(size)
		if err != nil {
			return nil, fmt.Errorf("render: page %d: %w", p, err)
		}

		var failed []string
		for _, f := range fonts.Fonts() {
			if err := c.RegisterFont(f); err != nil {
				failed = append(failed, f.Name)
				b.warn(res, Warning{Page: p, Element: f.Name, Kind: "font", Err: err})
			}
		}
		if len(failed) > 0 {
			fonts = fonts.Without(failed...)
		}

		r := newRenderer(fonts, b.cfg)
		for i, e := range groups[p] {
			for _, w := range r.Draw(c, e, data) {
				if w.Element == "" {
					w.Element = "#" + strconv.Itoa(i)
				}
				b.warn(res, w)
			}
		}
	}

	if err := doc.Output(w); err != nil {
		return nil, fmt.Errorf("render: writing overlay: %w", err)
	}
	return res, nil
}

func (b *Builder) warn(res *Result, w Warning) {
	res.Warnings = append(res.Warnings, w)
	b.cfg.logger.Warn("element skipped",
		zap.Int("page", w.Page),
		zap.String("element", w.Element),
		zap.String("type", w.Kind),
		zap.Error(w.Err))
}
