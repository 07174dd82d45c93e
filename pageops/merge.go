package pageops

import (
	"io"
	"time"

	pdftemplate "github.com/lvillar/pdftemplate"
	"github.com/phpdave11/gofpdf"
	"github.com/phpdave11/gofpdf/contrib/gofpdi"
)

// MergeOption configures a merge.
type MergeOption func(*mergeConfig)

type mergeConfig struct {
	created time.Time
}

// WithCreationDate fixes the creation and modification dates written into
// the merged document.
func WithCreationDate(t time.Time) MergeOption {
	return func(c *mergeConfig) { c.created = t }
}

// MergeFile composites overlayPath onto basePath and writes the result to
// outputPath. It returns the number of pages written.
func MergeFile(outputPath, basePath, overlayPath string, opts ...MergeOption) (int, error) {
	pdf, n, err := merge(basePath, overlayPath, opts)
	if err != nil {
		return 0, err
	}
	if err := writePDFToFile(pdf, outputPath); err != nil {
		return 0, failed("writing %s: %v", outputPath, err)
	}
	return n, nil
}

// Merge composites every page of overlayPath on top of the matching page of
// basePath and writes the result to w.
//
// The output has max(base pages, overlay pages) pages. Overlay pages beyond
// the end of the base document are drawn on a copy of base page 1. Each
// overlay page is drawn at its own size, aligned to the bottom-left corner
// of the base page. Failures are reported as pdftemplate.ErrMergeFailed.
func Merge(w io.Writer, basePath, overlayPath string, opts ...MergeOption) (int, error) {
	pdf, n, err := merge(basePath, overlayPath, opts)
	if err != nil {
		return 0, err
	}
	if err := pdf.Output(w); err != nil {
		return 0, failed("writing output: %v", err)
	}
	return n, nil
}

func merge(basePath, overlayPath string, opts []MergeOption) (pdf *gofpdf.Fpdf, pages int, err error) {
	var cfg mergeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	baseN, err := pageCount(basePath)
	if err != nil {
		return nil, 0, failed("base document: %v", err)
	}
	if baseN == 0 {
		return nil, 0, failed("base document has no pages")
	}
	ovN, err := pageCount(overlayPath)
	if err != nil {
		return nil, 0, failed("overlay document: %v", err)
	}

	// gofpdi panics on malformed input it failed to anticipate.
	defer func() {
		if r := recover(); r != nil {
			pdf, pages, err = nil, 0, failed("importing pages: %v", r)
		}
	}()

	pdf = newDocument()
	if !cfg.created.IsZero() {
		pdf.SetCreationDate(cfg.created)
		pdf.SetModificationDate(cfg.created)
	}
	imp := gofpdi.NewImporter()

	type imported struct {
		tpl  int
		w, h float64
	}
	bases := make(map[int]imported)

	pages = max(baseN, ovN)
	for i := 1; i <= pages; i++ {
		src := i
		if i > baseN {
			src = 1
		}
		b, ok := bases[src]
		if !ok {
			b.tpl, b.w, b.h = importPage(pdf, imp, basePath, src)
			if b.w <= 0 || b.h <= 0 {
				b.w, b.h = pdftemplate.DefaultPageWidth, pdftemplate.DefaultPageHeight
			}
			bases[src] = b
		}

		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: b.w, Ht: b.h})
		imp.UseImportedTemplate(pdf, b.tpl, 0, 0, b.w, b.h)

		if i <= ovN {
			tpl, ow, oh := importPage(pdf, imp, overlayPath, i)
			if ow <= 0 || oh <= 0 {
				ow, oh = b.w, b.h
			}
			imp.UseImportedTemplate(pdf, tpl, 0, b.h-oh, ow, oh)
		}
		if err := pdf.Error(); err != nil {
			return nil, 0, failed("page %d: %v", i, err)
		}
	}
	return pdf, pages, nil
}
