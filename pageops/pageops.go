// Package pageops provides operations on existing PDF documents: compositing
// a rendered overlay onto a base document and inspecting uploaded files.
//
// Pages are imported as templates into a new gofpdf document through the
// gofpdi contrib package. Validation, page counting and form detection use
// pdfcpu.
package pageops

import (
	"fmt"
	"io"
	"os"

	pdftemplate "github.com/lvillar/pdftemplate"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/phpdave11/gofpdf"
	"github.com/phpdave11/gofpdf/contrib/gofpdi"
)

// importPage imports a single page from a source file into the target PDF.
// Returns the template ID and page dimensions; zero dimensions mean the
// importer could not read a MediaBox.
func importPage(pdf *gofpdf.Fpdf, imp *gofpdi.Importer, sourceFile string, pageNum int) (tplID int, w, h float64) {
	tplID = imp.ImportPage(pdf, sourceFile, pageNum, "/MediaBox")
	sizes := imp.GetPageSizes()
	if dims, ok := sizes[pageNum]; ok {
		if mb, ok := dims["/MediaBox"]; ok {
			w = mb["w"]
			h = mb["h"]
		}
	}
	return
}

// pageCount returns the number of pages in a PDF file.
func pageCount(filename string) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("pageops: opening %s: %w", filename, err)
	}
	defer f.Close()
	return PageCount(f)
}

// PageCount validates the document read from rs and returns its page count.
func PageCount(rs io.ReadSeeker) (int, error) {
	n, err := api.PageCount(rs, relaxed())
	if err != nil {
		return 0, fmt.Errorf("pageops: counting pages: %w", err)
	}
	return n, nil
}

// relaxed returns the pdfcpu configuration used for every read. Uploaded
// forms are frequently slightly malformed, so strict validation is avoided.
func relaxed() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// newDocument returns an empty point-unit gofpdf document without margins or
// automatic page breaks.
func newDocument() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCatalogSort(true)
	return pdf
}

// writePDFToFile writes the PDF to a file.
func writePDFToFile(pdf *gofpdf.Fpdf, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("pageops: creating %s: %w", filename, err)
	}
	if err := pdf.Output(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// failed wraps err as a merge failure.
func failed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", pdftemplate.ErrMergeFailed, fmt.Sprintf(format, args...))
}
