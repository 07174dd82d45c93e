package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/boombuler/barcode/qr"
	"github.com/phpdave11/gofpdf"
	"github.com/phpdave11/gofpdf/contrib/barcode"

	"github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/fontset"
	"github.com/lvillar/pdftemplate/resolve"
)

// FpdfDocument is a Document backed by gofpdf. It is also the Canvas of its
// current page. Units are points and the origin is the top-left corner.
//
// gofpdf latches the first error and ignores every later call. Each
// primitive here clears the latch and returns the error instead, so a bad
// font or image costs one element, not the whole document.
type FpdfDocument struct {
	pdf      *gofpdf.Fpdf
	size     pdftemplate.PageSize
	tr       func(string) string
	fonts    map[string]bool
	core     bool
	fontSize float64
}

var _ Document = (*FpdfDocument)(nil)
var _ Canvas = (*FpdfDocument)(nil)

// NewFpdfDocument creates an empty document. A zero created time means now.
func NewFpdfDocument(size pdftemplate.PageSize, created time.Time) *FpdfDocument {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: size.W, Ht: size.H},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	if !created.IsZero() {
		pdf.SetCreationDate(created)
		pdf.SetModificationDate(created)
	}
	return &FpdfDocument{
		pdf:   pdf,
		size:  size,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		fonts: make(map[string]bool),
		core:  true,
	}
}

// check returns and clears gofpdf's latched error.
func (d *FpdfDocument) check() error {
	if !d.pdf.Err() {
		return nil
	}
	err := d.pdf.Error()
	d.pdf.ClearError()
	return err
}

// do runs one drawing primitive, converting both latched errors and panics
// from gofpdf or its contrib packages into a returned error.
func (d *FpdfDocument) do(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render: %s: %v", op, r)
		}
		if cerr := d.check(); cerr != nil && err == nil {
			err = fmt.Errorf("render: %s: %w", op, cerr)
		}
	}()
	fn()
	return nil
}

// AddPage starts a new page of the given size and returns it.
func (d *FpdfDocument) AddPage(size pdftemplate.PageSize) (Canvas, error) {
	err := d.do("add page", func() {
		d.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: size.W, Ht: size.H})
	})
	if err != nil {
		return nil, err
	}
	d.size = size
	return d, nil
}

// Output writes the finished document.
func (d *FpdfDocument) Output(w io.Writer) error {
	if err := d.check(); err != nil {
		return fmt.Errorf("render: output: %w", err)
	}
	return d.pdf.Output(w)
}

func (d *FpdfDocument) Origin() resolve.Origin { return resolve.TopLeft }

func (d *FpdfDocument) PageSize() pdftemplate.PageSize { return d.size }

// RegisterFont embeds a TrueType face. Core fonts need no registration and
// registering a face twice is a no-op.
//
// gofpdf only prints a message for a face it cannot parse, so the face is
// selected once after loading; an unparsable face fails there. The current
// font is left unspecified, callers select one with SetFont before drawing.
func (d *FpdfDocument) RegisterFont(f fontset.Font) error {
	if f.Core || d.fonts[f.Name] {
		return nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("render: register font %s: %w", f.Name, err)
	}
	err = d.do("register font "+f.Name, func() {
		d.pdf.AddUTF8FontFromBytes(f.Name, "", data)
		if d.pdf.Err() {
			return
		}
		d.pdf.SetFont(f.Family(), f.Style(), 10)
	})
	if err != nil {
		return err
	}
	d.fonts[f.Name] = true
	return nil
}

func (d *FpdfDocument) SetFont(f fontset.Font, size float64) error {
	if !f.Core && !d.fonts[f.Name] {
		return fmt.Errorf("render: font %s is not registered", f.Name)
	}
	err := d.do("set font", func() {
		d.pdf.SetFont(f.Family(), f.Style(), size)
	})
	if err != nil {
		return err
	}
	d.core = f.Core
	d.fontSize = size
	return nil
}

// encode maps text to the core fonts' cp1252 encoding when one is selected.
func (d *FpdfDocument) encode(s string) string {
	if d.core {
		return d.tr(s)
	}
	return s
}

func (d *FpdfDocument) MeasureText(s string) (float64, error) {
	var w float64
	err := d.do("measure text", func() {
		w = d.pdf.GetStringWidth(d.encode(s))
	})
	if err != nil {
		return 0, err
	}
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, fmt.Errorf("render: measure text: invalid width")
	}
	return w, nil
}

func (d *FpdfDocument) Text(x, y float64, s string, c Color, mode TextMode) error {
	return d.do("text", func() {
		d.pdf.SetTextColor(c.R, c.G, c.B)
		if mode == TextStroke {
			d.pdf.SetDrawColor(c.R, c.G, c.B)
			d.pdf.SetLineWidth(math.Max(0.3, d.fontSize*0.04))
			d.pdf.SetTextRenderingMode(1)
			defer d.pdf.SetTextRenderingMode(0)
		}
		d.pdf.Text(x, y, d.encode(s))
	})
}

func (d *FpdfDocument) FillRect(r resolve.Rect, c Color) error {
	return d.do("fill rect", func() {
		d.pdf.SetFillColor(c.R, c.G, c.B)
		d.pdf.Rect(r.X, r.Y, r.W, r.H, "F")
	})
}

func (d *FpdfDocument) Line(x1, y1, x2, y2, width float64, c Color) error {
	return d.do("line", func() {
		d.pdf.SetDrawColor(c.R, c.G, c.B)
		d.pdf.SetLineWidth(width)
		d.pdf.SetLineCapStyle("butt")
		d.pdf.Line(x1, y1, x2, y2)
	})
}

func (d *FpdfDocument) Image(r resolve.Rect, img *Image) error {
	return d.do("image", func() {
		opts := gofpdf.ImageOptions{ImageType: img.Type}
		if d.pdf.GetImageInfo(img.Name) == nil {
			d.pdf.RegisterImageOptionsReader(img.Name, opts, bytes.NewReader(img.Data))
			if d.pdf.Err() {
				return
			}
		}
		d.pdf.ImageOptions(img.Name, r.X, r.Y, r.W, r.H, false, opts, 0, "")
	})
}

func (d *FpdfDocument) Barcode(r resolve.Rect, symbology, code string) error {
	return d.do("barcode", func() {
		var key string
		switch strings.ToLower(symbology) {
		case pdftemplate.SymbologyCode128:
			key = barcode.RegisterCode128(d.pdf, code)
		case pdftemplate.SymbologyPDF417:
			key = barcode.RegisterPdf417(d.pdf, code, 10, 5)
		case pdftemplate.SymbologyDataMatrix:
			key = barcode.RegisterDataMatrix(d.pdf, code)
		default:
			key = barcode.RegisterQR(d.pdf, code, qr.M, qr.Auto)
		}
		if key == "" || d.pdf.Err() {
			return
		}
		barcode.Barcode(d.pdf, key, r.X, r.Y, r.W, r.H, false)
	})
}
