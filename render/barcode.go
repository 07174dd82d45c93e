package render

import (
	"fmt"
	"strings"

	"github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/resolve"
)

func symbology(s string) (string, error) {
	switch sym := strings.ToLower(strings.TrimSpace(s)); sym {
	case "":
		return pdftemplate.SymbologyQR, nil
	case pdftemplate.SymbologyQR, pdftemplate.SymbologyCode128,
		pdftemplate.SymbologyPDF417, pdftemplate.SymbologyDataMatrix:
		return sym, nil
	}
	return "", fmt.Errorf("render: unknown barcode symbology %q", s)
}

// drawBarcode encodes the resolved value and stretches the symbol into the box.
func (r *Renderer) drawBarcode(c Canvas, e *pdftemplate.BarcodeElement, data map[string]any) error {
	v, ok := resolve.Lookup(data, e.DataPath)
	if !ok {
		return nil
	}
	code := resolve.Text(v)
	if code == "" {
		return nil
	}
	sym, err := symbology(e.Symbology)
	if err != nil {
		return err
	}
	return c.Barcode(resolve.ToCanvasSpace(e.BBox, c.PageSize().H, c.Origin()), sym, code)
}
