package pageops

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	pdftemplate "github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/resolve"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxFieldDepth bounds the walk of the AcroForm field tree.
const maxFieldDepth = 32

// Info describes an uploaded document.
type Info struct {
	Pages       []pdftemplate.PageInfo
	PageSize    pdftemplate.PageSize // size of page 1
	HasAcroForm bool
	FormFields  []pdftemplate.FormField
}

// PageCount returns the number of pages.
func (i *Info) PageCount() int { return len(i.Pages) }

// InspectFile is Inspect for a file on disk.
func InspectFile(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pageops: opening %s: %w", path, err)
	}
	defer f.Close()
	return Inspect(f)
}

// Inspect validates a PDF and reports its page sizes and form fields.
// Documents pdfcpu cannot read are reported as pdftemplate.ErrInvalidInput.
func Inspect(rs io.ReadSeeker) (*Info, error) {
	ctx, err := api.ReadValidateAndOptimize(rs, relaxed())
	if err != nil {
		return nil, pdftemplate.Invalidf("not a readable PDF: %v", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, pdftemplate.Invalidf("counting pages: %v", err)
	}
	if ctx.PageCount == 0 {
		return nil, pdftemplate.Invalidf("document has no pages")
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, pdftemplate.Invalidf("reading page sizes: %v", err)
	}

	info := &Info{Pages: make([]pdftemplate.PageInfo, 0, len(dims))}
	for i, d := range dims {
		info.Pages = append(info.Pages, pdftemplate.PageInfo{
			Page:     i + 1,
			Width:    round2(d.Width),
			Height:   round2(d.Height),
			WidthPt:  d.Width,
			HeightPt: d.Height,
		})
	}
	if len(dims) > 0 {
		info.PageSize = pdftemplate.PageSize{W: dims[0].Width, H: dims[0].Height}
	}

	info.FormFields = formFields(ctx.XRefTable, info.PageSize.H)
	info.HasAcroForm = len(info.FormFields) > 0
	return info, nil
}

// formFields lists the terminal fields of the document's AcroForm. Any
// structural problem simply ends the walk; detection is informational.
func formFields(xrt *model.XRefTable, pageHeight float64) []pdftemplate.FormField {
	root, err := xrt.Catalog()
	if err != nil {
		return nil
	}
	obj, ok := root.Find("AcroForm")
	if !ok {
		return nil
	}
	form, err := xrt.DereferenceDict(obj)
	if err != nil || form == nil {
		return nil
	}
	obj, ok = form.Find("Fields")
	if !ok {
		return nil
	}
	fields, err := xrt.DereferenceArray(obj)
	if err != nil {
		return nil
	}

	w := fieldWalker{xrt: xrt, pageHeight: pageHeight}
	for _, f := range fields {
		w.walk(f, "", "", 0)
	}
	return w.out
}

type fieldWalker struct {
	xrt        *model.XRefTable
	pageHeight float64
	out        []pdftemplate.FormField
}

func (w *fieldWalker) walk(obj types.Object, parent, inheritedType string, depth int) {
	if depth > maxFieldDepth {
		return
	}
	d, err := w.xrt.DereferenceDict(obj)
	if err != nil || d == nil {
		return
	}

	name := parent
	if partial := w.text(d, "T"); partial != "" {
		if name != "" {
			name += "."
		}
		name += partial
	}
	typ := inheritedType
	if ft := d.NameEntry("FT"); ft != nil {
		typ = fieldType(*ft)
	}

	var kids types.Array
	if o, ok := d.Find("Kids"); ok {
		kids, _ = w.xrt.DereferenceArray(o)
	}

	// A field whose kids carry no names of their own is terminal; the kids
	// are its widget annotations.
	var named []types.Object
	for _, k := range kids {
		kd, err := w.xrt.DereferenceDict(k)
		if err == nil && kd != nil {
			if _, ok := kd.Find("T"); ok {
				named = append(named, k)
			}
		}
	}
	if len(named) > 0 {
		for _, k := range named {
			w.walk(k, name, typ, depth+1)
		}
		return
	}
	if name == "" {
		return
	}

	field := pdftemplate.FormField{Name: name, Type: typ}
	rect := w.rect(d)
	if rect == nil && len(kids) > 0 {
		if kd, err := w.xrt.DereferenceDict(kids[0]); err == nil && kd != nil {
			rect = w.rect(kd)
		}
	}
	field.Rect = rect
	w.out = append(w.out, field)
}

func (w *fieldWalker) text(d types.Dict, key string) string {
	o, ok := d.Find(key)
	if !ok {
		return ""
	}
	o, err := w.xrt.Dereference(o)
	if err != nil {
		return ""
	}
	var s string
	switch v := o.(type) {
	case types.StringLiteral:
		s, err = types.StringLiteralToString(v)
	case types.HexLiteral:
		s, err = types.HexLiteralToString(v)
	case types.Name:
		s = string(v)
	}
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// rect converts a widget's /Rect from PDF space into screen space.
func (w *fieldWalker) rect(d types.Dict) *pdftemplate.BBox {
	o, ok := d.Find("Rect")
	if !ok {
		return nil
	}
	arr, err := w.xrt.DereferenceArray(o)
	if err != nil || len(arr) != 4 {
		return nil
	}
	var v [4]float64
	for i, e := range arr {
		n, ok := number(e)
		if !ok {
			return nil
		}
		v[i] = n
	}
	llx, lly := math.Min(v[0], v[2]), math.Min(v[1], v[3])
	urx, ury := math.Max(v[0], v[2]), math.Max(v[1], v[3])
	b := resolve.FromCanvasSpace(resolve.Rect{X: llx, Y: lly, W: urx - llx, H: ury - lly}, w.pageHeight, resolve.BottomLeft)
	return &b
}

func number(o types.Object) (float64, bool) {
	switch v := o.(type) {
	case types.Float:
		return float64(v), true
	case types.Integer:
		return float64(v), true
	}
	return 0, false
}

// fieldType maps an AcroForm /FT value to a readable type name.
func fieldType(ft string) string {
	switch ft {
	case "Tx":
		return "text"
	case "Btn":
		return "button"
	case "Ch":
		return "choice"
	case "Sig":
		return "signature"
	}
	return ft
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
