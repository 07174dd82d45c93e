// Package pdftest inspects generated PDFs in tests.
package pdftest

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/require"
)

// maxDepth bounds the walk through nested form XObjects.
const maxDepth = 8

var doOperator = regexp.MustCompile(`/([^\s/\[\]()<>{}%]+)\s+Do\b`)

func config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageContent returns the decoded content of page n (1-based) followed by
// the content of every form XObject it paints, recursively. Imported pages
// (gofpdi templates) are form XObjects, so text drawn on an overlay shows up
// here as its literal "(text) Tj" operators when a core font was used.
func PageContent(t testing.TB, pdf []byte, n int) string {
	t.Helper()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), config())
	require.NoError(t, err)
	require.NoError(t, ctx.EnsurePageCount())

	d, _, inherited, err := ctx.PageDict(n, false)
	require.NoError(t, err)
	content, err := ctx.PageContent(d)
	require.NoError(t, err)

	res := resources(t, ctx.XRefTable, d)
	if res == nil {
		res = inherited.Resources
	}
	var b strings.Builder
	b.Write(content)
	forms(t, ctx.XRefTable, res, content, &b, 0)
	return b.String()
}

func resources(t testing.TB, xrt *model.XRefTable, d types.Dict) types.Dict {
	t.Helper()
	o, ok := d.Find("Resources")
	if !ok {
		return nil
	}
	res, err := xrt.DereferenceDict(o)
	require.NoError(t, err)
	return res
}

// forms appends the content of the form XObjects that content paints from
// the resource dict res.
func forms(t testing.TB, xrt *model.XRefTable, res types.Dict, content []byte, b *strings.Builder, depth int) {
	t.Helper()
	if depth > maxDepth || res == nil {
		return
	}
	xobjObj, _ := res.Find("XObject")
	xobjs, err := xrt.DereferenceDict(xobjObj)
	require.NoError(t, err)
	if xobjs == nil {
		return
	}

	for _, m := range doOperator.FindAllSubmatch(content, -1) {
		o, ok := xobjs.Find(string(m[1]))
		if !ok {
			continue
		}
		sd, _, err := xrt.DereferenceStreamDict(o)
		require.NoError(t, err)
		if sd == nil {
			continue
		}
		if st := sd.Dict.NameEntry("Subtype"); st == nil || *st != "Form" {
			continue
		}
		require.NoError(t, sd.Decode())
		b.WriteString("\n")
		b.Write(sd.Content)
		forms(t, xrt, resources(t, xrt, sd.Dict), sd.Content, b, depth+1)
	}
}
