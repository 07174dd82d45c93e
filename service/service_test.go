package service_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	pdftemplate "github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/internal/pdftest"
	"github.com/lvillar/pdftemplate/pageops"
	"github.com/lvillar/pdftemplate/service"
	"github.com/lvillar/pdftemplate/store"
)

type fixture struct {
	svc     *service.Service
	docs    *store.Documents
	uploads string
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	root := t.TempDir()
	uploads := filepath.Join(root, "uploads")

	templates, err := store.NewTemplates(filepath.Join(root, "templates"))
	require.NoError(t, err)
	docs, err := store.NewDocuments(uploads)
	require.NoError(t, err)
	images, err := store.NewImages(uploads)
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	opts = append([]service.Option{
		service.WithLogger(zap.New(core)),
		service.WithFontsDir(filepath.Join(root, "fonts")),
	}, opts...)
	return &fixture{
		svc:     service.New(templates, docs, images, opts...),
		docs:    docs,
		uploads: uploads,
		logs:    logs,
	}
}

// basePDF returns a letter-size document with numPages pages.
func basePDF(t *testing.T, numPages int) []byte {
	t.Helper()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: gofpdf.SizeType{Wd: 612, Ht: 792}})
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < numPages; i++ {
		pdf.AddPage()
		pdf.Text(40, 40, "Name: ____________")
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func (f *fixture) upload(t *testing.T, pages int, owner string) string {
	t.Helper()
	res, err := f.svc.Upload(context.Background(), "form.pdf", bytes.NewReader(basePDF(t, pages)), owner)
	require.NoError(t, err)
	return res.TemplateID
}

func renderedFiles(t *testing.T, uploads string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(uploads, "rendered"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func textAt(x, y float64, path string) *pdftemplate.TextElement {
	return &pdftemplate.TextElement{
		Base:     pdftemplate.Base{Page: 1, BBox: pdftemplate.BBox{X: x, Y: y, W: 200, H: 20}},
		DataPath: path,
	}
}

func TestUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "form.pdf", bytes.NewReader(basePDF(t, 2)), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.PageCount)
	assert.Equal(t, "form.pdf", res.Filename)
	assert.InDelta(t, 612, res.PageSize.W, 0.01)
	assert.True(t, f.docs.Exists(res.TemplateID))

	tpl, err := f.svc.Get(ctx, res.TemplateID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", tpl.UserID)
	assert.Len(t, tpl.Pages, 2)
	assert.Empty(t, tpl.Elements)
	assert.NotEmpty(t, tpl.CreatedAt)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upload(context.Background(), "notes.txt", strings.NewReader("hello"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pdftemplate.ErrInvalidInput), "got %v", err)

	list, err := f.svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.upload(t, 1, "u1")

	_, err := f.svc.Get(ctx, id, "u2")
	assert.True(t, errors.Is(err, pdftemplate.ErrNotFound), "got %v", err)

	mine, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := f.svc.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, theirs)

	err = f.svc.Delete(ctx, id, "u2")
	assert.True(t, errors.Is(err, pdftemplate.ErrNotFound), "got %v", err)
	assert.True(t, f.docs.Exists(id))

	_, err = f.svc.Get(ctx, id, "")
	assert.NoError(t, err)
}

func TestSaveMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.upload(t, 1, "")

	err := f.svc.SaveMapping(ctx, id, "", service.Mapping{Elements: pdftemplate.Elements{textAt(50, 50, "name")}})
	require.NoError(t, err)

	tpl, err := f.svc.Get(ctx, id, "")
	require.NoError(t, err)
	require.Len(t, tpl.Elements, 1)
	assert.Len(t, tpl.Pages, 1, "pages kept when not supplied")

	pages := []pdftemplate.PageInfo{{Page: 1, Width: 100, Height: 100, WidthPt: 100, HeightPt: 100}}
	require.NoError(t, f.svc.SaveMapping(ctx, id, "", service.Mapping{Pages: pages}))
	tpl, err = f.svc.Get(ctx, id, "")
	require.NoError(t, err)
	assert.Empty(t, tpl.Elements)
	assert.Equal(t, pages, tpl.Pages)

	err = f.svc.SaveMapping(ctx, "missing", "", service.Mapping{})
	assert.True(t, errors.Is(err, pdftemplate.ErrNotFound), "got %v", err)
}

func TestRender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.upload(t, 1, "")
	require.NoError(t, f.svc.SaveMapping(ctx, id, "", service.Mapping{Elements: pdftemplate.Elements{
		textAt(50, 50, "customer.name"),
		&pdftemplate.CheckboxElement{Base: pdftemplate.Base{BBox: pdftemplate.BBox{X: 10, Y: 10, W: 12, H: 12}}, DataPath: "agree"},
	}}))

	out, err := f.svc.Render(ctx, id, "", map[string]any{
		"customer": map[string]any{"name": "Kim"},
		"agree":    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "rendered_"+id+".pdf", out.Filename)
	assert.Equal(t, 1, out.Pages)
	assert.Empty(t, out.Warnings)
	assert.True(t, bytes.HasPrefix(out.Data, []byte("%PDF-")))

	n, err := pageops.PageCount(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, pdftest.PageContent(t, out.Data, 1), "(Kim)")

	assert.Empty(t, renderedFiles(t, f.uploads), "temporary files removed")
}

func TestRenderIsIdempotent(t *testing.T) {
	tick := time.Unix(1700000000, 0)
	clock := func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}
	f := newFixture(t, service.WithKeepOutput(true), service.WithClock(clock))
	ctx := context.Background()
	id := f.upload(t, 2, "")
	require.NoError(t, f.svc.SaveMapping(ctx, id, "", service.Mapping{Elements: pdftemplate.Elements{textAt(50, 50, "name")}}))
	data := map[string]any{"name": "Kim"}

	a, err := f.svc.Render(ctx, id, "", data)
	require.NoError(t, err)
	b, err := f.svc.Render(ctx, id, "", data)
	require.NoError(t, err)

	assert.Equal(t, a.Pages, b.Pages)
	assert.Equal(t, 2, a.Pages)
	assert.Equal(t, a.Filename, b.Filename)
	assert.NotEqual(t, a.Path, b.Path)
	assert.FileExists(t, a.Path)
	assert.FileExists(t, b.Path)

	for _, name := range renderedFiles(t, f.uploads) {
		assert.False(t, strings.HasPrefix(name, "overlay_"), "overlay %s left behind", name)
	}
}

func TestRenderElementOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.upload(t, 1, "")
	require.NoError(t, f.svc.SaveMapping(ctx, id, "", service.Mapping{Elements: pdftemplate.Elements{textAt(50, 50, "name")}}))

	data := map[string]any{
		"name": "Kim",
		pdftemplate.ElementsOverrideKey: []any{
			map[string]any{"type": "text", "page": 3, "data_path": "name"},
		},
	}
	out, err := f.svc.Render(ctx, id, "", data)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Pages, "overlay pages beyond the base reuse base page 1")

	assert.Contains(t, data, pdftemplate.ElementsOverrideKey, "caller's data untouched")
	tpl, err := f.svc.Get(ctx, id, "")
	require.NoError(t, err)
	require.Len(t, tpl.Elements, 1)
	assert.Equal(t, 1, tpl.Elements[0].Common().PageNumber(), "stored template untouched")
}

func TestRenderNullOverrideUsesStoredElements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.upload(t, 1, "")
	require.NoError(t, f.svc.SaveMapping(ctx, id, "", service.Mapping{Elements: pdftemplate.Elements{
		&pdftemplate.TextElement{Base: pdftemplate.Base{Page: 2}, DataPath: "name"},
	}}))

	out, err := f.svc.Render(ctx, id, "", map[string]any{pdftemplate.ElementsOverrideKey: nil})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Pages)
}

func TestRenderBadOverride(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, 1, "")
	_, err := f.svc.Render(context.Background(), id, "", map[string]any{
		pdftemplate.ElementsOverrideKey: []any{map[string]any{"type": "hologram"}},
	})
	assert.True(t, errors.Is(err, pdftemplate.ErrInvalidTemplate), "got %v", err)
}

func TestRenderWarningsAreLoggedWithTemplateID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.upload(t, 1, "")
	require.NoError(t, f.svc.SaveMapping(ctx, id, "", service.Mapping{Elements: pdftemplate.Elements{
		&pdftemplate.BarcodeElement{Base: pdftemplate.Base{ID: "bc", BBox: pdftemplate.BBox{W: 50, H: 50}}, DataPath: "code", Symbology: "hologram"},
		textAt(50, 50, "name"),
	}}))

	out, err := f.svc.Render(ctx, id, "", map[string]any{"code": "123", "name": "Kim"})
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, "bc", out.Warnings[0].Element)

	skipped := f.logs.FilterMessage("element skipped").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, id, skipped[0].ContextMap()["template_id"])
}

func TestRenderErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Render(ctx, "missing", "", nil)
	assert.True(t, errors.Is(err, pdftemplate.ErrNotFound), "got %v", err)

	id := f.upload(t, 1, "")
	require.NoError(t, f.docs.Delete(id))
	_, err = f.svc.Render(ctx, id, "", nil)
	assert.True(t, errors.Is(err, pdftemplate.ErrNotFound), "got %v", err)

	require.NoError(t, f.docs.Put(id, []byte("%PDF-1.4 garbage")))
	_, err = f.svc.Render(ctx, id, "", nil)
	assert.True(t, errors.Is(err, pdftemplate.ErrMergeFailed), "got %v", err)
	assert.Empty(t, renderedFiles(t, f.uploads))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.svc.Render(cancelled, id, "", nil)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestRenderInlineTemplate(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, 1, "")
	tpl := &pdftemplate.Template{ID: id, Elements: pdftemplate.Elements{textAt(10, 10, "x")}}

	out, err := f.svc.RenderTemplate(context.Background(), tpl, map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Pages)
}

func TestDeleteAndDeleteAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.upload(t, 1, "u1")
	f.upload(t, 1, "u1")
	c := f.upload(t, 1, "u2")

	require.NoError(t, f.svc.Delete(ctx, a, "u1"))
	assert.False(t, f.docs.Exists(a))
	require.NoError(t, f.svc.Delete(ctx, a, "u1"), "deleting twice succeeds")

	n, err := f.svc.DeleteAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := f.svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c, list[0].ID)
}

func TestUploadImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.UploadImage(ctx, "doc.pdf", "application/pdf", strings.NewReader("x"))
	assert.True(t, errors.Is(err, pdftemplate.ErrInvalidInput), "got %v", err)

	ref, id, err := f.svc.UploadImage(ctx, "stamp.jpg", "image/jpeg", strings.NewReader("raw"))
	require.NoError(t, err)
	assert.Equal(t, "images/"+id+".jpg", ref)
	assert.FileExists(t, filepath.Join(f.uploads, "images", id+".jpg"))
}
