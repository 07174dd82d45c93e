package store_test

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	pdftemplate "github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/store"
)

func TestTemplatesRoundTrip(t *testing.T) {
	s, err := store.NewTemplates(t.TempDir())
	require.NoError(t, err)

	tpl := &pdftemplate.Template{
		ID:       "t1",
		Filename: "form.pdf",
		PageSize: &pdftemplate.PageSize{W: 612, H: 792},
		Pages:    []pdftemplate.PageInfo{{Page: 1, Width: 612, Height: 792, WidthPt: 612, HeightPt: 792}},
		Elements: pdftemplate.Elements{
			&pdftemplate.TextElement{Base: pdftemplate.Base{Page: 1, BBox: pdftemplate.BBox{X: 1, Y: 2, W: 3, H: 4}}, DataPath: "a"},
		},
		CreatedAt: "2024-01-01T00:00:00Z",
	}
	require.NoError(t, s.Save(tpl))
	assert.True(t, s.Exists("t1"))

	got, err := s.Get("t1")
	require.NoError(t, err)
	if diff := cmp.Diff(tpl, got); diff != "" {
		t.Fatalf("template mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplatesSavedIndented(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewTemplates(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(&pdftemplate.Template{ID: "t1"}))

	data, err := os.ReadFile(filepath.Join(dir, "t1.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"template_id\": \"t1\""), string(data))
}

func TestTemplatesGetMissing(t *testing.T) {
	s, err := store.NewTemplates(t.TempDir())
	require.NoError(t, err)
	_, err = s.Get("nope")
	assert.True(t, errors.Is(err, pdftemplate.ErrNotFound), "got %v", err)
}

func TestTemplatesRejectPathIDs(t *testing.T) {
	s, err := store.NewTemplates(t.TempDir())
	require.NoError(t, err)
	for _, id := range []string{"", "..", "../etc/passwd", `a\b`} {
		_, err := s.Get(id)
		assert.True(t, errors.Is(err, pdftemplate.ErrInvalidInput), "id %q: %v", id, err)
	}
}

func TestTemplatesDeleteMissingIsNoop(t *testing.T) {
	s, err := store.NewTemplates(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, s.Delete("nope"))
}

func TestTemplatesList(t *testing.T) {
	dir := t.TempDir()
	core, logs := observer.New(zap.WarnLevel)
	s, err := store.NewTemplates(dir, store.WithLogger(zap.New(core)))
	require.NoError(t, err)

	require.NoError(t, s.Save(&pdftemplate.Template{ID: "b", UserID: "u1", Filename: "b.pdf", CreatedAt: "2024-01-02"}))
	require.NoError(t, s.Save(&pdftemplate.Template{ID: "a", UserID: "u1", Filename: "a.pdf", CreatedAt: "2024-01-01",
		Elements: pdftemplate.Elements{&pdftemplate.CheckboxElement{DataPath: "x"}, &pdftemplate.TextElement{DataPath: "y"}}}))
	require.NoError(t, s.Save(&pdftemplate.Template{ID: "c", UserID: "u2", Filename: "c.pdf", CreatedAt: "2024-01-03"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	all, err := s.List("")
	require.NoError(t, err)
	want := []pdftemplate.Summary{
		{ID: "a", Filename: "a.pdf", CreatedAt: "2024-01-01", ElementCount: 2},
		{ID: "b", Filename: "b.pdf", CreatedAt: "2024-01-02"},
		{ID: "c", Filename: "c.pdf", CreatedAt: "2024-01-03"},
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, logs.FilterMessage("skipping unreadable template").Len())

	mine, err := s.List("u2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "c", mine[0].ID)
}

func TestTemplatesListEmpty(t *testing.T) {
	s, err := store.NewTemplates(t.TempDir())
	require.NoError(t, err)
	got, err := s.List("")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDocuments(t *testing.T) {
	dir := t.TempDir()
	d, err := store.NewDocuments(dir)
	require.NoError(t, err)

	assert.False(t, d.Exists("t1"))
	require.NoError(t, d.Put("t1", []byte("%PDF-1.4")))
	assert.True(t, d.Exists("t1"))
	assert.Equal(t, filepath.Join(dir, "t1.pdf"), d.Path("t1"))

	a, b := d.OverlayPath(), d.OverlayPath()
	assert.NotEqual(t, a, b)
	assert.Equal(t, filepath.Join(dir, "rendered"), filepath.Dir(a))
	assert.True(t, strings.HasPrefix(filepath.Base(a), "overlay_"))

	out := d.OutputPath("t1", time.Unix(0, 42))
	assert.Equal(t, "rendered_t1_42.pdf", filepath.Base(out))

	require.NoError(t, d.Delete("t1"))
	assert.False(t, d.Exists("t1"))
	assert.NoError(t, d.Delete("t1"))
}

func TestImagesPut(t *testing.T) {
	uploads := t.TempDir()
	s, err := store.NewImages(uploads)
	require.NoError(t, err)

	var png bytes.Buffer
	require.NoError(t, imaging.Encode(&png, imaging.New(4, 2, color.White), imaging.PNG))

	ref, id, err := s.Put("stamp.PNG", &png)
	require.NoError(t, err)
	assert.Equal(t, "images/"+id+".png", ref)

	img, err := imaging.Open(filepath.Join(uploads, filepath.FromSlash(ref)))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	ref, _, err = s.Put("", strings.NewReader("not an image"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".png"))
	data, err := os.ReadFile(filepath.Join(uploads, filepath.FromSlash(ref)))
	require.NoError(t, err)
	assert.Equal(t, "not an image", string(data))
}

func TestImagesOpenMissing(t *testing.T) {
	s, err := store.NewImages(t.TempDir())
	require.NoError(t, err)
	_, err = s.Open("nope.png")
	assert.True(t, errors.Is(err, pdftemplate.ErrNotFound), "got %v", err)
}

func TestUsers(t *testing.T) {
	dir := t.TempDir()
	u, err := store.NewUsers(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "users.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	require.NoError(t, u.Create(store.User{ID: "1", Username: "kim", Email: "kim@example.com", HashedPassword: "h"}))

	err = u.Create(store.User{ID: "2", Username: "kim", Email: "other@example.com"})
	assert.True(t, errors.Is(err, pdftemplate.ErrConflict), "got %v", err)
	err = u.Create(store.User{ID: "3", Username: "lee", Email: "kim@example.com"})
	assert.True(t, errors.Is(err, pdftemplate.ErrConflict), "got %v", err)

	got, err := u.Get("kim")
	require.NoError(t, err)
	assert.Equal(t, "kim@example.com", got.Email)

	_, err = u.Get("lee")
	assert.True(t, errors.Is(err, pdftemplate.ErrNotFound), "got %v", err)

	// A second store over the same directory sees the same users.
	again, err := store.NewUsers(dir)
	require.NoError(t, err)
	_, err = again.Get("kim")
	assert.NoError(t, err)
}
