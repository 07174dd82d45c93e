package httpapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/phpdave11/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/lvillar/pdftemplate/auth"
	"github.com/lvillar/pdftemplate/httpapi"
	"github.com/lvillar/pdftemplate/service"
	"github.com/lvillar/pdftemplate/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newHandler(t *testing.T, opts ...httpapi.Option) http.Handler {
	t.Helper()
	root := t.TempDir()
	uploads := filepath.Join(root, "uploads")
	templates, err := store.NewTemplates(filepath.Join(root, "templates"))
	require.NoError(t, err)
	docs, err := store.NewDocuments(uploads)
	require.NoError(t, err)
	images, err := store.NewImages(uploads)
	require.NoError(t, err)
	users, err := store.NewUsers(filepath.Join(root, "users"))
	require.NoError(t, err)
	authSvc, err := auth.New(users, "test-secret", auth.WithCost(bcrypt.MinCost))
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	svc := service.New(templates, docs, images, service.WithLogger(logger))
	opts = append([]httpapi.Option{httpapi.WithLogger(logger), httpapi.WithImagesDir(images.Dir())}, opts...)
	return httpapi.New(svc, authSvc, opts...).Handler()
}

func basePDF(t *testing.T) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

type request struct {
	method, path string
	body         io.Reader
	contentType  string
	token        string
}

func do(t *testing.T, h http.Handler, r request) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(r.method, r.path, r.body)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// multipartFile builds a single-file form under the "file" field.
func multipartFile(t *testing.T, filename, contentType string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func upload(t *testing.T, h http.Handler, token string) string {
	t.Helper()
	body, ct := multipartFile(t, "form.pdf", "application/pdf", basePDF(t))
	rec := do(t, h, request{method: http.MethodPost, path: "/api/templates", body: body, contentType: ct, token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.EqualValues(t, 1, out["page_count"])
	return out["template_id"].(string)
}

func TestRoot(t *testing.T) {
	h := newHandler(t)
	rec := do(t, h, request{method: http.MethodGet, path: "/"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, httpapi.Version, decode(t, rec)["version"])
}

func TestTemplateLifecycle(t *testing.T) {
	h := newHandler(t)
	id := upload(t, h, "")

	rec := do(t, h, request{method: http.MethodGet, path: "/api/templates"})
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["templates"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].(map[string]any)["template_id"])

	mapping := map[string]any{"elements": []any{
		map[string]any{"type": "text", "page": 1, "bbox": map[string]any{"x": 50, "y": 50, "w": 200, "h": 20}, "data_path": "name"},
	}}
	rec = do(t, h, request{method: http.MethodPut, path: "/api/templates/" + id + "/mapping", body: jsonBody(t, mapping)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", decode(t, rec)["status"])

	rec = do(t, h, request{method: http.MethodGet, path: "/api/templates/" + id})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["elements"], 1)

	rec = do(t, h, request{method: http.MethodPost, path: "/api/render/" + id, body: jsonBody(t, map[string]any{"name": "Kim"})})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="rendered_`+id+`.pdf"`)
	assert.Equal(t, "0", rec.Header().Get("X-Render-Warnings"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = do(t, h, request{method: http.MethodDelete, path: "/api/templates/" + id})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, request{method: http.MethodGet, path: "/api/templates/" + id})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["detail"])
}

func TestDeleteAll(t *testing.T) {
	h := newHandler(t)
	upload(t, h, "")
	upload(t, h, "")

	rec := do(t, h, request{method: http.MethodDelete, path: "/api/templates"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["deleted_count"])
}

func TestErrorStatuses(t *testing.T) {
	h := newHandler(t)

	body, ct := multipartFile(t, "notes.txt", "text/plain", []byte("hello"))
	rec := do(t, h, request{method: http.MethodPost, path: "/api/templates", body: body, contentType: ct})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, request{method: http.MethodPost, path: "/api/render/missing", body: jsonBody(t, map[string]any{})})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, request{method: http.MethodPut, path: "/api/templates/missing/mapping", body: jsonBody(t, map[string]any{})})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := upload(t, h, "")
	bad := map[string]any{"elements": []any{map[string]any{"type": "hologram"}}}
	rec = do(t, h, request{method: http.MethodPut, path: "/api/templates/" + id + "/mapping", body: jsonBody(t, bad)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, request{method: http.MethodPost, path: "/api/render/" + id, body: strings.NewReader("not json")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	h := newHandler(t)
	creds := map[string]any{"username": "kim", "email": "kim@example.com", "password": "pw"}

	rec := do(t, h, request{method: http.MethodPost, path: "/api/auth/register", body: jsonBody(t, creds)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	userID := decode(t, rec)["user_id"].(string)

	rec = do(t, h, request{method: http.MethodPost, path: "/api/auth/register", body: jsonBody(t, creds)})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, request{method: http.MethodPost, path: "/api/auth/login", body: jsonBody(t, map[string]any{"username": "kim", "password": "nope"})})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, request{method: http.MethodPost, path: "/api/auth/login", body: jsonBody(t, map[string]any{"username": "kim", "password": "pw"})})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode(t, rec)
	assert.Equal(t, "bearer", login["token_type"])
	token := login["access_token"].(string)

	rec = do(t, h, request{method: http.MethodGet, path: "/api/auth/me", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, userID, me["user_id"])
	assert.Equal(t, "kim", me["username"])

	rec = do(t, h, request{method: http.MethodGet, path: "/api/auth/me"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, h, request{method: http.MethodGet, path: "/api/auth/me", token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTemplatesScopedToUser(t *testing.T) {
	h := newHandler(t)
	token := func(name string) string {
		creds := map[string]any{"username": name, "email": name + "@example.com", "password": "pw"}
		rec := do(t, h, request{method: http.MethodPost, path: "/api/auth/register", body: jsonBody(t, creds)})
		require.Equal(t, http.StatusOK, rec.Code)
		rec = do(t, h, request{method: http.MethodPost, path: "/api/auth/login", body: jsonBody(t, creds)})
		require.Equal(t, http.StatusOK, rec.Code)
		return decode(t, rec)["access_token"].(string)
	}
	kim, lee := token("kim"), token("lee")

	id := upload(t, h, kim)

	rec := do(t, h, request{method: http.MethodGet, path: "/api/templates", token: lee})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["templates"])

	rec = do(t, h, request{method: http.MethodGet, path: "/api/templates/" + id, token: lee})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, request{method: http.MethodGet, path: "/api/templates/" + id, token: kim})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRenderRateLimit(t *testing.T) {
	h := newHandler(t, httpapi.WithRenderRateLimit(1))
	id := upload(t, h, "")

	rec := do(t, h, request{method: http.MethodPost, path: "/api/render/" + id, body: jsonBody(t, map[string]any{})})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, request{method: http.MethodPost, path: "/api/render/" + id, body: jsonBody(t, map[string]any{})})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	h := newHandler(t, httpapi.WithMaxUploadBytes(64))
	body, ct := multipartFile(t, "form.pdf", "application/pdf", basePDF(t))
	rec := do(t, h, request{method: http.MethodPost, path: "/api/templates", body: body, contentType: ct})
	assert.GreaterOrEqual(t, rec.Code, 400)
	assert.Less(t, rec.Code, 500)
}

func TestImages(t *testing.T) {
	h := newHandler(t)

	var png bytes.Buffer
	require.NoError(t, imaging.Encode(&png, imaging.New(2, 2, color.Black), imaging.PNG))
	body, ct := multipartFile(t, "stamp.png", "image/png", png.Bytes())
	rec := do(t, h, request{method: http.MethodPost, path: "/api/images", body: body, contentType: ct})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	ref := out["image_path"].(string)
	assert.Equal(t, "images/"+out["image_id"].(string)+".png", ref)

	rec = do(t, h, request{method: http.MethodGet, path: "/api/uploads/" + ref})
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := imaging.Decode(rec.Body)
	assert.NoError(t, err)

	body, ct = multipartFile(t, "doc.pdf", "application/pdf", basePDF(t))
	rec = do(t, h, request{method: http.MethodPost, path: "/api/images", body: body, contentType: ct})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	h := newHandler(t, httpapi.WithAllowedOrigins("http://localhost:5173"))
	req := httptest.NewRequest(http.MethodOptions, "/api/templates", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
