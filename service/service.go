// Package service implements the template lifecycle (upload, mapping,
// listing, deletion) and the render pipeline that turns a template plus
// request data into a finished PDF.
//
// A render builds an overlay document with the render package, writes it to
// a uniquely named temporary file and composites it onto the stored base
// document with pageops. Requests share no mutable state: every render
// re-reads the template, the font directory and the base document.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pdftemplate "github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/fontset"
	"github.com/lvillar/pdftemplate/pageops"
	"github.com/lvillar/pdftemplate/render"
	"github.com/lvillar/pdftemplate/store"
)

// Service ties the stores to the renderer.
type Service struct {
	templates *store.Templates
	docs      *store.Documents
	images    *store.Images

	logger     *zap.Logger
	fontsDir   string
	checkbox   render.CheckboxMode
	keepOutput bool
	now        func() time.Time
}

// Option is a functional option for configuring a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFontsDir sets the directory scanned for font files on every render.
func WithFontsDir(dir string) Option {
	return func(s *Service) { s.fontsDir = dir }
}

// WithCheckboxMode sets how checkbox elements decide to draw their mark.
func WithCheckboxMode(m render.CheckboxMode) Option {
	return func(s *Service) { s.checkbox = m }
}

// WithKeepOutput keeps rendered files in <uploads>/rendered after their
// bytes have been returned. By default they are removed.
func WithKeepOutput(keep bool) Option {
	return func(s *Service) { s.keepOutput = keep }
}

// WithClock replaces the time source used for timestamps and file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service over the given stores.
func New(templates *store.Templates, docs *store.Documents, images *store.Images, opts ...Option) *Service {
	s := &Service{
		templates: templates,
		docs:      docs,
		images:    images,
		logger:    zap.NewNop(),
		checkbox:  render.CheckValue,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadResult describes a newly created template.
type UploadResult struct {
	TemplateID string               `json:"template_id"`
	Filename   string               `json:"filename"`
	PageCount  int                  `json:"page_count"`
	PageSize   pdftemplate.PageSize `json:"page_size"`
}

// Upload stores a base document and creates an empty template for it.
// Documents pdfcpu cannot read are rejected with pdftemplate.ErrInvalidInput.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader, owner string) (*UploadResult, error) {
	const op = "Upload"
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, pdftemplate.OpError(op, fmt.Errorf("reading upload: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return nil, pdftemplate.OpError(op, err)
	}
	info, err := pageops.Inspect(bytes.NewReader(data))
	if err != nil {
		return nil, pdftemplate.OpError(op, err)
	}

	id := uuid.NewString()
	if err := s.docs.Put(id, data); err != nil {
		return nil, pdftemplate.OpError(op, err)
	}
	size := info.PageSize
	t := &pdftemplate.Template{
		ID:          id,
		Filename:    filename,
		UserID:      owner,
		PageSize:    &size,
		Pages:       info.Pages,
		HasAcroForm: info.HasAcroForm,
		FormFields:  info.FormFields,
		CreatedAt:   pdftemplate.Timestamp(s.now()),
	}
	if err := s.templates.Save(t); err != nil {
		s.docs.Delete(id)
		return nil, pdftemplate.OpError(op, err)
	}
	s.logger.Info("template uploaded",
		zap.String("template_id", id),
		zap.String("filename", filename),
		zap.Int("pages", info.PageCount()),
		zap.Bool("acroform", info.HasAcroForm))
	return &UploadResult{TemplateID: id, Filename: filename, PageCount: info.PageCount(), PageSize: size}, nil
}

// Get returns a template visible to owner. An empty owner sees everything.
func (s *Service) Get(ctx context.Context, id, owner string) (*pdftemplate.Template, error) {
	t, err := s.get(ctx, id, owner)
	return t, pdftemplate.OpError("Get", err)
}

func (s *Service) get(ctx context.Context, id, owner string) (*pdftemplate.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := s.templates.Get(id)
	if err != nil {
		return nil, err
	}
	if owner != "" && t.UserID != "" && t.UserID != owner {
		return nil, pdftemplate.NotFoundf("template %s", id)
	}
	return t, nil
}

// List returns the summaries of owner's templates, or of all templates when
// owner is empty.
func (s *Service) List(ctx context.Context, owner string) ([]pdftemplate.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, pdftemplate.OpError("List", err)
	}
	out, err := s.templates.List(owner)
	return out, pdftemplate.OpError("List", err)
}

// Mapping is an editor's update of a template. A nil Pages keeps the stored
// page list.
type Mapping struct {
	Elements pdftemplate.Elements   `json:"elements"`
	Pages    []pdftemplate.PageInfo `json:"pages,omitempty"`
}

// SaveMapping replaces the element list (and optionally the page list) of an
// existing template.
func (s *Service) SaveMapping(ctx context.Context, id, owner string, m Mapping) error {
	const op = "SaveMapping"
	t, err := s.get(ctx, id, owner)
	if err != nil {
		return pdftemplate.OpError(op, err)
	}
	t.Elements = m.Elements
	if m.Pages != nil {
		t.Pages = m.Pages
	}
	if err := s.templates.Save(t); err != nil {
		return pdftemplate.OpError(op, err)
	}
	s.logger.Info("mapping saved", zap.String("template_id", id), zap.Int("elements", len(m.Elements)))
	return nil
}

// Delete removes a template and its base document. Deleting a template that
// does not exist succeeds.
func (s *Service) Delete(ctx context.Context, id, owner string) error {
	const op = "Delete"
	if err := ctx.Err(); err != nil {
		return pdftemplate.OpError(op, err)
	}
	t, err := s.templates.Get(id)
	switch {
	case err == nil:
		if owner != "" && t.UserID != "" && t.UserID != owner {
			return pdftemplate.OpError(op, pdftemplate.NotFoundf("template %s", id))
		}
	case errors.Is(err, pdftemplate.ErrNotFound):
		// Nothing stored; an orphaned base document is still removed.
	default:
		return pdftemplate.OpError(op, err)
	}
	if err := s.templates.Delete(id); err != nil {
		return pdftemplate.OpError(op, err)
	}
	if err := s.docs.Delete(id); err != nil {
		return pdftemplate.OpError(op, err)
	}
	s.logger.Info("template deleted", zap.String("template_id", id))
	return nil
}

// DeleteAll removes every template visible to owner and returns how many
// were deleted. Individual failures are logged and skipped.
func (s *Service) DeleteAll(ctx context.Context, owner string) (int, error) {
	list, err := s.List(ctx, owner)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, sum := range list {
		if err := ctx.Err(); err != nil {
			return n, pdftemplate.OpError("DeleteAll", err)
		}
		if err := s.Delete(ctx, sum.ID, owner); err != nil {
			s.logger.Warn("delete failed", zap.String("template_id", sum.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

// UploadImage stores a stamp or signature image. Only image/* content types
// are accepted.
func (s *Service) UploadImage(ctx context.Context, filename, contentType string, r io.Reader) (ref, id string, err error) {
	const op = "UploadImage"
	if !strings.HasPrefix(contentType, "image/") {
		return "", "", pdftemplate.OpError(op, pdftemplate.Invalidf("image files only"))
	}
	if err := ctx.Err(); err != nil {
		return "", "", pdftemplate.OpError(op, err)
	}
	ref, id, err = s.images.Put(filename, r)
	if err != nil {
		return "", "", pdftemplate.OpError(op, err)
	}
	return ref, id, nil
}

// InspectFile reports the structure of a PDF on disk.
func (s *Service) InspectFile(ctx context.Context, path string) (*pageops.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, pdftemplate.OpError("Inspect", err)
	}
	info, err := pageops.InspectFile(path)
	return info, pdftemplate.OpError("Inspect", err)
}

// fonts scans the font directory. A missing directory yields an empty table
// and every non-Latin text falls back to the core font.
func (s *Service) fonts(logger *zap.Logger) *fontset.Table {
	if s.fontsDir == "" {
		return fontset.NewTable()
	}
	return fontset.Load(s.fontsDir, fontset.WithLogger(logger))
}

func removeQuietly(logger *zap.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("removing temporary file", zap.String("path", path), zap.Error(err))
	}
}
