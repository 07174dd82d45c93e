package service

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	pdftemplate "github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/pageops"
	"github.com/lvillar/pdftemplate/render"
)

// ContentType is the media type of a rendered document.
const ContentType = "application/pdf"

// Rendered is a finished document.
type Rendered struct {
	Data     []byte
	Filename string // download name, rendered_<template_id>.pdf
	Path     string // file under <uploads>/rendered; empty unless kept
	Pages    int
	Warnings []render.Warning
}

// Render fills template id with data. When data carries the reserved
// "_elements" key, that element list is used for this call instead of the
// stored one; the stored template is not modified and the key is not passed
// on as data.
func (s *Service) Render(ctx context.Context, id, owner string, data map[string]any) (*Rendered, error) {
	const op = "Render"
	data, override, err := splitOverride(data)
	if err != nil {
		return nil, pdftemplate.OpError(op, err)
	}
	t, err := s.get(ctx, id, owner)
	if err != nil {
		return nil, pdftemplate.OpError(op, err)
	}
	if override != nil {
		t = t.WithElements(override)
	}
	out, err := s.render(ctx, t, data)
	return out, pdftemplate.OpError(op, err)
}

// RenderTemplate fills an inline template with data. The base document is
// the one stored under t.ID.
func (s *Service) RenderTemplate(ctx context.Context, t *pdftemplate.Template, data map[string]any) (*Rendered, error) {
	const op = "RenderTemplate"
	data, override, err := splitOverride(data)
	if err != nil {
		return nil, pdftemplate.OpError(op, err)
	}
	if override != nil {
		t = t.WithElements(override)
	}
	out, err := s.render(ctx, t, data)
	return out, pdftemplate.OpError(op, err)
}

// splitOverride returns a copy of data without the override key, and the
// parsed override. A null override means none.
func splitOverride(data map[string]any) (map[string]any, pdftemplate.Elements, error) {
	raw, ok := data[pdftemplate.ElementsOverrideKey]
	if !ok {
		return data, nil, nil
	}
	rest := make(map[string]any, len(data))
	for k, v := range data {
		if k != pdftemplate.ElementsOverrideKey {
			rest[k] = v
		}
	}
	if raw == nil {
		return rest, nil, nil
	}
	elems, err := pdftemplate.ParseElements(raw)
	if err != nil {
		return nil, nil, err
	}
	if elems == nil {
		elems = pdftemplate.Elements{}
	}
	return rest, elems, nil
}

func (s *Service) render(ctx context.Context, t *pdftemplate.Template, data map[string]any) (*Rendered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.docs.Exists(t.ID) {
		return nil, pdftemplate.NotFoundf("base document for template %s", t.ID)
	}
	if data == nil {
		data = map[string]any{}
	}
	logger := s.logger.With(zap.String("template_id", t.ID))

	fonts := s.fonts(logger)
	builder := render.NewBuilder(fonts,
		render.WithLogger(logger),
		render.WithCheckboxMode(s.checkbox),
		render.WithImagesRoot(s.docs.Dir()),
	)

	overlayPath := s.docs.OverlayPath()
	defer removeQuietly(logger, overlayPath)
	res, err := buildOverlay(overlayPath, builder, t, data)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	outPath := s.docs.OutputPath(t.ID, s.now())
	pages, err := pageops.MergeFile(outPath, s.docs.Path(t.ID), overlayPath)
	if err != nil {
		removeQuietly(logger, outPath)
		return nil, err
	}
	if !s.keepOutput {
		defer removeQuietly(logger, outPath)
	}

	body, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("reading rendered document: %w", err)
	}
	logger.Info("rendered",
		zap.Int("pages", pages),
		zap.Int("overlay_pages", res.Pages),
		zap.Int("warnings", len(res.Warnings)),
		zap.Int("bytes", len(body)))

	out := &Rendered{
		Data:     body,
		Filename: fmt.Sprintf("rendered_%s.pdf", t.ID),
		Pages:    pages,
		Warnings: res.Warnings,
	}
	if s.keepOutput {
		out.Path = outPath
	}
	return out, nil
}

func buildOverlay(path string, b *render.Builder, t *pdftemplate.Template, data map[string]any) (*render.Result, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating overlay: %w", err)
	}
	res, err := b.Build(f, t.Elements, t.PageSize.OrDefault(), data)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("writing overlay: %w", cerr)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
