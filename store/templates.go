// Package store persists templates, uploaded documents, images and users as
// plain files under the service's data directories.
//
// Layout:
//
//	<templates>/<template_id>.json
//	<uploads>/<template_id>.pdf
//	<uploads>/images/<image_id><ext>
//	<uploads>/rendered/overlay_<uuid>.pdf, rendered_<id>_<unixnano>.pdf
//	<data>/users/users.json
//
// Writes go through a temporary file and a rename so readers never observe
// a partially written document.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	pdftemplate "github.com/lvillar/pdftemplate"
)

// Option is a functional option for the stores.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

func newOptions(opts []Option) *options {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used to report skipped files.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Templates stores one JSON document per template.
type Templates struct {
	dir    string
	logger *zap.Logger
}

// NewTemplates returns a store rooted at dir, creating it if needed.
func NewTemplates(dir string, opts ...Option) (*Templates, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", dir, err)
	}
	return &Templates{dir: dir, logger: newOptions(opts).logger}, nil
}

func (s *Templates) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Get loads a template. A missing template is pdftemplate.ErrNotFound.
func (s *Templates) Get(id string) (*pdftemplate.Template, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, pdftemplate.NotFoundf("template %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading template %s: %w", id, err)
	}
	var t pdftemplate.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("store: template %s: %w", id, err)
	}
	if t.ID == "" {
		t.ID = id
	}
	return &t, nil
}

// Exists reports whether a template document is stored under id.
func (s *Templates) Exists(id string) bool {
	if checkID(id) != nil {
		return false
	}
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Save writes t, replacing any previous version.
func (s *Templates) Save(t *pdftemplate.Template) error {
	if err := checkID(t.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding template %s: %w", t.ID, err)
	}
	return writeFile(s.path(t.ID), data)
}

// Delete removes a template. Deleting a missing template is not an error.
func (s *Templates) Delete(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return removeFile(s.path(id))
}

// List returns the summaries of all templates, restricted to those owned by
// owner unless owner is empty. Unreadable documents are skipped. The result
// is ordered by creation time, then id.
func (s *Templates) List(owner string) ([]pdftemplate.Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("store: listing templates: %w", err)
	}
	out := []pdftemplate.Summary{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		t, err := s.Get(strings.TrimSuffix(name, ".json"))
		if err != nil {
			s.logger.Warn("skipping unreadable template", zap.String("file", name), zap.Error(err))
			continue
		}
		if owner != "" && t.UserID != owner {
			continue
		}
		out = append(out, t.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// checkID rejects ids that could address a file outside the store.
func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return pdftemplate.Invalidf("bad id %q", id)
	}
	return nil
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("store: writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: writing %s: %w", path, err)
	}
	return nil
}

func removeFile(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
