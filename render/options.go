package render

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lvillar/pdftemplate"
)

// CheckboxMode decides when a checkbox element draws its checkmark.
type CheckboxMode string

const (
	// CheckValue draws the mark when the value at data_path is truthy.
	CheckValue CheckboxMode = "value"
	// CheckConfigured draws the mark whenever data_path is set, regardless
	// of the request data.
	CheckConfigured CheckboxMode = "configured"
)

// ParseCheckboxMode parses a mode name; the empty string means CheckValue.
func ParseCheckboxMode(s string) (CheckboxMode, error) {
	switch CheckboxMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", CheckValue:
		return CheckValue, nil
	case CheckConfigured:
		return CheckConfigured, nil
	}
	return "", fmt.Errorf("render: unknown checkbox mode %q", s)
}

// Option is a functional option for configuring a Renderer or Builder.
type Option func(*config)

type config struct {
	logger      *zap.Logger
	checkbox    CheckboxMode
	images      ImageSource
	created     time.Time
	newDocument func(size pdftemplate.PageSize) Document
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:   zap.NewNop(),
		checkbox: CheckValue,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.newDocument == nil {
		created := cfg.created
		cfg.newDocument = func(size pdftemplate.PageSize) Document {
			return NewFpdfDocument(size, created)
		}
	}
	return cfg
}

// WithLogger sets the logger that receives per-element warnings.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCheckboxMode sets the checkbox condition. The default is CheckValue.
func WithCheckboxMode(m CheckboxMode) Option {
	return func(c *config) {
		if m != "" {
			c.checkbox = m
		}
	}
}

// WithImageSource sets where image elements load their files from.
func WithImageSource(src ImageSource) Option {
	return func(c *config) {
		c.images = src
	}
}

// WithImagesRoot resolves image elements against an uploads directory.
func WithImagesRoot(uploadsDir string) Option {
	return WithImageSource(DirImages{Root: uploadsDir})
}

// WithCreationDate fixes the document creation date, making the output
// byte-for-byte reproducible.
func WithCreationDate(t time.Time) Option {
	return func(c *config) {
		c.created = t
	}
}

// WithDocumentFactory replaces the gofpdf backend.
func WithDocumentFactory(fn func(size pdftemplate.PageSize) Document) Option {
	return func(c *config) {
		c.newDocument = fn
	}
}
