package fontset

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/image/font/sfnt"
)

// Logical font names.
const (
	MSGothic       = "MSGothic"
	MSMincho       = "MSMincho"
	NotoSansJP     = "NotoSansJP"
	NotoSansJPBold = "NotoSansJP-Bold"
	MalgunGothic   = "MalgunGothic"
	NanumGothic    = "NanumGothic"
	NanumGothicB   = "NanumGothic-Bold"
	NotoSansKR     = "NotoSansKR"
	NotoSansKRBold = "NotoSansKR-Bold"

	Helvetica     = "Helvetica"
	HelveticaBold = "Helvetica-Bold"
)

// Font is a face the overlay canvas can draw with.
type Font struct {
	Name   string // logical name, also the family registered on the canvas
	Path   string // absolute file path; empty for core fonts
	Bold   bool   // true bold face
	Core   bool   // built into every PDF viewer, needs no file
	Script Script // script the face was verified for
}

// Family and Style are the arguments a gofpdf-style SetFont call expects.
func (f Font) Family() string {
	if f.Core {
		return Helvetica
	}
	return f.Name
}

func (f Font) Style() string {
	if f.Core && f.Bold {
		return "B"
	}
	return ""
}

// CoreFont returns the built-in default face.
func CoreFont(bold bool) Font {
	if bold {
		return Font{Name: HelveticaBold, Bold: true, Core: true}
	}
	return Font{Name: Helvetica, Core: true}
}

// candidate is a logical font and the file names tried for it, in order.
type candidate struct {
	name   string
	files  []string
	bold   bool
	script Script
}

var candidates = []candidate{
	{MSGothic, []string{"msgothic.ttc", "msgothic.ttf", "MS-Gothic.ttf", "msgothic.otf"}, false, Japanese},
	{MSMincho, []string{"msmincho.ttc", "msmincho.ttf", "MS-Mincho.ttf", "msmincho.otf"}, false, Japanese},
	{NotoSansJP, []string{"NotoSansJP-VF.ttf", "NotoSansJP-Regular.ttf"}, false, Japanese},
	{NotoSansJPBold, []string{"NotoSansJP-Bold.ttf"}, true, Japanese},
	{MalgunGothic, []string{"malgun.ttf", "malgun.ttc", "malgun.otf", "Malgun-Gothic.ttf"}, false, Korean},
	{NanumGothic, []string{"NanumGothic.ttf", "NanumGothic-Regular.ttf", "NanumGothic.otf"}, false, Korean},
	{NanumGothicB, []string{"NanumGothic-Bold.ttf"}, true, Korean},
	{NotoSansKR, []string{"NotoSansKR-VF.ttf", "NotoSansKR-Regular.ttf"}, false, Korean},
	{NotoSansKRBold, []string{"NotoSansKR-Bold.ttf"}, true, Korean},
}

// CandidateFiles returns the file names tried for a logical font.
func CandidateFiles(name string) []string {
	for _, c := range candidates {
		if c.name == name {
			return append([]string(nil), c.files...)
		}
	}
	return nil
}

// sample runes a face must cover to be usable for its script.
var sample = map[Script]rune{
	Korean:   '가',
	Japanese: 'あ',
}

// Errors returned by Verify.
var (
	ErrUnsupportedFormat = errors.New("fontset: unsupported font format")
	ErrMissingGlyphs     = errors.New("fontset: font does not cover script")
)

// Table maps logical font names to registered faces. A Table is a plain value
// built per render; nothing about it is process-global.
type Table struct {
	fonts map[string]Font
	order []string
}

// NewTable builds a table from explicit fonts, in the given order.
func NewTable(fonts ...Font) *Table {
	t := &Table{fonts: make(map[string]Font, len(fonts))}
	for _, f := range fonts {
		if _, dup := t.fonts[f.Name]; !dup {
			t.order = append(t.order, f.Name)
		}
		t.fonts[f.Name] = f
	}
	return t
}

// Option configures Load.
type Option func(*loadConfig)

type loadConfig struct {
	logger *zap.Logger
}

// WithLogger sets the logger that receives font loading results.
func WithLogger(l *zap.Logger) Option {
	return func(c *loadConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Load scans dir for every candidate file name and returns the table of
// usable faces. A missing directory yields an empty table, not an error.
func Load(dir string, opts ...Option) *Table {
	cfg := &loadConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	t := NewTable()
	if dir == "" {
		return t
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		cfg.logger.Warn("fonts directory unavailable", zap.String("dir", dir))
		return t
	}

	for _, c := range candidates {
		for _, file := range c.files {
			path := filepath.Join(dir, file)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := Verify(path, c.script); err != nil {
				cfg.logger.Warn("font rejected",
					zap.String("font", c.name), zap.String("file", file), zap.Error(err))
				continue
			}
			t.add(Font{Name: c.name, Path: path, Bold: c.bold, Script: c.script})
			cfg.logger.Debug("font registered", zap.String("font", c.name), zap.String("file", file))
			break
		}
	}
	return t
}

// Verify checks that the file at path is a single TrueType-outline font that
// covers script. Collections and CFF-flavored OpenType files are rejected
// because the PDF writer cannot embed them.
func Verify(path string, script Script) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) < 4 {
		return fmt.Errorf("%w: %s: truncated", ErrUnsupportedFormat, filepath.Base(path))
	}
	switch {
	case bytes.Equal(data[:4], []byte("ttcf")):
		return fmt.Errorf("%w: %s: font collection", ErrUnsupportedFormat, filepath.Base(path))
	case bytes.Equal(data[:4], []byte("OTTO")):
		return fmt.Errorf("%w: %s: CFF outlines", ErrUnsupportedFormat, filepath.Base(path))
	}

	f, err := sfnt.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, filepath.Base(path), err)
	}
	r, ok := sample[script]
	if !ok {
		return nil
	}
	var buf sfnt.Buffer
	idx, err := f.GlyphIndex(&buf, r)
	if err != nil {
		return fmt.Errorf("fontset: %s: %w", filepath.Base(path), err)
	}
	if idx == 0 {
		return fmt.Errorf("%w: %s has no glyph for %q", ErrMissingGlyphs, filepath.Base(path), r)
	}
	return nil
}

func (t *Table) add(f Font) {
	if _, dup := t.fonts[f.Name]; !dup {
		t.order = append(t.order, f.Name)
	}
	t.fonts[f.Name] = f
}

// Get returns the registered font with the given logical name.
func (t *Table) Get(name string) (Font, bool) {
	if t == nil {
		return Font{}, false
	}
	f, ok := t.fonts[name]
	return f, ok
}

// Has reports whether name is registered.
func (t *Table) Has(name string) bool {
	_, ok := t.Get(name)
	return ok
}

// Fonts returns the registered fonts in load order.
func (t *Table) Fonts() []Font {
	if t == nil {
		return nil
	}
	out := make([]Font, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.fonts[name])
	}
	return out
}

// Len returns the number of registered fonts.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Without returns a copy of t lacking the named fonts.
func (t *Table) Without(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []Font
	for _, f := range t.Fonts() {
		if !drop[f.Name] {
			keep = append(keep, f)
		}
	}
	return NewTable(keep...)
}
