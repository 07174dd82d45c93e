package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	pdftemplate "github.com/lvillar/pdftemplate"
)

// Documents stores uploaded base PDFs and the files a render produces.
type Documents struct {
	dir string
}

// NewDocuments returns a store rooted at the uploads directory.
func NewDocuments(dir string) (*Documents, error) {
	for _, d := range []string{dir, filepath.Join(dir, "rendered")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("store: creating %s: %w", d, err)
		}
	}
	return &Documents{dir: dir}, nil
}

// Dir returns the uploads directory.
func (d *Documents) Dir() string { return d.dir }

// Path returns the file path of the base document of template id.
func (d *Documents) Path(id string) string {
	return filepath.Join(d.dir, id+".pdf")
}

// Exists reports whether a base document is stored for id.
func (d *Documents) Exists(id string) bool {
	if checkID(id) != nil {
		return false
	}
	st, err := os.Stat(d.Path(id))
	return err == nil && st.Mode().IsRegular()
}

// Put stores the base document of template id.
func (d *Documents) Put(id string, data []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	return writeFile(d.Path(id), data)
}

// Delete removes the base document of template id, if any.
func (d *Documents) Delete(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return removeFile(d.Path(id))
}

// OverlayPath returns a fresh, uniquely named path for an overlay document.
func (d *Documents) OverlayPath() string {
	return filepath.Join(d.dir, "rendered", "overlay_"+uuid.NewString()+".pdf")
}

// OutputPath returns a fresh path for the rendered output of template id.
func (d *Documents) OutputPath(id string, now time.Time) string {
	return filepath.Join(d.dir, "rendered", fmt.Sprintf("rendered_%s_%d.pdf", id, now.UnixNano()))
}

// Images stores uploaded stamp and signature images under <uploads>/images.
type Images struct {
	dir string
}

// NewImages returns an image store under the uploads directory.
func NewImages(uploads string) (*Images, error) {
	dir := filepath.Join(uploads, "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", dir, err)
	}
	return &Images{dir: dir}, nil
}

// Dir returns the image directory.
func (s *Images) Dir() string { return s.dir }

// Put stores an image under a new id, keeping the extension of filename
// (".png" when there is none). Images in a format imaging can encode are
// rotated upright according to their EXIF orientation; anything else is
// stored as uploaded. It returns the reference elements use ("images/<id><ext>")
// and the id.
func (s *Images) Put(filename string, r io.Reader) (ref, id string, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", "", fmt.Errorf("store: reading image: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".png"
	}
	id = uuid.NewString()
	if err := writeFile(filepath.Join(s.dir, id+ext), orient(data, ext)); err != nil {
		return "", "", err
	}
	return "images/" + id + ext, id, nil
}

// Open opens a stored image by file name.
func (s *Images) Open(name string) (*os.File, error) {
	if err := checkID(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, pdftemplate.NotFoundf("image %s", name)
	}
	return f, err
}

func orient(data []byte, ext string) []byte {
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return data
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return data
	}
	return buf.Bytes()
}
