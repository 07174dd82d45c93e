package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/resolve"
)

// ErrImageNotFound is returned by an ImageSource for a missing file.
var ErrImageNotFound = errors.New("render: image not found")

// ImageSource loads the image an element references.
type ImageSource interface {
	Load(ref string) (*Image, error)
}

// DirImages loads images stored under an uploads directory. References
// starting with "images/" are relative to Root, anything else is relative
// to Root/images. References cannot escape Root.
type DirImages struct {
	Root string
}

// Resolve returns the file path of ref.
func (d DirImages) Resolve(ref string) string {
	rel := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(ref)), "/")
	if !strings.HasPrefix(ref, "images/") {
		rel = path.Join("images", rel)
	}
	return filepath.Join(d.Root, filepath.FromSlash(rel))
}

// Load reads and decodes the image at ref.
func (d DirImages) Load(ref string) (*Image, error) {
	f, err := os.Open(d.Resolve(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("render: open image: %w", err)
	}
	defer f.Close()
	return DecodeImage(ref, f)
}

// DecodeImage decodes any format the image package knows about (JPEG, PNG,
// GIF, BMP, TIFF, WebP), applies the EXIF orientation and re-encodes the
// result as an 8-bit PNG, which gofpdf embeds losslessly. gofpdf rejects
// 16-bit PNGs, which is what the encoder writes for YCbCr sources.
func DecodeImage(name string, r io.Reader) (*Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("render: decode image %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Clone(img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("render: encode image %s: %w", name, err)
	}
	return &Image{Name: name, Type: "PNG", Data: buf.Bytes()}, nil
}

// drawImage stretches the image into the box without keeping its aspect
// ratio. A missing file is logged and skipped.
func (r *Renderer) drawImage(c Canvas, e *pdftemplate.ImageElement) error {
	if e.ImagePath == "" {
		return nil
	}
	if r.cfg.images == nil {
		return errors.New("render: no image source configured")
	}
	img, err := r.cfg.images.Load(e.ImagePath)
	if errors.Is(err, ErrImageNotFound) {
		r.logger().Info("image file missing", zap.String("element", e.ID), zap.String("image_path", e.ImagePath))
		return nil
	}
	if err != nil {
		return err
	}
	return c.Image(resolve.ToCanvasSpace(e.BBox, c.PageSize().H, c.Origin()), img)
}
