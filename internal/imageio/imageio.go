// Package imageio decodes encoded images into pixel grids for hashing.
package imageio

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
)

// DefaultMaxPixels bounds width*height when no explicit limit is given.
const DefaultMaxPixels = 100_000_000

var extensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// Decoder decodes images and enforces a pixel-count limit. A zero MaxPixels
// disables the limit.
type Decoder struct {
	MaxPixels int
}

// NewDecoder returns a Decoder with the given pixel limit.
func NewDecoder(maxPixels int) *Decoder {
	return &Decoder{MaxPixels: maxPixels}
}

var std = NewDecoder(DefaultMaxPixels)

// Decode reads one image from r using the default limit.
func Decode(r io.Reader) (image.Image, string, error) { return std.Decode(r) }

// DecodeBytes decodes data using the default limit.
func DecodeBytes(data []byte) (image.Image, string, error) { return std.DecodeBytes(data) }

// Open decodes the file at path using the default limit.
func Open(path string) (image.Image, string, error) { return std.Open(path) }

// Decode checks the header dimensions before decoding the full image.
func (d *Decoder) Decode(r io.Reader) (image.Image, string, error) {
	br := bufio.NewReader(r)
	// DecodeConfig consumes input, so peek at the header through a tee.
	var head bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(br, &head))
	if err != nil {
		return nil, "", decodeError(err)
	}
	if err := d.checkSize(cfg); err != nil {
		return nil, format, err
	}

	img, format, err := image.Decode(io.MultiReader(&head, br))
	if err != nil {
		return nil, format, decodeError(err)
	}
	return img, format, nil
}

func (d *Decoder) DecodeBytes(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", apperrors.New(apperrors.CodeInvalidInput, "empty image data")
	}
	return d.Decode(bytes.NewReader(data))
}

// Open reads and decodes a file. A missing file is NotFound; anything the
// decoders reject is DecodeFailure.
func (d *Decoder) Open(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, "", apperrors.Wrap(err, apperrors.CodeNotFound, "cannot open image").
				WithMetadata("path", path)
		}
		return nil, "", apperrors.Wrap(err, apperrors.CodeDecodeFailure, "cannot open image").
			WithMetadata("path", path)
	}
	defer f.Close()

	img, format, err := d.Decode(f)
	if err != nil {
		if ae, ok := apperrors.As(err); ok {
			return nil, format, apperrors.Wrap(err, ae.Code, "cannot open image").WithMetadata("path", path)
		}
		return nil, format, err
	}
	return img, format, nil
}

func (d *Decoder) checkSize(cfg image.Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return apperrors.Newf(apperrors.CodeInvalidInput, "image has no pixels (%dx%d)", cfg.Width, cfg.Height)
	}
	if d.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(d.MaxPixels) {
		return apperrors.Newf(apperrors.CodeTooLarge, "image is %dx%d", cfg.Width, cfg.Height).
			WithMetadata("max_pixels", strconv.Itoa(d.MaxPixels))
	}
	return nil
}

func decodeError(err error) error {
	return apperrors.Wrap(err, apperrors.CodeDecodeFailure, "decode image")
}

// IsImagePath reports whether path has an extension one of the registered
// decoders handles.
func IsImagePath(path string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Formats lists the registered format extensions.
func Formats() []string {
	return slices.Sorted(maps.Keys(extensions))
}
