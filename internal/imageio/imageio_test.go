package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeFormats(t *testing.T) {
	src := testImage(12, 7)

	tests := []struct {
		name   string
		format string
		encode func(*bytes.Buffer) error
	}{
		{"png", "png", func(b *bytes.Buffer) error { return png.Encode(b, src) }},
		{"bmp", "bmp", func(b *bytes.Buffer) error { return bmp.Encode(b, src) }},
		{"tiff", "tiff", func(b *bytes.Buffer) error { return tiff.Encode(b, src, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf); err != nil {
				t.Fatalf("encode: %v", err)
			}
			img, format, err := DecodeBytes(buf.Bytes())
			if err != nil {
				t.Fatalf("DecodeBytes error: %v", err)
			}
			if format != tt.format {
				t.Errorf("format = %q, want %q", format, tt.format)
			}
			if got := img.Bounds(); got.Dx() != 12 || got.Dy() != 7 {
				t.Errorf("bounds = %v, want 12x7", got)
			}
		})
	}
}

func TestDecodePreservesPixels(t *testing.T) {
	src := testImage(40, 30)
	img, _, err := Decode(bytes.NewReader(encodePNG(t, src)))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	r1, g1, b1, _ := src.At(17, 11).RGBA()
	r2, g2, b2, _ := img.At(17, 11).RGBA()
	if r1 != r2 || g1 != g2 || b1 != b2 {
		t.Errorf("pixel mismatch after decode: %v vs %v", src.At(17, 11), img.At(17, 11))
	}
}

func TestDecodeTooLarge(t *testing.T) {
	data := encodePNG(t, testImage(20, 20))

	d := NewDecoder(399)
	_, _, err := d.DecodeBytes(data)
	if !apperrors.IsCode(err, apperrors.CodeTooLarge) {
		t.Errorf("error = %v, want TOO_LARGE", err)
	}

	d = NewDecoder(400)
	if _, _, err := d.DecodeBytes(data); err != nil {
		t.Errorf("limit equal to pixel count should pass, got %v", err)
	}

	d = NewDecoder(0)
	if _, _, err := d.DecodeBytes(data); err != nil {
		t.Errorf("zero limit disables the check, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		code apperrors.Code
	}{
		{"empty", nil, apperrors.CodeInvalidInput},
		{"garbage", []byte("definitely not an image"), apperrors.CodeDecodeFailure},
		{"truncated png", encodePNG(t, testImage(8, 8))[:40], apperrors.CodeDecodeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeBytes(tt.data)
			if !apperrors.IsCode(err, tt.code) {
				t.Errorf("error = %v, want %v", err, tt.code)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	if err := os.WriteFile(path, encodePNG(t, testImage(5, 5)), 0o644); err != nil {
		t.Fatal(err)
	}

	img, format, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if format != "png" || img.Bounds().Dx() != 5 {
		t.Errorf("Open = %v %q", img.Bounds(), format)
	}

	_, _, err = Open(filepath.Join(dir, "missing.png"))
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("missing file error = %v, want NOT_FOUND", err)
	}

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err = Open(bad)
	if !apperrors.IsCode(err, apperrors.CodeDecodeFailure) {
		t.Errorf("bad file error = %v, want DECODE_FAILURE", err)
	}
	if ae, ok := apperrors.As(err); !ok || ae.Metadata["path"] != bad {
		t.Errorf("error metadata = %v, want path", err)
	}
}

func TestIsImagePath(t *testing.T) {
	tests := map[string]bool{
		"a.png":          true,
		"b.JPG":          true,
		"c.jpeg":         true,
		"dir/d.webp":     true,
		"e.tiff":         true,
		"f.bmp":          true,
		"notes.txt":      false,
		"archive.tar.gz": false,
		"noext":          false,
	}
	for path, want := range tests {
		if got := IsImagePath(path); got != want {
			t.Errorf("IsImagePath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestFormatsSorted(t *testing.T) {
	f := Formats()
	if len(f) != len(extensions) {
		t.Fatalf("Formats() len = %d, want %d", len(f), len(extensions))
	}
	for i := 1; i < len(f); i++ {
		if f[i-1] > f[i] {
			t.Errorf("Formats() not sorted: %v", f)
			break
		}
	}
}
