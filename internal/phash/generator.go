package phash

import (
	"image"

	"github.com/nfnt/resize"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
)

// Hasher turns images into fingerprints under one fixed Config. It holds no
// mutable state and is safe for concurrent use.
type Hasher struct {
	cfg    Config
	interp resize.InterpolationFunction
}

// New validates cfg and returns a Hasher for it.
func New(cfg Config) (*Hasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Hasher{cfg: cfg, interp: interpolations[cfg.Filter]}, nil
}

// Default returns a Hasher for DefaultConfig.
func Default() *Hasher {
	h, _ := New(DefaultConfig())
	return h
}

// Config returns the hasher's configuration.
func (h *Hasher) Config() Config { return h.cfg }

// Generate is the one-shot form of New(cfg).Hash(img).
func Generate(img image.Image, cfg Config) (Fingerprint, error) {
	h, err := New(cfg)
	if err != nil {
		return Fingerprint{}, err
	}
	return h.Hash(img)
}

// Hash computes the fingerprint of img:
//
//  1. resample to Width x Height with the configured nfnt/resize filter
//  2. luminance per sample as 299R + 587G + 114B over 8-bit channels
//  3. mean of all samples, kept as the exact integer sum
//  4. bit i is set iff sample i is strictly greater than the mean
//  5. pack bits MSB-first in row-major order
//
// Everything after resampling is integer arithmetic, so output is identical
// across platforms. A uniform image hashes to all zeros.
func (h *Hasher) Hash(img image.Image) (Fingerprint, error) {
	if img == nil {
		return Fingerprint{}, apperrors.New(apperrors.CodeInvalidInput, "nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Fingerprint{}, apperrors.Newf(apperrors.CodeInvalidInput, "image has empty bounds %v", b)
	}

	samples := h.Luminance(img)

	var sum int64
	for _, l := range samples {
		sum += l
	}
	n := int64(len(samples))

	bits := make([]bool, len(samples))
	for i, l := range samples {
		bits[i] = l*n > sum
	}
	return FromBits(bits), nil
}

// Luminance returns the resampled grid's luminance in row-major order, in
// thousandths of an 8-bit level (0..255000). img must be non-empty.
func (h *Hasher) Luminance(img image.Image) []int64 {
	grid := h.resample(img)
	gb := grid.Bounds()

	out := make([]int64, 0, h.cfg.Width*h.cfg.Height)
	for y := gb.Min.Y; y < gb.Max.Y; y++ {
		for x := gb.Min.X; x < gb.Max.X; x++ {
			r, g, b, _ := grid.At(x, y).RGBA()
			out = append(out, luma(r>>8, g>>8, b>>8))
		}
	}
	return out
}

func (h *Hasher) resample(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == h.cfg.Width && b.Dy() == h.cfg.Height {
		return img
	}
	return resize.Resize(uint(h.cfg.Width), uint(h.cfg.Height), img, h.interp)
}

func luma(r, g, b uint32) int64 {
	return int64(lumaR*r + lumaG*g + lumaB*b)
}
