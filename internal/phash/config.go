package phash

import (
	"fmt"
	"strings"

	"github.com/nfnt/resize"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
)

// Algorithm selects how resampled luminance is turned into bits.
type Algorithm string

// Mean thresholds every sample against the mean luminance of the grid.
const Mean Algorithm = "mean"

// Filter names the resampling kernel.
type Filter string

const (
	FilterNearest  Filter = "nearest"
	FilterBilinear Filter = "bilinear"
	FilterBicubic  Filter = "bicubic"
	FilterMitchell Filter = "mitchell"
	FilterLanczos2 Filter = "lanczos2"
	FilterLanczos3 Filter = "lanczos3"
)

var interpolations = map[Filter]resize.InterpolationFunction{
	FilterNearest:  resize.NearestNeighbor,
	FilterBilinear: resize.Bilinear,
	FilterBicubic:  resize.Bicubic,
	FilterMitchell: resize.MitchellNetravali,
	FilterLanczos2: resize.Lanczos2,
	FilterLanczos3: resize.Lanczos3,
}

// ParseFilter maps a case-insensitive name to a Filter.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := interpolations[f]; !ok {
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "unknown resample filter %q", s)
	}
	return f, nil
}

// Config holds the parameters that fix a fingerprint's shape and meaning.
// Fingerprints are only comparable when produced under equal configs.
type Config struct {
	Width     int
	Height    int
	Algorithm Algorithm
	Filter    Filter
}

// DefaultConfig returns the 8x8 mean hash with bilinear resampling.
func DefaultConfig() Config {
	return Config{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		Algorithm: Mean,
		Filter:    FilterBilinear,
	}
}

// Bits returns the fingerprint length produced by this config.
func (c Config) Bits() int {
	return c.Width * c.Height
}

// HexLen returns the length of the hex encoding produced by this config.
func (c Config) HexLen() int {
	return 2 * byteLen(c.Bits())
}

// Key identifies the config in caches and logs, e.g. "mean:8x8:bilinear".
func (c Config) Key() string {
	return fmt.Sprintf("%s:%dx%d:%s", c.Algorithm, c.Width, c.Height, c.Filter)
}

// Validate rejects degenerate grids and unknown variants.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return apperrors.Newf(apperrors.CodeInvalidInput, "hash grid must be non-empty, got %dx%d", c.Width, c.Height).
			WithMetadata("width", fmt.Sprint(c.Width)).
			WithMetadata("height", fmt.Sprint(c.Height))
	}
	if c.Width*c.Height > MaxGridSamples {
		return apperrors.Newf(apperrors.CodeInvalidInput, "hash grid %dx%d exceeds %d samples", c.Width, c.Height, MaxGridSamples)
	}
	if c.Algorithm != Mean {
		return apperrors.Newf(apperrors.CodeInvalidInput, "unsupported hash algorithm %q", c.Algorithm)
	}
	if _, ok := interpolations[c.Filter]; !ok {
		return apperrors.Newf(apperrors.CodeInvalidInput, "unknown resample filter %q", c.Filter)
	}
	return nil
}
