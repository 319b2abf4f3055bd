package phash

import (
	"fmt"
	"math/bits"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
)

// Distance returns the Hamming distance between two fingerprints of equal
// length. Fingerprints of different lengths come from different configs and
// fail with CodeLengthMismatch.
func Distance(a, b Fingerprint) (int, error) {
	if a.bits != b.bits {
		return 0, apperrors.Newf(apperrors.CodeLengthMismatch,
			"cannot compare %d-bit and %d-bit fingerprints", a.bits, b.bits).
			WithMetadata("a_bits", fmt.Sprint(a.bits)).
			WithMetadata("b_bits", fmt.Sprint(b.bits))
	}
	return hamming(a.packed, b.packed), nil
}

// Distance is shorthand for Distance(f, other).
func (f Fingerprint) Distance(other Fingerprint) (int, error) {
	return Distance(f, other)
}

// Similarity maps distance onto [0, 1], 1 meaning identical bits.
func Similarity(a, b Fingerprint) (float64, error) {
	d, err := Distance(a, b)
	if err != nil {
		return 0, err
	}
	if a.bits == 0 {
		return 1, nil
	}
	return 1 - float64(d)/float64(a.bits), nil
}

// hamming counts differing bits; pad bits are zero on both sides.
func hamming(a, b string) int {
	n := 0
	for i := 0; i < len(a); i++ {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return n
}
