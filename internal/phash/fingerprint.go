// Package phash computes mean-threshold perceptual fingerprints of images and
// compares them by Hamming distance.
package phash

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
)

// Fingerprint is an immutable, fixed-length bit sequence packed MSB-first in
// row-major order. The zero value is the empty fingerprint. Fingerprints are
// comparable with ==; equal bits mean equal fingerprints regardless of source.
type Fingerprint struct {
	bits   int
	packed string // pad bits of the last byte are always zero
}

// FromBytes builds a fingerprint of the given bit length from packed bytes.
func FromBytes(b []byte, bits int) (Fingerprint, error) {
	if bits < 0 {
		return Fingerprint{}, apperrors.Newf(apperrors.CodeInvalidInput, "negative bit length %d", bits)
	}
	if len(b) != byteLen(bits) {
		return Fingerprint{}, apperrors.Newf(apperrors.CodeInvalidInput,
			"%d bits need %d bytes, got %d", bits, byteLen(bits), len(b))
	}
	if pad := padMask(bits); pad != 0 && b[len(b)-1]&pad != 0 {
		return Fingerprint{}, apperrors.Newf(apperrors.CodeInvalidInput, "non-zero padding after bit %d", bits)
	}
	return Fingerprint{bits: bits, packed: string(b)}, nil
}

// FromBits packs a boolean sequence.
func FromBits(bits []bool) Fingerprint {
	return Fingerprint{bits: len(bits), packed: string(pack(bits))}
}

// ParseHex decodes a hex string; the bit length is four per character.
// Upper-case input is accepted.
func ParseHex(s string) (Fingerprint, error) {
	b, err := decodeHex(s)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{bits: 8 * len(b), packed: string(b)}, nil
}

// ParseHexBits decodes a hex string holding exactly bits bits.
func ParseHexBits(s string, bits int) (Fingerprint, error) {
	b, err := decodeHex(s)
	if err != nil {
		return Fingerprint{}, err
	}
	return FromBytes(b, bits)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeInvalidInput, "invalid fingerprint hex %q", s)
	}
	return b, nil
}

// Len returns the number of bits.
func (f Fingerprint) Len() int { return f.bits }

// IsZero reports whether f is the empty fingerprint.
func (f Fingerprint) IsZero() bool { return f.bits == 0 }

// Bytes returns a copy of the packed representation.
func (f Fingerprint) Bytes() []byte { return []byte(f.packed) }

// Bit returns bit i in row-major order.
func (f Fingerprint) Bit(i int) bool {
	if i < 0 || i >= f.bits {
		panic(fmt.Sprintf("phash: bit index %d out of range [0,%d)", i, f.bits))
	}
	return f.packed[i/8]&(0x80>>(i%8)) != 0
}

// Bits returns the bits as booleans in row-major order.
func (f Fingerprint) Bits() []bool {
	out := make([]bool, f.bits)
	for i := range out {
		out[i] = f.packed[i/8]&(0x80>>(i%8)) != 0
	}
	return out
}

// OnesCount returns the number of set bits.
func (f Fingerprint) OnesCount() int {
	n := 0
	for i := 0; i < len(f.packed); i++ {
		n += bits.OnesCount8(f.packed[i])
	}
	return n
}

// Hex returns the lowercase hex encoding, two characters per byte.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString([]byte(f.packed))
}

func (f Fingerprint) String() string { return f.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The bit length is taken
// from the text length, so it only round-trips byte-aligned fingerprints.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func pack(bits []bool) []byte {
	out := make([]byte, byteLen(len(bits)))
	for i, set := range bits {
		if set {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

func byteLen(bits int) int {
	return (bits + 7) / 8
}

// padMask returns the mask of unused low bits in the last byte.
func padMask(bits int) byte {
	used := bits % 8
	if used == 0 {
		return 0
	}
	return byte(0xFF >> used)
}
