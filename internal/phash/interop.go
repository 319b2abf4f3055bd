package phash

import (
	"encoding/binary"

	"github.com/corona10/goimagehash"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
)

// ImageHash converts a 64-bit fingerprint to a goimagehash average hash. Bit 0
// of the fingerprint becomes the most significant bit of the uint64, which is
// the order goimagehash itself uses.
func (f Fingerprint) ImageHash() (*goimagehash.ImageHash, error) {
	if f.bits != 64 {
		return nil, apperrors.Newf(apperrors.CodeLengthMismatch, "goimagehash needs 64 bits, fingerprint has %d", f.bits)
	}
	return goimagehash.NewImageHash(binary.BigEndian.Uint64([]byte(f.packed)), goimagehash.AHash), nil
}

// FromImageHash converts a goimagehash hash back into a 64-bit fingerprint.
func FromImageHash(h *goimagehash.ImageHash) (Fingerprint, error) {
	if h == nil {
		return Fingerprint{}, apperrors.New(apperrors.CodeInvalidInput, "nil image hash")
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], h.GetHash())
	return Fingerprint{bits: 64, packed: string(b[:])}, nil
}
