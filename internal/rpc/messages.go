package rpc

import (
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/phash"
)

// HashResult is the payload of a Hash response.
type HashResult struct {
	Hash   phash.Fingerprint
	Format string
}

// ToStruct encodes r as {hash, bits, format}.
func (r HashResult) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"hash":   structpb.NewStringValue(r.Hash.Hex()),
		"bits":   structpb.NewNumberValue(float64(r.Hash.Len())),
		"format": structpb.NewStringValue(r.Format),
	}}
}

// HashResultFromStruct decodes a Hash response, honouring its bit count.
func HashResultFromStruct(s *structpb.Struct) (HashResult, error) {
	hex, err := stringField(s, "hash")
	if err != nil {
		return HashResult{}, err
	}
	bits, err := intField(s, "bits")
	if err != nil {
		return HashResult{}, err
	}
	fp, err := phash.ParseHexBits(hex, bits)
	if err != nil {
		return HashResult{}, err
	}
	format, _ := stringField(s, "format")
	return HashResult{Hash: fp, Format: format}, nil
}

// DistanceRequest builds the {a, b} request struct. Fingerprints travel as
// hex plus explicit bit counts so grids that are not byte multiples survive.
func DistanceRequest(a, b phash.Fingerprint) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"a":      structpb.NewStringValue(a.Hex()),
		"b":      structpb.NewStringValue(b.Hex()),
		"a_bits": structpb.NewNumberValue(float64(a.Len())),
		"b_bits": structpb.NewNumberValue(float64(b.Len())),
	}}
}

// parseDistanceRequest accepts {a, b} with optional a_bits/b_bits; without
// them the bit count is 4 per hex digit.
func parseDistanceRequest(s *structpb.Struct) (phash.Fingerprint, phash.Fingerprint, error) {
	a, err := fingerprintField(s, "a")
	if err != nil {
		return phash.Fingerprint{}, phash.Fingerprint{}, err
	}
	b, err := fingerprintField(s, "b")
	if err != nil {
		return phash.Fingerprint{}, phash.Fingerprint{}, err
	}
	return a, b, nil
}

func distanceResponse(dist, bits int) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"distance": structpb.NewNumberValue(float64(dist)),
		"bits":     structpb.NewNumberValue(float64(bits)),
	}}
}

// DistanceFromStruct decodes a Distance response.
func DistanceFromStruct(s *structpb.Struct) (int, error) {
	return intField(s, "distance")
}

func fingerprintField(s *structpb.Struct, key string) (phash.Fingerprint, error) {
	hex, err := stringField(s, key)
	if err != nil {
		return phash.Fingerprint{}, err
	}
	if _, ok := s.GetFields()[key+"_bits"]; ok {
		bits, err := intField(s, key+"_bits")
		if err != nil {
			return phash.Fingerprint{}, err
		}
		return phash.ParseHexBits(hex, bits)
	}
	return phash.ParseHex(hex)
}

func stringField(s *structpb.Struct, key string) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "missing field %q", key)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "field %q is not a string", key)
	}
	return sv.StringValue, nil
}

func intField(s *structpb.Struct, key string) (int, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, apperrors.Newf(apperrors.CodeInvalidInput, "missing field %q", key)
	}
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, apperrors.Newf(apperrors.CodeInvalidInput, "field %q is not a number", key)
	}
	n := int(nv.NumberValue)
	if float64(n) != nv.NumberValue || n < 0 {
		return 0, apperrors.Newf(apperrors.CodeInvalidInput, "field %q must be a non-negative integer", key)
	}
	return n, nil
}
