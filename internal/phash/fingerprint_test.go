package phash

import (
	"encoding/json"
	"testing"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
)

func TestFromBitsRoundTrip(t *testing.T) {
	bits := []bool{true, false, true, true, false, false, false, true, true, false, true}
	fp := FromBits(bits)

	if fp.Len() != len(bits) {
		t.Fatalf("Len() = %d, want %d", fp.Len(), len(bits))
	}
	got := fp.Bits()
	for i := range bits {
		if got[i] != bits[i] || fp.Bit(i) != bits[i] {
			t.Errorf("bit %d = %v, want %v", i, got[i], bits[i])
		}
	}
	// 10110001 101(00000)
	if fp.Hex() != "b1a0" {
		t.Errorf("Hex() = %q, want %q", fp.Hex(), "b1a0")
	}
	if fp.OnesCount() != 6 {
		t.Errorf("OnesCount() = %d, want 6", fp.OnesCount())
	}
}

func TestBitOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Bit(64) should panic on a 64-bit fingerprint")
		}
	}()
	FromBits(make([]bool, 64)).Bit(64)
}

func TestParseHexRoundTrip(t *testing.T) {
	inputs := []string{
		"0000000000000000",
		"ffffffffffffffff",
		"f0f0f0f0f0f0f0f0",
		"0123456789abcdef",
		"8000000000000001",
		"deadbeef",
		"",
	}
	for _, in := range inputs {
		fp, err := ParseHex(in)
		if err != nil {
			t.Fatalf("ParseHex(%q) error: %v", in, err)
		}
		if fp.Hex() != in {
			t.Errorf("ParseHex(%q).Hex() = %q", in, fp.Hex())
		}
		if fp.Len() != 4*len(in) {
			t.Errorf("ParseHex(%q).Len() = %d, want %d", in, fp.Len(), 4*len(in))
		}
	}
}

func TestParseHexNormalisesCase(t *testing.T) {
	fp, err := ParseHex("DEADBEEFCAFEF00D")
	if err != nil {
		t.Fatalf("ParseHex error: %v", err)
	}
	if fp.Hex() != "deadbeefcafef00d" {
		t.Errorf("Hex() = %q, want lowercase", fp.Hex())
	}
}

func TestParseHexInvalid(t *testing.T) {
	for _, in := range []string{"abc", "zz00", "0x12", "12 34"} {
		if _, err := ParseHex(in); !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
			t.Errorf("ParseHex(%q) error = %v, want INVALID_INPUT", in, err)
		}
	}
}

func TestParseHexBits(t *testing.T) {
	tests := []struct {
		in   string
		bits int
		ok   bool
	}{
		{"ffffff80", 25, true},
		{"ffffffc0", 25, false}, // bit 26 set in padding
		{"ffffff", 25, false},   // too short
		{"ffffffffff", 32, false},
		{"ffffffff", 32, true},
	}
	for _, tt := range tests {
		fp, err := ParseHexBits(tt.in, tt.bits)
		if tt.ok {
			if err != nil {
				t.Errorf("ParseHexBits(%q, %d) error: %v", tt.in, tt.bits, err)
				continue
			}
			if fp.Len() != tt.bits || fp.Hex() != tt.in {
				t.Errorf("ParseHexBits(%q, %d) = %d bits %q", tt.in, tt.bits, fp.Len(), fp.Hex())
			}
			continue
		}
		if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
			t.Errorf("ParseHexBits(%q, %d) error = %v, want INVALID_INPUT", tt.in, tt.bits, err)
		}
	}
}

func TestFromBytesCopies(t *testing.T) {
	raw := []byte{0xAA, 0x55}
	fp, err := FromBytes(raw, 16)
	if err != nil {
		t.Fatalf("FromBytes error: %v", err)
	}
	raw[0] = 0
	if fp.Hex() != "aa55" {
		t.Errorf("fingerprint changed after caller mutated input: %q", fp.Hex())
	}

	out := fp.Bytes()
	out[1] = 0
	if fp.Hex() != "aa55" {
		t.Errorf("fingerprint changed after caller mutated Bytes(): %q", fp.Hex())
	}

	if _, err := FromBytes([]byte{1}, -1); err == nil {
		t.Error("FromBytes with negative length should fail")
	}
}

func TestFingerprintEquality(t *testing.T) {
	a, _ := ParseHex("f0f0f0f0f0f0f0f0")
	b := FromBits(a.Bits())
	if a != b {
		t.Errorf("fingerprints with identical bits should be ==: %v vs %v", a, b)
	}

	c, _ := ParseHexBits("f0", 5)
	d, _ := ParseHexBits("f0", 8)
	if c == d {
		t.Error("fingerprints with different lengths should not be ==")
	}
}

func TestFingerprintJSON(t *testing.T) {
	fp, _ := ParseHex("0123456789abcdef")
	data, err := json.Marshal(map[string]Fingerprint{"hash": fp})
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}
	if string(data) != `{"hash":"0123456789abcdef"}` {
		t.Errorf("json = %s", data)
	}

	var decoded map[string]Fingerprint
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if decoded["hash"] != fp {
		t.Errorf("decoded = %v, want %v", decoded["hash"], fp)
	}
}

func TestZeroFingerprint(t *testing.T) {
	var fp Fingerprint
	if !fp.IsZero() || fp.Len() != 0 || fp.Hex() != "" {
		t.Errorf("zero fingerprint = %d bits %q", fp.Len(), fp.Hex())
	}
}
