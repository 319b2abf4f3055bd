package batch

import (
	"errors"
	"reflect"
	"testing"

	"github.com/GriffinCanCode/phash/internal/phash"
)

func hexResult(t *testing.T, path, hex string) Result {
	t.Helper()
	fp, err := phash.ParseHex(hex)
	if err != nil {
		t.Fatal(err)
	}
	return Result{Path: path, Hash: fp}
}

func TestPairs(t *testing.T) {
	results := []Result{
		hexResult(t, "d.png", "ff"),
		hexResult(t, "a.png", "00"),
		hexResult(t, "c.png", "01"),
		hexResult(t, "b.png", "00"),
		hexResult(t, "wide.png", "0000"),
		{Path: "broken.png", Err: errors.New("decode")},
	}

	got := Pairs(results, 1)
	want := []Pair{
		{A: "a.png", B: "b.png", Distance: 0},
		{A: "a.png", B: "c.png", Distance: 1},
		{A: "b.png", B: "c.png", Distance: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Pairs = %+v\nwant %+v", got, want)
	}

	if got := Pairs(results, 0); len(got) != 1 {
		t.Errorf("Pairs(threshold 0) = %+v, want one exact pair", got)
	}
	if got := Pairs(results, 8); len(got) != 6 {
		t.Errorf("Pairs(threshold 8) = %d pairs, want 6 (all 8-bit pairs)", len(got))
	}
}

func TestGroups(t *testing.T) {
	pairs := []Pair{
		{A: "b", B: "c", Distance: 1},
		{A: "x", B: "y", Distance: 0},
		{A: "a", B: "b", Distance: 2},
	}
	got := Groups(pairs)
	want := [][]string{{"a", "b", "c"}, {"x", "y"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Groups = %v, want %v", got, want)
	}

	if got := Groups(nil); len(got) != 0 {
		t.Errorf("Groups(nil) = %v, want empty", got)
	}
}
