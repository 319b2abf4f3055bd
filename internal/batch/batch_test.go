package batch

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/GriffinCanCode/phash/internal/cache"
	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/phash"
)

// writeSplit writes a 64x64 PNG split into dark/light halves.
func writeSplit(t *testing.T, path string, vertical bool, dark, light uint8) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := dark
			if (vertical && x >= 32) || (!vertical && y < 32) {
				v = light
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func fixture(t *testing.T) (dir string, paths []string) {
	t.Helper()
	dir = t.TempDir()
	paths = []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "sub", "c.png"),
	}
	writeSplit(t, paths[0], true, 0, 255)
	writeSplit(t, paths[1], true, 30, 220)
	writeSplit(t, paths[2], false, 0, 255)
	return dir, paths
}

func TestRunOrderAndErrors(t *testing.T) {
	dir, paths := fixture(t)
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.png")
	inputs := append(slices.Clone(paths), notes, missing)

	results, err := Run(context.Background(), inputs, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(results) != len(inputs) {
		t.Fatalf("got %d results, want %d", len(results), len(inputs))
	}
	for i, r := range results {
		if r.Path != inputs[i] {
			t.Errorf("results[%d].Path = %q, want %q", i, r.Path, inputs[i])
		}
	}

	want := []string{"0f0f0f0f0f0f0f0f", "0f0f0f0f0f0f0f0f", "ffffffff00000000"}
	for i, w := range want {
		if !results[i].OK() {
			t.Errorf("results[%d].Err = %v", i, results[i].Err)
			continue
		}
		if got := results[i].Hash.Hex(); got != w {
			t.Errorf("results[%d].Hash = %s, want %s", i, got, w)
		}
		if results[i].Format != "png" {
			t.Errorf("results[%d].Format = %q, want png", i, results[i].Format)
		}
	}

	if !apperrors.IsCode(results[3].Err, apperrors.CodeDecodeFailure) {
		t.Errorf("notes.txt error = %v, want DECODE_FAILURE", results[3].Err)
	}
	if !apperrors.IsCode(results[4].Err, apperrors.CodeNotFound) {
		t.Errorf("missing.png error = %v, want NOT_FOUND", results[4].Err)
	}
}

func TestRunMatchesDirectHash(t *testing.T) {
	_, paths := fixture(t)
	hasher, err := phash.New(phash.Config{Width: 16, Height: 16, Algorithm: phash.Mean, Filter: phash.FilterLanczos3})
	if err != nil {
		t.Fatal(err)
	}

	results, err := Run(context.Background(), paths, Options{Hasher: hasher, Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Hash.Len() != 256 {
			t.Errorf("%s: %d bits, want 256", r.Path, r.Hash.Len())
		}
	}
}

func TestRunProgress(t *testing.T) {
	_, paths := fixture(t)

	var (
		mu    sync.Mutex
		calls []int
	)
	_, err := Run(context.Background(), paths, Options{
		Workers: 2,
		Progress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			if total != len(paths) {
				t.Errorf("total = %d, want %d", total, len(paths))
			}
			calls = append(calls, done)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	slices.Sort(calls)
	if !slices.Equal(calls, []int{1, 2, 3}) {
		t.Errorf("progress calls = %v, want [1 2 3]", calls)
	}
}

func TestRunCancelled(t *testing.T) {
	_, paths := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, paths, Options{}); err == nil {
		t.Error("Run with cancelled context should fail")
	}
}

func TestRunUsesCache(t *testing.T) {
	_, paths := fixture(t)
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	first, err := Run(context.Background(), paths, Options{Cache: store})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range first {
		if r.Cached {
			t.Errorf("%s: cached on first run", r.Path)
		}
	}
	if n, _ := store.Count(context.Background(), phash.DefaultConfig().Key()); n != 3 {
		t.Errorf("cache Count = %d, want 3", n)
	}

	second, err := Run(context.Background(), paths, Options{Cache: store})
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range second {
		if !r.Cached {
			t.Errorf("%s: not served from cache", r.Path)
		}
		if r.Hash != first[i].Hash {
			t.Errorf("%s: cached hash %s, want %s", r.Path, r.Hash, first[i].Hash)
		}
	}

	// a different grid is a different cache key
	hasher, _ := phash.New(phash.Config{Width: 4, Height: 4, Algorithm: phash.Mean, Filter: phash.FilterBilinear})
	third, _ := Run(context.Background(), paths, Options{Cache: store, Hasher: hasher})
	if third[0].Cached || third[0].Hash.Len() != 16 {
		t.Errorf("4x4 run = %+v", third[0])
	}
}

func TestRunWithBatcher(t *testing.T) {
	_, paths := fixture(t)
	store, err := cache.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	b := cache.NewBatcher(store, 2, 0)
	if _, err := Run(context.Background(), paths, Options{Cache: b}); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Batcher.Close error: %v", err)
	}
	if n, _ := store.Count(context.Background(), ""); n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestExpand(t *testing.T) {
	dir, paths := fixture(t)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	explicit := filepath.Join(dir, "notes.txt")

	got, err := Expand([]string{dir, paths[0], explicit, filepath.Join(dir, "missing.png")})
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	want := []string{
		paths[0], paths[1], paths[2],
		explicit,
		filepath.Join(dir, "missing.png"),
	}
	if !slices.Equal(got, want) {
		t.Errorf("Expand = %v\nwant %v", got, want)
	}
}
