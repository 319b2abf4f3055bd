package screen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/frames"
)

// scripted replays a fixed list of captures, repeating the last one.
type scripted struct {
	mu     sync.Mutex
	shots  [][]byte
	errs   []error
	calls  int
	closed bool
}

func (s *scripted) Capture(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.shots)-1)
	s.calls++
	return s.shots[i], s.errs[i]
}

func (s *scripted) Close() error {
	s.closed = true
	return nil
}

func splitPNG(t *testing.T, vertical bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(0)
			if (vertical && x >= 32) || (!vertical && y < 32) {
				v = 255
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestWatcherReportsFrames(t *testing.T) {
	v, h := splitPNG(t, true), splitPNG(t, false)
	src := &scripted{
		shots: [][]byte{v, v, h},
		errs:  []error{nil, nil, nil},
	}

	w := NewWatcher(src, nil, frames.NewTracker(nil, 3), time.Millisecond)
	var got []frames.Observation
	if err := w.Run(context.Background(), 3, func(o frames.Observation) { got = append(got, o) }); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("observations = %d, want 3", len(got))
	}
	if got[0].Distance != -1 || got[1].Distance != 0 || !got[1].Similar {
		t.Errorf("first two = %+v %+v", got[0], got[1])
	}
	if got[2].Distance != 32 || got[2].Similar {
		t.Errorf("third = %+v, want distinct at 32", got[2])
	}
}

func TestWatcherSkipsBadFrames(t *testing.T) {
	v := splitPNG(t, true)
	src := &scripted{
		shots: [][]byte{nil, []byte("garbage"), v},
		errs:  []error{errors.New("tool crashed"), nil, nil},
	}

	w := NewWatcher(src, nil, frames.NewTracker(nil, 0), time.Millisecond)
	var got []frames.Observation
	if err := w.Run(context.Background(), 1, func(o frames.Observation) { got = append(got, o) }); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(got) != 1 || got[0].Seq != 1 {
		t.Errorf("observations = %+v", got)
	}
}

func TestWatcherGivesUp(t *testing.T) {
	src := &scripted{
		shots: [][]byte{nil},
		errs:  []error{errors.New("no display")},
	}

	w := NewWatcher(src, nil, frames.NewTracker(nil, 0), time.Millisecond)
	err := w.Run(context.Background(), 0, nil)
	if !apperrors.IsCode(err, apperrors.CodeUnavailable) {
		t.Errorf("error = %v, want UNAVAILABLE", err)
	}
	if src.calls != MaxConsecutiveFailures {
		t.Errorf("captures = %d, want %d", src.calls, MaxConsecutiveFailures)
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	src := &scripted{
		shots: [][]byte{splitPNG(t, true)},
		errs:  []error{nil},
	}
	ctx, cancel := context.WithCancel(context.Background())

	w := NewWatcher(src, nil, frames.NewTracker(nil, 0), 5*time.Millisecond)
	n := 0
	err := w.Run(ctx, 0, func(frames.Observation) {
		n++
		if n == 2 {
			cancel()
		}
	})
	if err != nil {
		t.Errorf("Run after cancel = %v, want nil", err)
	}
	if n != 2 {
		t.Errorf("frames before stop = %d, want 2", n)
	}
}
