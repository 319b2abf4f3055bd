package screen

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/frames"
	"github.com/GriffinCanCode/phash/internal/imageio"
)

// Watcher captures the screen on an interval and feeds each frame to a
// frames.Tracker.
type Watcher struct {
	capturer Capturer
	decoder  *imageio.Decoder
	tracker  *frames.Tracker
	interval time.Duration
}

func NewWatcher(capturer Capturer, decoder *imageio.Decoder, tracker *frames.Tracker, interval time.Duration) *Watcher {
	if decoder == nil {
		decoder = imageio.NewDecoder(imageio.DefaultMaxPixels)
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{capturer: capturer, decoder: decoder, tracker: tracker, interval: interval}
}

// Run captures immediately and then once per interval, calling onFrame with
// every observation. It stops when ctx is done, after limit observed frames
// (limit <= 0 means no limit), or after MaxConsecutiveFailures captures in a
// row fail.
func (w *Watcher) Run(ctx context.Context, limit int, onFrame func(frames.Observation)) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	observed, failures := 0, 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		obs, err := w.captureOnce(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			failures++
			slog.Warn("screen capture failed", "error", err, "failures", failures)
			if failures >= MaxConsecutiveFailures {
				return apperrors.Wrap(err, apperrors.CodeUnavailable, "screen capture keeps failing")
			}
		default:
			failures = 0
			observed++
			if onFrame != nil {
				onFrame(obs)
			}
			if limit > 0 && observed >= limit {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Watcher) captureOnce(ctx context.Context) (frames.Observation, error) {
	data, err := w.capturer.Capture(ctx)
	if err != nil {
		return frames.Observation{}, err
	}
	img, _, err := w.decoder.DecodeBytes(data)
	if err != nil {
		return frames.Observation{}, err
	}
	return w.tracker.Observe(img)
}
