// Package frames tracks a stream of images and reports which frames differ
// perceptually from the last distinct one.
package frames

import (
	"image"
	"log/slog"

	"github.com/GriffinCanCode/phash/internal/phash"
	"github.com/GriffinCanCode/phash/internal/syncx"
)

// Observation is the result of feeding one frame to a Tracker.
type Observation struct {
	Seq  uint64
	Hash phash.Fingerprint
	// Distance to the reference frame; -1 for the first frame.
	Distance int
	Similar  bool
}

// Stats counts frames seen by a Tracker.
type Stats struct {
	Frames   uint64
	Distinct uint64
	Similar  uint64
}

type state struct {
	ref   phash.Fingerprint
	seq   uint64
	stats Stats
}

// Tracker holds the last distinct fingerprint of a stream. A frame within
// threshold of the reference is reported similar and leaves the reference in
// place; anything further away becomes the new reference.
type Tracker struct {
	hasher    *phash.Hasher
	threshold int
	state     *syncx.Guard[state]
}

// NewTracker creates a tracker. A nil hasher uses the default 8x8 config.
func NewTracker(hasher *phash.Hasher, threshold int) *Tracker {
	if hasher == nil {
		hasher = phash.Default()
	}
	if threshold < 0 {
		threshold = 0
	}
	return &Tracker{
		hasher:    hasher,
		threshold: threshold,
		state:     syncx.NewGuard(state{}),
	}
}

// Threshold returns the similarity cutoff.
func (t *Tracker) Threshold() int { return t.threshold }

// Observe hashes img and compares it with the reference frame.
func (t *Tracker) Observe(img image.Image) (Observation, error) {
	fp, err := t.hasher.Hash(img)
	if err != nil {
		return Observation{}, err
	}
	return t.ObserveHash(fp)
}

// ObserveHash is Observe for a fingerprint computed elsewhere.
func (t *Tracker) ObserveHash(fp phash.Fingerprint) (Observation, error) {
	var (
		obs Observation
		err error
	)
	t.state.Do(func(s *state) {
		obs = Observation{Seq: s.seq + 1, Hash: fp, Distance: -1}

		if !s.ref.IsZero() {
			obs.Distance, err = phash.Distance(s.ref, fp)
			if err != nil {
				return
			}
			obs.Similar = obs.Distance <= t.threshold
		}

		s.seq = obs.Seq
		s.stats.Frames++
		if obs.Similar {
			s.stats.Similar++
			return
		}
		s.ref = fp
		s.stats.Distinct++
	})
	if err != nil {
		return Observation{}, err
	}
	if obs.Similar {
		slog.Debug("similar frame", "seq", obs.Seq, "distance", obs.Distance)
	}
	return obs, nil
}

// Last returns the current reference fingerprint, if any.
func (t *Tracker) Last() (phash.Fingerprint, bool) {
	ref := syncx.View(t.state, func(s state) phash.Fingerprint { return s.ref })
	return ref, !ref.IsZero()
}

// Stats returns frame counters.
func (t *Tracker) Stats() Stats {
	return syncx.View(t.state, func(s state) Stats { return s.stats })
}

// Reset forgets the reference frame and counters.
func (t *Tracker) Reset() {
	t.state.Store(state{})
}
