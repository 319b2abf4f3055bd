package cache

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/phash/internal/phash"
	"github.com/GriffinCanCode/phash/internal/trace"
)

// Batcher buffers Store calls from concurrent workers and writes them to the
// underlying Store in one transaction per flush. Lookup sees queued entries
// and entries whose write has not committed yet.
type Batcher struct {
	store      *Store
	maxSize    int
	flushDelay time.Duration
	mu         sync.Mutex
	items      []Entry
	inflight   map[uint64][]Entry
	nextBatch  uint64
	timer      *time.Timer
	wg         sync.WaitGroup
	errMu      sync.Mutex
	err        error
}

// NewBatcher wraps store. Non-positive arguments select the defaults.
func NewBatcher(store *Store, maxSize int, flushDelay time.Duration) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultBatcherMaxSize
	}
	if flushDelay <= 0 {
		flushDelay = DefaultBatcherFlushDelay
	}
	return &Batcher{
		store:      store,
		maxSize:    maxSize,
		flushDelay: flushDelay,
		items:      make([]Entry, 0, maxSize),
		inflight:   make(map[uint64][]Entry),
	}
}

func (b *Batcher) Lookup(ctx context.Context, digest, configKey string) (phash.Fingerprint, bool, error) {
	b.mu.Lock()
	fp, ok := findEntry(b.items, digest, configKey)
	if !ok {
		for _, batch := range b.inflight {
			if fp, ok = findEntry(batch, digest, configKey); ok {
				break
			}
		}
	}
	b.mu.Unlock()
	if ok {
		return fp, true, nil
	}
	return b.store.Lookup(ctx, digest, configKey)
}

// findEntry scans newest first.
func findEntry(items []Entry, digest, configKey string) (phash.Fingerprint, bool) {
	for i := len(items) - 1; i >= 0; i-- {
		if e := items[i]; e.Digest == digest && e.ConfigKey == configKey {
			return e.Hash, true
		}
	}
	return phash.Fingerprint{}, false
}

// Store queues an entry. Write errors surface from Close.
func (b *Batcher) Store(_ context.Context, digest, configKey string, fp phash.Fingerprint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, Entry{Digest: digest, ConfigKey: configKey, Hash: fp})

	if len(b.items) >= b.maxSize {
		b.flushLocked()
		return nil
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushDelay, b.timerFlush)
	} else {
		b.timer.Reset(b.flushDelay)
	}
	return nil
}

func (b *Batcher) timerFlush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *Batcher) flushLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.items) == 0 {
		return
	}
	items := b.items
	b.items = make([]Entry, 0, b.maxSize)
	id := b.nextBatch
	b.nextBatch++
	b.inflight[id] = items

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			b.mu.Lock()
			delete(b.inflight, id)
			b.mu.Unlock()
		}()
		ctx, span := trace.StartSpan(context.Background(), "cache_batch_flush")
		defer span.End()
		span.SetAttr("count", len(items))

		log := trace.Logger(ctx)
		if err := b.store.StoreMany(ctx, items); err != nil {
			span.SetAttr("error", err.Error())
			log.Warn("cache batch store failed", "error", err, "count", len(items))
			b.errMu.Lock()
			if b.err == nil {
				b.err = err
			}
			b.errMu.Unlock()
			return
		}
		log.Debug("cache batch stored", "count", len(items))
	}()
}

// Flush starts writing pending entries immediately.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Close flushes pending entries, waits for in-flight writes and returns the
// first write error. It does not close the underlying Store.
func (b *Batcher) Close() error {
	b.Flush()
	b.wg.Wait()
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.err
}
