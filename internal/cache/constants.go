package cache

import "time"

// Write batcher defaults
const (
	DefaultBatcherMaxSize    = 64
	DefaultBatcherFlushDelay = 500 * time.Millisecond
)
