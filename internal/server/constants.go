package server

import "time"

// Server configuration constants
const (
	// Sliding window for the per-connection WebSocket rate limit
	RateLimitWindow = time.Second

	// Upper bound on writing one WebSocket reply
	WSWriteTimeout = 5 * time.Second

	// JSON bodies of /api/distance are tiny
	MaxJSONBodyBytes = 64 << 10
)

// WebSocket reply types
const (
	MsgFrame = "frame"
	MsgReset = "reset"
	MsgError = "error"
)
