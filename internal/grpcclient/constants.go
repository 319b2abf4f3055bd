package grpcclient

import "time"

// Client configuration defaults
const (
	DefaultTimeout = 30 * time.Second

	// Keepalive configuration
	DefaultKeepaliveTime    = 30 * time.Second
	DefaultKeepaliveTimeout = 5 * time.Second

	// Send limit; the server enforces its own upload limit
	DefaultMaxSendBytes = 64<<20 + 1<<10
)
