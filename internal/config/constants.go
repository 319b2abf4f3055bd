package config

// Configuration defaults
const (
	DefaultHTTPAddr = ":8000"
	DefaultGRPCAddr = ":50051"

	// 64 MiB of encoded image data per upload
	DefaultMaxUploadBytes = 64 << 20

	// 100 megapixels
	DefaultMaxPixels = 100_000_000

	// Frames within this Hamming distance count as the same frame
	DefaultSimilarThreshold = 3

	// WebSocket frames per connection per second
	DefaultRateLimitMessages = 30

	// Near-duplicate cutoff for batch pair listings
	DefaultBatchThreshold = 5

	DefaultClientAddr           = "localhost:50051"
	DefaultClientTimeoutSeconds = 30.0
)
