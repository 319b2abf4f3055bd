package phash

// Hash configuration defaults
const (
	DefaultWidth  = 8
	DefaultHeight = 8

	// Upper bound on Width*Height.
	MaxGridSamples = 64 * 64
)

// Luminance weights in thousandths (ITU-R BT.601 luma).
const (
	lumaR = 299
	lumaG = 587
	lumaB = 114
)
