//go:build !darwin && !linux

package screen

import apperrors "github.com/GriffinCanCode/phash/internal/errors"

// New reports that no built-in capture tool is known for this platform;
// use NewCommand with an explicit program instead.
func New() (Capturer, error) {
	return nil, apperrors.New(apperrors.CodeUnavailable, "screen capture is not supported on this platform; pass a capture command")
}
