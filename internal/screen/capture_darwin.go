//go:build darwin

package screen

// New returns a capturer using the native screencapture tool.
// -x: no sound, -t png, -m: main display only.
func New() (Capturer, error) {
	return NewCommand("screencapture", "-x", "-t", "png", "-m", FilePlaceholder)
}
