//go:build linux

package screen

import (
	"os/exec"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
)

// Tried in order; the first one on PATH wins.
var linuxTools = [][]string{
	{"gnome-screenshot", "-f", FilePlaceholder},
	{"grim", FilePlaceholder},
	{"scrot", "-o", FilePlaceholder},
	{"import", "-window", "root", FilePlaceholder},
}

// New returns a capturer for the first screenshot tool found on PATH.
func New() (Capturer, error) {
	for _, tool := range linuxTools {
		if _, err := exec.LookPath(tool[0]); err == nil {
			return NewCommand(tool[0], tool[1:]...)
		}
	}
	return nil, apperrors.New(apperrors.CodeUnavailable,
		"no screenshot tool found (install gnome-screenshot, grim, scrot or imagemagick)")
}
