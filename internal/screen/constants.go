package screen

import "time"

// Capture constants
const (
	// Replaced by the output path in capture command arguments
	FilePlaceholder = "{file}"

	ScreenshotFile = "screenshot.png"

	DefaultInterval = time.Second

	// Consecutive capture failures before Watcher.Run gives up
	MaxConsecutiveFailures = 5
)
