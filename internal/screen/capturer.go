// Package screen grabs screenshots by running the platform's capture tool
// and watches the screen for distinct frames.
package screen

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
)

// Capturer returns one encoded screenshot per call.
type Capturer interface {
	Capture(ctx context.Context) ([]byte, error)
	Close() error
}

// commandCapturer runs an external program that writes a screenshot to a
// file, then reads the file back.
type commandCapturer struct {
	name    string
	args    []string
	tempDir string
}

// NewCommand returns a Capturer that runs name with args. Every argument
// equal to FilePlaceholder is replaced by the output path.
func NewCommand(name string, args ...string) (Capturer, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "capture command is empty")
	}
	tmpDir, err := os.MkdirTemp("", "phash-screen-*")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create screenshot dir")
	}
	return &commandCapturer{name: name, args: args, tempDir: tmpDir}, nil
}

// ParseCommand splits a command line on whitespace and builds a capturer
// from it.
func ParseCommand(line string) (Capturer, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "capture command is empty")
	}
	return NewCommand(fields[0], fields[1:]...)
}

func (c *commandCapturer) Capture(ctx context.Context) ([]byte, error) {
	out := filepath.Join(c.tempDir, ScreenshotFile)
	args := make([]string, len(c.args))
	for i, a := range c.args {
		if a == FilePlaceholder {
			a = out
		}
		args[i] = a
	}

	cmd := exec.CommandContext(ctx, c.name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "screenshot failed").
			WithMetadata("command", c.name).
			WithMetadata("stderr", strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "read screenshot").
			WithMetadata("command", c.name)
	}
	_ = os.Remove(out)
	return data, nil
}

// Close removes the scratch directory.
func (c *commandCapturer) Close() error {
	return os.RemoveAll(c.tempDir)
}
