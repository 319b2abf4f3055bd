package main

import (
	"errors"
	"fmt"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
)

const usageLine = "usage: phash <file1> [file2]"

var errUsage = errors.New(usageLine)

func formatError(err error) string {
	if errors.Is(err, errUsage) {
		return usageLine
	}
	return "Error: " + err.Error()
}

// openError reports a failed open or decode as "cannot open image: <cause>".
func openError(err error) error {
	return fmt.Errorf("cannot open image: %s", rootCause(err))
}

// rootCause returns the message of the first non-AppError in err's chain, or
// the innermost AppError message when the chain holds nothing else.
func rootCause(err error) string {
	msg := err.Error()
	for err != nil {
		ae, ok := err.(*apperrors.AppError)
		if !ok {
			return err.Error()
		}
		msg = ae.Message
		err = ae.Cause
	}
	return msg
}
