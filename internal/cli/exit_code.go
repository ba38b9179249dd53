package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/eventpipe/internal/core"
)

// Process exit codes.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitMissingInput     = 2
	ExitValidationFailed = 3
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func exitCodeError(code int, err error) error {
	if code <= 0 || err == nil {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

// classify attaches the exit code matching a job error.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var coded *ExitError
	if errors.As(err, &coded) {
		return err
	}

	var valErr *core.ValidationError
	switch {
	case errors.As(err, &valErr):
		return exitCodeError(ExitValidationFailed, err)
	case errors.Is(err, core.ErrFileNotFound), errors.Is(err, core.ErrTableNotFound):
		return exitCodeError(ExitMissingInput, err)
	default:
		return err
	}
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coded *ExitError
	if errors.As(err, &coded) && coded.Code > 0 {
		return coded.Code
	}
	return ExitFailure
}

// ReportError prints err and, when it maps to a known code, the user-facing
// message with its suggested action.
func ReportError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	if core.IsUserFacing(err) {
		fmt.Fprintln(w, core.FormatUserError(err))
	}
}

func isValidationError(err error) bool {
	var valErr *core.ValidationError
	return errors.As(err, &valErr)
}
