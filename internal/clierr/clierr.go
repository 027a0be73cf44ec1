// Package clierr carries user-facing failures from commands to main, with a
// suggestion for the user and the process exit code to use.
package clierr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nvandessel/simverify/internal/constants"
	"github.com/nvandessel/simverify/internal/integrity"
	"github.com/nvandessel/simverify/internal/report"
)

// Error wraps an error with user-friendly context and an exit code.
type Error struct {
	// Err is the underlying error
	Err error

	// Message is a user-friendly description of what went wrong
	Message string

	// Suggestion is an actionable hint for the user
	Suggestion string

	// Details provides additional context (optional)
	Details string

	// Code is the process exit status; zero means constants.ExitFailure.
	Code int
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Details)
	}

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit status for err: the Code of a wrapped *Error,
// ExitInterrupted for cancellation, ExitOK for nil, and ExitFailure otherwise.
func ExitCode(err error) int {
	if err == nil {
		return constants.ExitOK
	}
	var ce *Error
	if errors.As(err, &ce) && ce.Code != 0 {
		return ce.Code
	}
	if errors.Is(err, context.Canceled) {
		return constants.ExitInterrupted
	}
	return constants.ExitFailure
}

// NewMissingResultsDir reports an absent results directory.
func NewMissingResultsDir(dir string, err error) error {
	return &Error{
		Err:        err,
		Message:    fmt.Sprintf("Error: Results directory %s not found", dir),
		Suggestion: "Run the simulator test suite first, or pass --results-dir.",
		Code:       constants.ExitFailure,
	}
}

// NewIntegrityFailure reports a results directory that failed verification.
func NewIntegrityFailure(err error) error {
	return &Error{
		Err:        err,
		Message:    "Error: Results directory failed integrity verification",
		Details:    err.Error(),
		Suggestion: "Regenerate the results and their checksums, or check integrity.keyring.",
		Code:       constants.ExitFailure,
	}
}

// NewConfigError reports invalid configuration or flags.
func NewConfigError(err error) error {
	return &Error{
		Err:        err,
		Message:    "Error: Invalid configuration",
		Details:    err.Error(),
		Suggestion: "Run 'simverify config' to see the effective settings.",
		Code:       constants.ExitFailure,
	}
}

// NewCrash reports a panic recovered at the process boundary.
func NewCrash(p any) error {
	return &Error{
		Err:     fmt.Errorf("panic: %v", p),
		Message: fmt.Sprintf("Error: unexpected failure: %v", p),
		Code:    constants.ExitFailure,
	}
}

// WrapResultsError maps results-directory precondition failures to *Error.
// Other errors are returned unchanged.
func WrapResultsError(err error, dir string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, report.ErrNoResultsDir):
		return NewMissingResultsDir(dir, err)
	case errors.Is(err, integrity.ErrIntegrity):
		return NewIntegrityFailure(err)
	}
	return err
}
