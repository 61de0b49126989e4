package cli

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // rejected search or failed scenario
	ExitCommandError = 2 // bad flags, missing paths, database errors
)

// Command-level error codes. Searches that fail to parse or compile
// report the syntax (E2xx), compiler (E3xx) or schema (E4xx) code instead.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeUsage       = "E002"
	ErrCodeNotFound    = "E005"
	ErrCodeQueryFailed = "E006"
	ErrCodeWriteFailed = "E007"
	ErrCodeTestFailed  = "E008"
)

// ExitError carries the process exit code out of a command. The command
// has already printed the failure by the time it returns one.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to an exit code. Errors that carry no code exit 1.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
