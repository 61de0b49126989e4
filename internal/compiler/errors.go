package compiler

import (
	"errors"
	"fmt"
)

// Error codes for semantic errors.
const (
	ErrCodeUnknownOperator  = "E301" // operator has no negation
	ErrCodeRelationValue    = "E302" // malformed relation expression
	ErrCodeUnsupportedValue = "E303" // value shape not valid for the field
)

// CompileError is a semantic error in an otherwise well-formed term tree.
// It aborts the compile; the backend may hold partially applied operations.
type CompileError struct {
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *CompileError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// AsCompileError extracts a CompileError from err's chain.
func AsCompileError(err error) (*CompileError, bool) {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return compileErr, true
	}
	return nil, false
}

func errorf(code, field string, cause error, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Field: field, Message: fmt.Sprintf(format, args...), Err: cause}
}
