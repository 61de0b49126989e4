package syntax

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for syntax errors.
const (
	ErrCodeUnexpectedToken    = "E201"
	ErrCodeUnterminatedString = "E202"
)

// Error is a syntax error. Parsing is all-or-nothing: any Error means no
// term tree was produced.
type Error struct {
	Code     string
	Found    Token
	Expected []TokenKind
	Input    string
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: ", e.Code)
	switch e.Code {
	case ErrCodeUnterminatedString:
		fmt.Fprintf(&b, "unterminated string at position %d", e.Found.Pos)
	default:
		fmt.Fprintf(&b, "unexpected %s at position %d", e.Found, e.Found.Pos)
	}
	if len(e.Expected) > 0 {
		names := make([]string, len(e.Expected))
		for i, k := range e.Expected {
			names[i] = k.String()
		}
		fmt.Fprintf(&b, ", expected %s", strings.Join(names, ", "))
	}
	return b.String()
}

// AsError extracts a syntax error from err's chain.
func AsError(err error) (*Error, bool) {
	var syntaxErr *Error
	if errors.As(err, &syntaxErr) {
		return syntaxErr, true
	}
	return nil, false
}
