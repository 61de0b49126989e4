package normalize

import (
	"errors"
	"fmt"

	"github.com/roach88/searchstring/internal/term"
)

// ErrUnknownOperator is returned when an operator has no negation.
var ErrUnknownOperator = errors.New("unknown operator")

var negations = map[term.Operator]term.Operator{
	term.OpEq:      term.OpNe,
	term.OpNe:      term.OpEq,
	term.OpGt:      term.OpLte,
	term.OpGte:     term.OpLt,
	term.OpLt:      term.OpGte,
	term.OpLte:     term.OpGt,
	term.OpLike:    term.OpNotLike,
	term.OpNotLike: term.OpLike,
}

// Negate returns the operator that matches exactly the rows op does not.
func Negate(op term.Operator) (term.Operator, error) {
	if neg, ok := negations[op]; ok {
		return neg, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownOperator, op)
}

// NegateIf returns Negate(op) when negate is set and op otherwise.
func NegateIf(negate bool, op term.Operator) (term.Operator, error) {
	if !negate {
		return op, nil
	}
	return Negate(op)
}

// NegateRange flips in/between to their negated forms and back.
func NegateRange(negate bool, op term.Operator) term.Operator {
	if !negate {
		return op
	}
	switch op {
	case term.OpIn:
		return term.OpNotIn
	case term.OpNotIn:
		return term.OpIn
	case term.OpBetween:
		return term.OpNotBetween
	case term.OpNotBetween:
		return term.OpBetween
	}
	return op
}
