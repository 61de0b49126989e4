package term

import "strings"

// Operator is a comparison or range operator.
type Operator string

const (
	OpEq         Operator = "="
	OpNe         Operator = "!="
	OpGt         Operator = ">"
	OpGte        Operator = ">="
	OpLt         Operator = "<"
	OpLte        Operator = "<="
	OpLike       Operator = "like"
	OpNotLike    Operator = "not like"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not in"
	OpBetween    Operator = "between"
	OpNotBetween Operator = "not between"
)

var operators = map[string]Operator{
	"=":           OpEq,
	"!=":          OpNe,
	">":           OpGt,
	">=":          OpGte,
	"<":           OpLt,
	"<=":          OpLte,
	"like":        OpLike,
	"not like":    OpNotLike,
	"in":          OpIn,
	"not in":      OpNotIn,
	"between":     OpBetween,
	"not between": OpNotBetween,
}

// ParseOperator returns the Operator spelled by s (case-insensitive for
// the word operators).
func ParseOperator(s string) (Operator, bool) {
	op, ok := operators[strings.ToLower(strings.TrimSpace(s))]
	return op, ok
}

// IsBasic reports whether op compares a field with a single value.
func (op Operator) IsBasic() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// IsLike reports whether op is a pattern match.
func (op Operator) IsLike() bool {
	return op == OpLike || op == OpNotLike
}

// IsRange reports whether op takes a list of values.
func (op Operator) IsRange() bool {
	switch op {
	case OpIn, OpNotIn, OpBetween, OpNotBetween:
		return true
	}
	return false
}

func (op Operator) String() string {
	return string(op)
}
