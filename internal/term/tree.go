package term

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Tree is a sealed interface over the nodes of a term tree.
// Only Solo, And, Or, Not and Field implement it.
type Tree interface {
	treeNode() // Sealed - only these types implement it
}

// Solo is a bare search term such as `lonely` or `"This is great"`.
type Solo string

func (Solo) treeNode() {}

// And is an ordered sequence of terms that must all hold.
// An empty And matches everything.
type And []Tree

func (And) treeNode() {}

// Or is an ordered sequence of terms of which at least one must hold.
type Or []Tree

func (Or) treeNode() {}

// Not negates exactly one child term.
type Not struct {
	Term Tree
}

func (Not) treeNode() {}

// Field binds a value to a field, relation or logical key.
// A mapping with several keys is represented as an And of Fields.
type Field struct {
	Key   string
	Value Value
}

func (Field) treeNode() {}

// Value is a sealed interface over the right-hand side of a Field.
type Value interface {
	termValue() // Sealed - only these types implement it
}

// Scalar is a leaf value: String, Int, Decimal, Bool or Null.
type Scalar interface {
	Value
	scalar()
}

// String is a quoted or bare string value.
type String string

func (String) termValue() {}
func (String) scalar()    {}

// Int is an integer literal. Always int64.
type Int int64

func (Int) termValue() {}
func (Int) scalar()    {}

// Bool is a boolean value. The search string grammar never produces one;
// it only arrives through pre-parsed JSON terms and boolean solo terms.
type Bool bool

func (Bool) termValue() {}
func (Bool) scalar()    {}

// Null is the `null` literal.
type Null struct{}

func (Null) termValue() {}
func (Null) scalar()    {}

// Decimal is an exact decimal literal. There are no floats in a term tree.
type Decimal struct {
	d *apd.Decimal
}

func (Decimal) termValue() {}
func (Decimal) scalar()    {}

// ParseDecimal parses s as an exact decimal.
func ParseDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return Decimal{d: d}, nil
}

// MustDecimal is ParseDecimal for literals known to be valid.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the decimal in plain (non-exponent) notation.
func (d Decimal) String() string {
	if d.d == nil {
		return "0"
	}
	return d.d.Text('f')
}

// Int64 returns the decimal as an integer when it has no fractional part.
func (d Decimal) Int64() (int64, bool) {
	if d.d == nil {
		return 0, true
	}
	n, err := d.d.Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}

// Compare is a single-value comparison, `[op, value]`.
type Compare struct {
	Op    Operator
	Value Scalar
}

func (Compare) termValue() {}

// List is a range comparison, `[in|between, [v1, v2, ...]]`.
// Values keep the order the user wrote them in.
type List struct {
	Op     Operator
	Values []Scalar
}

func (List) termValue() {}

// Nested is a relationship sub-expression evaluated in the related scope.
type Nested struct {
	Tree Tree
}

func (Nested) termValue() {}

// Counted constrains how many related rows match Terms, `[[op, count], terms...]`.
type Counted struct {
	Op    Operator
	Count int64
	Terms Tree
}

func (Counted) termValue() {}

// F is a shorthand for constructing a Field.
// Example: F("stars", Compare{Op: OpGt, Value: Int(10)})
func F(key string, value Value) Field {
	return Field{Key: key, Value: value}
}

// Text returns the plain-text form of a scalar, as it would be bound
// to a query parameter.
func Text(s Scalar) string {
	switch v := s.(type) {
	case String:
		return string(v)
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case Decimal:
		return v.String()
	case Bool:
		if v {
			return "true"
		}
		return "false"
	case Null, nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsNumeric reports whether s spells a number, the way a search phrase
// is classified before picking phrase columns.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	d, _, err := apd.NewFromString(s)
	return err == nil && d.Form == apd.Finite
}

// Count returns the integer held by a numeric scalar.
func Count(s Scalar) (int64, bool) {
	switch v := s.(type) {
	case Int:
		return int64(v), true
	case Decimal:
		return v.Int64()
	case String:
		if !IsNumeric(string(v)) {
			return 0, false
		}
		d, err := ParseDecimal(string(v))
		if err != nil {
			return 0, false
		}
		return d.Int64()
	default:
		return 0, false
	}
}
