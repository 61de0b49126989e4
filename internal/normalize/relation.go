package normalize

import "github.com/roach88/searchstring/internal/term"

// RelationExpr constrains how many related rows must exist.
type RelationExpr struct {
	Op    term.Operator
	Count int64
}

// Exists is the canonical "at least one related row" constraint.
var Exists = RelationExpr{Op: term.OpGte, Count: 1}

// Absent is the canonical "no related row" constraint.
var Absent = RelationExpr{Op: term.OpLt, Count: 1}

// CanonicalRelation folds the count comparisons that only test for
// existence into Exists or Absent:
//
//	> 0, != 0, >= 1  ->  >= 1
//	<= 0, = 0, < 1   ->  < 1
func CanonicalRelation(op term.Operator, count int64) RelationExpr {
	switch {
	case op == term.OpGt && count == 0,
		op == term.OpNe && count == 0,
		op == term.OpGte && count == 1:
		return Exists
	case op == term.OpLte && count == 0,
		op == term.OpEq && count == 0,
		op == term.OpLt && count == 1:
		return Absent
	}
	return RelationExpr{Op: op, Count: count}
}

// RelationConstraint negates op when asked, then canonicalizes.
func RelationConstraint(negate bool, op term.Operator, count int64) (RelationExpr, error) {
	op, err := NegateIf(negate, op)
	if err != nil {
		return RelationExpr{}, err
	}
	return CanonicalRelation(op, count), nil
}
