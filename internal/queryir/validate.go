package queryir

import (
	"fmt"

	"github.com/roach88/searchstring/internal/term"
)

// ValidationResult lists the questionable constructs found in a query.
//
// Warnings never stop a query from running. They point at results that
// are legal but probably not what the user meant: unstable pagination,
// filters that can never match, empty groups.
type ValidationResult struct {
	// Clean is true when there are no warnings.
	Clean bool

	Warnings []string
}

// Validate inspects a query and its sub-queries. It is a pure function.
func Validate(q *Select) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validateSelect(q, "query")

	return ValidationResult{
		Clean:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateSelect(q *Select, path string) {
	if q == nil {
		v.addWarning("%s: nil query", path)
		return
	}

	if q.Limit != nil && len(q.Order) == 0 {
		v.addWarning("%s: limit without sort - page contents are not deterministic", path)
	}
	if q.Offset != nil && len(q.Order) == 0 {
		v.addWarning("%s: offset without sort - page contents are not deterministic", path)
	}
	if q.Limit != nil && *q.Limit < 0 {
		v.addWarning("%s: negative limit %d", path, *q.Limit)
	}
	if q.Offset != nil && *q.Offset < 0 {
		v.addWarning("%s: negative offset %d", path, *q.Offset)
	}

	for _, c := range q.Where {
		v.validatePredicate(c.Pred, path)
	}
	for _, c := range q.Counts {
		v.validateSelect(c.Sub, path+"."+c.Name)
	}
	for _, e := range q.Eager {
		v.validateSelect(e.Select, path+"."+e.Relation.Name)
	}
}

func (v *validator) validatePredicate(p Predicate, path string) {
	switch pred := p.(type) {
	case Compare:
		if isNull(pred.Value) {
			v.addWarning("%s: %s %s null never matches - use a null filter", path, pred.Column, pred.Op)
		}
	case Null, ColumnEquals:
		// Always well-formed.
	case Between:
		if isNull(pred.Low) || isNull(pred.High) {
			v.addWarning("%s: %s between has a null bound and never matches", path, pred.Column)
		}
	case In:
		if len(pred.Values) == 0 && !pred.Not {
			v.addWarning("%s: %s in () never matches", path, pred.Column)
		}
	case Group:
		if len(pred.Clauses) == 0 {
			v.addWarning("%s: empty group", path)
		}
		for _, c := range pred.Clauses {
			v.validatePredicate(c.Pred, path)
		}
	case Exists:
		v.validateSelect(pred.Sub, path+".exists")
	case CountCompare:
		if pred.Count < 0 {
			v.addWarning("%s: relation count compared with negative %d", path, pred.Count)
		}
		v.validateSelect(pred.Sub, path+".count")
	default:
		v.addWarning("%s: unknown predicate type %T", path, p)
	}
}

func isNull(s term.Scalar) bool {
	switch s.(type) {
	case term.Null, nil:
		return true
	}
	return false
}
