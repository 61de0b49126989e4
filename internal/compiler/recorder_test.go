package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/term"
)

// recorder is a Backend that logs every operation as one indented line.
// Relation and group scopes log their contents one level deeper.
type recorder struct {
	meta  queryir.Metadata
	ops   *[]string
	depth int
}

func newRecorder(meta queryir.Metadata) *recorder {
	return &recorder{meta: meta, ops: &[]string{}}
}

func (r *recorder) lines() []string {
	return *r.ops
}

func (r *recorder) log(format string, args ...any) {
	*r.ops = append(*r.ops, strings.Repeat("  ", r.depth)+fmt.Sprintf(format, args...))
}

func (r *recorder) nested(meta queryir.Metadata) *recorder {
	return &recorder{meta: meta, ops: r.ops, depth: r.depth + 1}
}

func (r *recorder) Searchable() queryir.Metadata { return r.meta }

func (r *recorder) Filter(field string, op term.Operator, value term.Scalar, conn queryir.Connector) {
	r.log("%s %s %s %s", conn, field, op, show(value))
}

func (r *recorder) FilterNull(field string, conn queryir.Connector, not bool) {
	if not {
		r.log("%s %s is not null", conn, field)
		return
	}
	r.log("%s %s is null", conn, field)
}

func (r *recorder) FilterBetween(field string, low, high term.Scalar, conn queryir.Connector, not bool) {
	op := term.OpBetween
	if not {
		op = term.OpNotBetween
	}
	r.log("%s %s %s %s and %s", conn, field, op, show(low), show(high))
}

func (r *recorder) FilterIn(field string, values []term.Scalar, conn queryir.Connector, not bool) {
	op := term.OpIn
	if not {
		op = term.OpNotIn
	}
	shown := make([]string, len(values))
	for i, v := range values {
		shown[i] = show(v)
	}
	r.log("%s %s %s (%s)", conn, field, op, strings.Join(shown, ", "))
}

func (r *recorder) RelationConstraint(relation string, op term.Operator, count int64, conn queryir.Connector, inner queryir.Continuation) error {
	related, ok := r.meta.Related(relation)
	if !ok {
		return fmt.Errorf("unknown relation %q", relation)
	}
	r.log("%s has %s %s %d", conn, relation, op, count)
	if inner == nil {
		return nil
	}
	return inner.Apply(r.nested(related))
}

func (r *recorder) Select(columns []string) {
	r.log("select %s", strings.Join(columns, ", "))
}

func (r *recorder) AppendComputed(names []string) {
	r.log("computed %s", strings.Join(names, ", "))
}

func (r *recorder) EagerLoad(relation string, inner queryir.Continuation) error {
	related, ok := r.meta.Related(relation)
	if !ok {
		return fmt.Errorf("unknown relation %q", relation)
	}
	r.log("with %s", relation)
	if inner == nil {
		return nil
	}
	return inner.Apply(r.nested(related))
}

func (r *recorder) EagerLoadCount(relation string) error {
	r.log("count %s", relation)
	return nil
}

func (r *recorder) OrderBy(column string, dir queryir.Direction) {
	r.log("order %s %s", column, dir)
}

func (r *recorder) Limit(n int64)  { r.log("limit %d", n) }
func (r *recorder) Offset(n int64) { r.log("offset %d", n) }

func (r *recorder) Scoped(conn queryir.Connector, inner queryir.Continuation) error {
	r.log("%s (", conn)
	if err := inner.Apply(r.nested(r.meta)); err != nil {
		return err
	}
	r.log(")")
	return nil
}

func show(v term.Scalar) string {
	if s, ok := v.(term.String); ok {
		return fmt.Sprintf("%q", string(s))
	}
	return term.Text(v)
}
