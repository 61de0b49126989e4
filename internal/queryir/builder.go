package queryir

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/roach88/searchstring/internal/term"
)

// Builder is the reference Backend. It records every operation into a
// Select that querysql can render.
//
// A Builder is one scope of a query: the root table, a Scoped group or a
// relation sub-query. Scopes share the Select they write into and the
// alias counter used for self-relations.
type Builder struct {
	meta    Metadata
	sel     *Select
	where   *[]Clause
	qualify bool
	aliases *int
}

// NewBuilder starts a query over the table of meta.
func NewBuilder(meta Metadata) *Builder {
	sel := &Select{From: meta.Table()}
	return &Builder{meta: meta, sel: sel, where: &sel.Where, aliases: new(int)}
}

// Query returns the accumulated query.
func (b *Builder) Query() *Select {
	return b.sel
}

func (b *Builder) Searchable() Metadata {
	return b.meta
}

// column qualifies field in scopes that join another table.
func (b *Builder) column(field string) string {
	if b.qualify && !strings.Contains(field, ".") {
		return b.sel.Ref() + "." + field
	}
	return field
}

func (b *Builder) add(conn Connector, pred Predicate) {
	*b.where = append(*b.where, Clause{Conn: conn, Pred: pred})
}

func (b *Builder) Filter(field string, op term.Operator, value term.Scalar, conn Connector) {
	b.add(conn, Compare{Column: b.column(field), Op: op, Value: value})
}

func (b *Builder) FilterNull(field string, conn Connector, not bool) {
	b.add(conn, Null{Column: b.column(field), Not: not})
}

func (b *Builder) FilterBetween(field string, low, high term.Scalar, conn Connector, not bool) {
	b.add(conn, Between{Column: b.column(field), Low: low, High: high, Not: not})
}

func (b *Builder) FilterIn(field string, values []term.Scalar, conn Connector, not bool) {
	b.add(conn, In{Column: b.column(field), Values: values, Not: not})
}

// RelationConstraint renders `>= 1` as EXISTS and `< 1` as NOT EXISTS;
// every other count becomes a correlated COUNT(*) comparison.
func (b *Builder) RelationConstraint(relation string, op term.Operator, count int64, conn Connector, inner Continuation) error {
	child, rel, err := b.relationScope(relation, true)
	if err != nil {
		return err
	}
	b.correlate(child, rel)
	if inner != nil {
		n := len(child.sel.Where)
		if err := inner.Apply(child); err != nil {
			return fmt.Errorf("relation %s: %w", relation, err)
		}
		// Or-joined inner clauses must not escape the correlation.
		if added := child.sel.Where[n:]; hasOr(added) {
			group := Group{Clauses: append([]Clause(nil), added...)}
			child.sel.Where = append(child.sel.Where[:n:n], Clause{Conn: ConnAnd, Pred: group})
		}
	}

	switch {
	case op == term.OpGte && count == 1:
		b.add(conn, Exists{Sub: child.sel})
	case op == term.OpLt && count == 1:
		b.add(conn, Exists{Sub: child.sel, Not: true})
	default:
		b.add(conn, CountCompare{Sub: child.sel, Op: op, Count: count})
	}
	return nil
}

func (b *Builder) Select(columns []string) {
	if len(columns) == 1 && columns[0] == "*" {
		b.sel.Columns = nil
		return
	}
	b.sel.Columns = append([]string(nil), columns...)
}

func (b *Builder) AppendComputed(names []string) {
	for _, name := range names {
		if expr, ok := b.meta.ComputedExpression(name); ok {
			b.sel.Computed = append(b.sel.Computed, Computed{Name: name, Expr: expr})
		}
	}
}

func (b *Builder) EagerLoad(relation string, inner Continuation) error {
	child, rel, err := b.relationScope(relation, false)
	if err != nil {
		return err
	}

	link := child.sel.Ref() + "." + rel.ForeignKey
	if rel.Joined() {
		child.sel.Joins = append(child.sel.Joins, viaJoin(child.sel, rel))
		link = rel.Via.Table + "." + rel.ForeignKey
	}
	if inner != nil {
		if err := inner.Apply(child); err != nil {
			return fmt.Errorf("eager load %s: %w", relation, err)
		}
	}

	b.sel.Eager = append(b.sel.Eager, EagerLoad{
		Relation:   rel,
		ParentKey:  rel.LocalKey,
		LinkColumn: link,
		Select:     child.sel,
	})
	return nil
}

func (b *Builder) EagerLoadCount(relation string) error {
	child, rel, err := b.relationScope(relation, true)
	if err != nil {
		return err
	}
	b.correlate(child, rel)
	b.sel.Counts = append(b.sel.Counts, RelationCount{Name: snake(relation) + "_count", Sub: child.sel})
	return nil
}

func (b *Builder) OrderBy(column string, dir Direction) {
	b.sel.Order = append(b.sel.Order, Order{Column: b.column(column), Dir: dir})
}

func (b *Builder) Limit(n int64) {
	b.sel.Limit = &n
}

func (b *Builder) Offset(n int64) {
	b.sel.Offset = &n
}

func (b *Builder) Scoped(conn Connector, inner Continuation) error {
	var clauses []Clause
	scope := *b
	scope.where = &clauses
	if err := inner.Apply(&scope); err != nil {
		return err
	}
	if len(clauses) > 0 {
		b.add(conn, Group{Clauses: clauses})
	}
	return nil
}

// relationScope creates the Builder for a relation's table. Correlated
// sub-queries over the parent's own table get an alias.
func (b *Builder) relationScope(name string, correlated bool) (*Builder, Relation, error) {
	rel, ok := b.meta.Relation(name)
	if !ok {
		return nil, Relation{}, fmt.Errorf("%s: unknown relation %q", b.meta.Entity(), name)
	}
	related, ok := b.meta.Related(name)
	if !ok {
		return nil, Relation{}, fmt.Errorf("%s.%s: unknown entity %q", b.meta.Entity(), name, rel.Entity)
	}

	sub := &Select{From: rel.Table}
	if correlated && (rel.Table == b.sel.From || rel.Table == b.sel.Ref()) {
		sub.Alias = fmt.Sprintf("%s_%d", rel.Table, *b.aliases)
		*b.aliases++
	}
	child := &Builder{
		meta:    related,
		sel:     sub,
		where:   &sub.Where,
		qualify: rel.Joined(),
		aliases: b.aliases,
	}
	return child, rel, nil
}

// correlate ties a relation sub-query to the current row of this scope.
func (b *Builder) correlate(child *Builder, rel Relation) {
	sub := child.sel
	parent := b.sel.Ref() + "." + rel.LocalKey
	if rel.Joined() {
		sub.Joins = append(sub.Joins, viaJoin(sub, rel))
		sub.Where = append(sub.Where, Clause{Pred: ColumnEquals{Left: parent, Right: rel.Via.Table + "." + rel.ForeignKey}})
		return
	}
	sub.Where = append(sub.Where, Clause{Pred: ColumnEquals{Left: parent, Right: sub.Ref() + "." + rel.ForeignKey}})
}

func viaJoin(sub *Select, rel Relation) Join {
	return Join{
		Table: rel.Via.Table,
		On: ColumnEquals{
			Left:  sub.Ref() + "." + rel.Via.RelatedKey,
			Right: rel.Via.Table + "." + rel.Via.Key,
		},
	}
}

func hasOr(clauses []Clause) bool {
	for _, c := range clauses {
		if c.Conn == ConnOr {
			return true
		}
	}
	return false
}

// snake converts a camel case relation name to snake case: oneSelf -> one_self.
func snake(name string) string {
	var out strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				out.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		out.WriteRune(r)
	}
	return out.String()
}
