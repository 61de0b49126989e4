package queryir

import "github.com/roach88/searchstring/internal/term"

// Connector joins a clause to the clauses before it.
type Connector int

const (
	ConnAnd Connector = iota
	ConnOr
)

func (c Connector) String() string {
	if c == ConnOr {
		return "or"
	}
	return "and"
}

// Flip returns the other connector.
func (c Connector) Flip() Connector {
	if c == ConnOr {
		return ConnAnd
	}
	return ConnOr
}

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Backend accumulates the operations of one logical query scope.
//
// Filters take the connector that joins them to the preceding clause of
// the same scope. Methods that resolve relations return an error when the
// relation is unknown to the scope's Metadata.
type Backend interface {
	// Searchable returns the metadata of the scope's entity.
	Searchable() Metadata

	Filter(field string, op term.Operator, value term.Scalar, conn Connector)
	// FilterNull adds `field IS NULL`, or `IS NOT NULL` when not is set.
	FilterNull(field string, conn Connector, not bool)
	FilterBetween(field string, low, high term.Scalar, conn Connector, not bool)
	FilterIn(field string, values []term.Scalar, conn Connector, not bool)

	// RelationConstraint requires the number of related rows matching inner
	// (all related rows when inner is nil) to satisfy `op count`.
	RelationConstraint(relation string, op term.Operator, count int64, conn Connector, inner Continuation) error

	Select(columns []string)
	AppendComputed(names []string)
	// EagerLoad loads a relation alongside the result; inner shapes the
	// related query (usually its column selection).
	EagerLoad(relation string, inner Continuation) error
	// EagerLoadCount adds `<relation>_count` to the selected columns.
	EagerLoadCount(relation string) error
	OrderBy(column string, dir Direction)
	Limit(n int64)
	Offset(n int64)

	// Scoped isolates the clauses inner adds into one parenthesized group
	// joined to the scope with conn.
	Scoped(conn Connector, inner Continuation) error
}

// Continuation is deferred work applied to a Backend scope, typically the
// compilation of a relation sub-expression.
type Continuation interface {
	Apply(b Backend) error
}

// ContinuationFunc adapts a function to a Continuation.
type ContinuationFunc func(b Backend) error

func (f ContinuationFunc) Apply(b Backend) error {
	return f(b)
}
