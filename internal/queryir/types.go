package queryir

import "github.com/roach88/searchstring/internal/term"

// Select is a backend-agnostic query over one table.
//
// Semantics:
//
//	SELECT <columns>, <computed>, <counts>
//	FROM <from> [AS <alias>] <joins>
//	WHERE <where>
//	ORDER BY <order> LIMIT <limit> OFFSET <offset>
//
// Nil Columns selects every column. Where clauses are joined left to right
// by their connectors; the connector of the first clause is ignored.
// Eager loads are separate child queries run after this one.
type Select struct {
	From     string
	Alias    string
	Columns  []string
	Computed []Computed
	Counts   []RelationCount
	Joins    []Join
	Where    []Clause
	Order    []Order
	Limit    *int64
	Offset   *int64
	Eager    []EagerLoad
}

// Ref returns the name columns of this query are qualified with.
func (s *Select) Ref() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.From
}

// Computed is a derived column, rendered as `(<expr>) AS <name>`.
type Computed struct {
	Name string
	Expr string
}

// RelationCount is a correlated count rendered as `(<sub>) AS <name>`.
type RelationCount struct {
	Name string
	Sub  *Select
}

// Join is an inner join.
type Join struct {
	Table string
	On    ColumnEquals
}

// Clause is one WHERE condition and the connector joining it to the
// previous clause.
type Clause struct {
	Conn Connector
	Pred Predicate
}

// Order is one ORDER BY key.
type Order struct {
	Column string
	Dir    Direction
}

// EagerLoad is a related query loaded for every parent row.
//
// The child query is filtered by `LinkColumn IN (<parent ParentKey values>)`
// and LinkColumn is what groups child rows back to their parent.
type EagerLoad struct {
	Relation   Relation
	ParentKey  string
	LinkColumn string
	Select     *Select
}

// Predicate is a sealed interface over WHERE conditions.
type Predicate interface {
	predicateNode() // Sealed - only types in this package implement it
}

// Compare is `column op value`.
type Compare struct {
	Column string
	Op     term.Operator
	Value  term.Scalar
}

func (Compare) predicateNode() {}

// Null is `column IS NULL`, or `IS NOT NULL` when Not is set.
type Null struct {
	Column string
	Not    bool
}

func (Null) predicateNode() {}

// Between is `column [NOT] BETWEEN low AND high`.
type Between struct {
	Column string
	Low    term.Scalar
	High   term.Scalar
	Not    bool
}

func (Between) predicateNode() {}

// In is `column [NOT] IN (values...)`. An empty In matches nothing, an
// empty NOT IN matches everything.
type In struct {
	Column string
	Values []term.Scalar
	Not    bool
}

func (In) predicateNode() {}

// Group is a parenthesized list of clauses.
type Group struct {
	Clauses []Clause
}

func (Group) predicateNode() {}

// ColumnEquals is `left = right` between two qualified columns.
type ColumnEquals struct {
	Left  string
	Right string
}

func (ColumnEquals) predicateNode() {}

// Exists is `[NOT] EXISTS (sub)`.
type Exists struct {
	Sub *Select
	Not bool
}

func (Exists) predicateNode() {}

// CountCompare is `(SELECT COUNT(*) ... sub) op count`.
type CountCompare struct {
	Sub   *Select
	Op    term.Operator
	Count int64
}

func (CountCompare) predicateNode() {}
