package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/term"
)

// LinkColumn is the alias eager child queries select their link column
// under, so rows can be grouped back to their parent.
const LinkColumn = "__link"

// Dialect selects placeholder syntax and pagination quirks.
type Dialect int

const (
	SQLite   Dialect = iota // ? placeholders
	Postgres                // $n placeholders
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// ParseDialect parses a dialect name as accepted by the CLI.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "sqlite", "sqlite3", "":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	}
	return SQLite, fmt.Errorf("unknown dialect %q (want sqlite or postgres)", s)
}

// SQLCompiler renders queryir selects as parameterized SQL.
//
// Values are always bound as parameters, never interpolated. Identifiers
// come from entity metadata and are written as is.
type SQLCompiler struct {
	dialect Dialect
}

// NewSQLCompiler creates a compiler for dialect.
func NewSQLCompiler(dialect Dialect) *SQLCompiler {
	return &SQLCompiler{dialect: dialect}
}

// Compile renders q. Eager loads are not part of the statement; render
// them with CompileEager once the parent keys are known.
func (c *SQLCompiler) Compile(q *queryir.Select) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	w := &writer{dialect: c.dialect}
	if err := w.selectStmt(q, nil); err != nil {
		return "", nil, err
	}
	return w.sb.String(), w.params, nil
}

// CompileEager renders the child query of e restricted to rows linked to
// parentKeys. The link column is selected as LinkColumn.
func (c *SQLCompiler) CompileEager(e queryir.EagerLoad, parentKeys []any) (string, []any, error) {
	if e.Select == nil {
		return "", nil, fmt.Errorf("eager load %s has no query", e.Relation.Name)
	}
	w := &writer{dialect: c.dialect}
	if err := w.selectStmt(e.Select, &linkFilter{column: e.LinkColumn, keys: parentKeys}); err != nil {
		return "", nil, fmt.Errorf("eager load %s: %w", e.Relation.Name, err)
	}
	return w.sb.String(), w.params, nil
}

// linkFilter restricts an eager child query to the rows of its parents.
type linkFilter struct {
	column string
	keys   []any
}

// writer accumulates one statement and its parameters.
type writer struct {
	dialect Dialect
	sb      strings.Builder
	params  []any
}

func (w *writer) write(parts ...string) {
	for _, p := range parts {
		w.sb.WriteString(p)
	}
}

// bind records a parameter and returns its placeholder.
func (w *writer) bind(v any) string {
	w.params = append(w.params, v)
	if w.dialect == Postgres {
		return "$" + strconv.Itoa(len(w.params))
	}
	return "?"
}

func (w *writer) selectStmt(q *queryir.Select, link *linkFilter) error {
	w.write("SELECT ")
	var extra string
	if link != nil {
		extra = link.column + " AS " + LinkColumn
	}
	if err := w.selectList(q, extra); err != nil {
		return err
	}

	if link == nil {
		if err := w.from(q); err != nil {
			return err
		}
	} else {
		w.tables(q)
		w.write(" WHERE ")
		w.in(link.column, link.keys, false)
		if len(q.Where) > 0 {
			w.write(" AND (")
			if err := w.clauses(q.Where); err != nil {
				return err
			}
			w.write(")")
		}
	}

	if len(q.Order) > 0 {
		w.write(" ORDER BY ")
		for i, o := range q.Order {
			if i > 0 {
				w.write(", ")
			}
			w.write(o.Column, " ", strings.ToUpper(o.Dir.String()))
		}
	}

	switch {
	case q.Limit != nil:
		w.write(" LIMIT ", w.bind(*q.Limit))
	case q.Offset != nil && w.dialect == SQLite:
		// SQLite has no OFFSET without LIMIT.
		w.write(" LIMIT -1")
	}
	if q.Offset != nil {
		w.write(" OFFSET ", w.bind(*q.Offset))
	}
	return nil
}

func (w *writer) selectList(q *queryir.Select, extra string) error {
	var items []string
	switch {
	case len(q.Columns) > 0:
		items = append(items, q.Columns...)
	case len(q.Joins) > 0:
		items = append(items, q.Ref()+".*")
	default:
		items = append(items, "*")
	}
	if extra != "" {
		items = append(items, extra)
	}
	w.write(strings.Join(items, ", "))

	for _, c := range q.Computed {
		w.write(", (", c.Expr, ") AS ", c.Name)
	}
	for _, c := range q.Counts {
		w.write(", (SELECT COUNT(*)")
		if err := w.from(c.Sub); err != nil {
			return fmt.Errorf("count %s: %w", c.Name, err)
		}
		w.write(") AS ", c.Name)
	}
	return nil
}

// from writes FROM, joins and WHERE of q.
func (w *writer) from(q *queryir.Select) error {
	w.tables(q)
	if len(q.Where) == 0 {
		return nil
	}
	w.write(" WHERE ")
	return w.clauses(q.Where)
}

func (w *writer) tables(q *queryir.Select) {
	w.write(" FROM ", q.From)
	if q.Alias != "" {
		w.write(" AS ", q.Alias)
	}
	for _, j := range q.Joins {
		w.write(" INNER JOIN ", j.Table, " ON ", j.On.Left, " = ", j.On.Right)
	}
}

func (w *writer) clauses(clauses []queryir.Clause) error {
	for i, c := range clauses {
		if i > 0 {
			w.write(" ", strings.ToUpper(c.Conn.String()), " ")
		}
		if err := w.predicate(c.Pred); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) predicate(p queryir.Predicate) error {
	switch pred := p.(type) {
	case queryir.Compare:
		v, err := Param(pred.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", pred.Column, err)
		}
		w.write(pred.Column, " ", sqlOperator(pred.Op), " ", w.bind(v))
	case queryir.Null:
		if pred.Not {
			w.write(pred.Column, " IS NOT NULL")
		} else {
			w.write(pred.Column, " IS NULL")
		}
	case queryir.Between:
		low, err := Param(pred.Low)
		if err != nil {
			return fmt.Errorf("%s: %w", pred.Column, err)
		}
		high, err := Param(pred.High)
		if err != nil {
			return fmt.Errorf("%s: %w", pred.Column, err)
		}
		op := " BETWEEN "
		if pred.Not {
			op = " NOT BETWEEN "
		}
		w.write(pred.Column, op, w.bind(low), " AND ", w.bind(high))
	case queryir.In:
		values := make([]any, len(pred.Values))
		for i, s := range pred.Values {
			v, err := Param(s)
			if err != nil {
				return fmt.Errorf("%s: %w", pred.Column, err)
			}
			values[i] = v
		}
		w.in(pred.Column, values, pred.Not)
	case queryir.Group:
		w.write("(")
		if err := w.clauses(pred.Clauses); err != nil {
			return err
		}
		w.write(")")
	case queryir.ColumnEquals:
		w.write(pred.Left, " = ", pred.Right)
	case queryir.Exists:
		if pred.Not {
			w.write("NOT ")
		}
		w.write("EXISTS (SELECT 1")
		if err := w.from(pred.Sub); err != nil {
			return err
		}
		w.write(")")
	case queryir.CountCompare:
		w.write("(SELECT COUNT(*)")
		if err := w.from(pred.Sub); err != nil {
			return err
		}
		w.write(") ", sqlOperator(pred.Op), " ", w.bind(pred.Count))
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
	return nil
}

// in writes an IN list. An empty list matches nothing, an empty NOT IN
// matches everything.
func (w *writer) in(column string, values []any, not bool) {
	if len(values) == 0 {
		if not {
			w.write("1 = 1")
		} else {
			w.write("0 = 1")
		}
		return
	}
	w.write(column)
	if not {
		w.write(" NOT")
	}
	w.write(" IN (")
	for i, v := range values {
		if i > 0 {
			w.write(", ")
		}
		w.write(w.bind(v))
	}
	w.write(")")
}

func sqlOperator(op term.Operator) string {
	switch op {
	case term.OpNe:
		return "<>"
	case term.OpLike, term.OpNotLike, term.OpIn, term.OpNotIn, term.OpBetween, term.OpNotBetween:
		return strings.ToUpper(string(op))
	}
	return string(op)
}

// Param converts a scalar to a driver parameter. Decimals are bound as
// their exact text so no precision is lost to floats.
func Param(s term.Scalar) (any, error) {
	switch v := s.(type) {
	case term.String:
		return string(v), nil
	case term.Int:
		return int64(v), nil
	case term.Decimal:
		return v.String(), nil
	case term.Bool:
		return bool(v), nil
	case term.Null, nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported scalar type for SQL parameter: %T", s)
	}
}
