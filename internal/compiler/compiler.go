package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/searchstring/internal/normalize"
	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/syntax"
	"github.com/roach88/searchstring/internal/term"
)

// Compiler walks term trees and emits operations against a query backend.
//
// A Compiler holds no per-call state and is safe for concurrent use as
// long as its DateParser's clock is.
type Compiler struct {
	logger *slog.Logger
	dates  *normalize.DateParser
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger metadata misses and date fallbacks are
// reported to at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDateParser sets the parser used for date fields.
func WithDateParser(p *normalize.DateParser) Option {
	return func(c *Compiler) {
		if p != nil {
			c.dates = p
		}
	}
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		logger: slog.Default(),
		dates:  normalize.NewDateParser(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile applies tree to b.
func Compile(b queryir.Backend, tree term.Tree, opts ...Option) error {
	return New(opts...).Compile(b, tree)
}

// CompileSearch parses a search string and applies it to b.
// Syntax errors are returned as *syntax.Error, semantic ones as
// *CompileError.
func CompileSearch(b queryir.Backend, input string, opts ...Option) error {
	tree, err := syntax.Parse(input)
	if err != nil {
		return err
	}
	return Compile(b, tree, opts...)
}

// boolean is the context a term is compiled in: the connector joining it
// to its preceding sibling and whether an odd number of nots encloses it.
type boolean struct {
	conn   queryir.Connector
	negate bool
}

var root = boolean{conn: queryir.ConnAnd}

// Compile applies tree to b.
func (c *Compiler) Compile(b queryir.Backend, tree term.Tree) error {
	return c.compileTree(b, tree, root)
}

func (c *Compiler) compileTree(b queryir.Backend, t term.Tree, ctx boolean) error {
	switch node := t.(type) {
	case nil:
		return nil
	case term.And:
		return c.compileBoolean(b, queryir.ConnAnd, node, ctx)
	case term.Or:
		if len(node) == 1 {
			// A lone alternative joins the enclosing scope.
			return c.compileTree(b, node[0], ctx)
		}
		return c.compileBoolean(b, queryir.ConnOr, node, ctx)
	case term.Not:
		return c.compileTree(b, node.Term, boolean{conn: ctx.conn, negate: !ctx.negate})
	case term.Solo:
		return c.compileSolo(b, string(node), ctx)
	case term.Field:
		return c.compileField(b, node, ctx)
	default:
		return fmt.Errorf("unsupported term %T", t)
	}
}

// compileBoolean joins items with group, flipped under negation. Items
// stay inline when they share the connector of the enclosing scope and
// are parenthesized otherwise.
func (c *Compiler) compileBoolean(b queryir.Backend, group queryir.Connector, items []term.Tree, ctx boolean) error {
	if ctx.negate {
		group = group.Flip()
	}
	if group == ctx.conn || len(items) == 1 {
		for _, item := range items {
			if err := c.compileTree(b, item, ctx); err != nil {
				return err
			}
		}
		return nil
	}

	inner := boolean{conn: group, negate: ctx.negate}
	return b.Scoped(ctx.conn, queryir.ContinuationFunc(func(sb queryir.Backend) error {
		for _, item := range items {
			if err := c.compileTree(sb, item, inner); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (c *Compiler) compileField(b queryir.Backend, f term.Field, ctx boolean) error {
	meta := b.Searchable()
	key := meta.ResolveKey(f.Key)

	switch key.Kind {
	case queryir.KeySelect:
		return c.compileColumns(b, normalize.Names(f.Value), nil, false)
	case queryir.KeyOrderBy:
		c.compileSort(b, f.Value)
		return nil
	case queryir.KeyLimit:
		if n, ok := normalize.Integer(f.Value); ok && n >= 0 {
			b.Limit(n)
		} else {
			c.skip(f.Key, "limit is not a non-negative integer")
		}
		return nil
	case queryir.KeyOffset:
		if n, ok := normalize.Integer(f.Value); ok && n >= 0 {
			b.Offset(n)
		} else {
			c.skip(f.Key, "offset is not a non-negative integer")
		}
		return nil
	case queryir.KeyKeyword:
		words := texts(f.Value)
		solos := make(term.And, len(words))
		for i, w := range words {
			solos[i] = term.Solo(w)
		}
		return c.compileTree(b, solos, ctx)
	case queryir.KeyField:
		if len(key.Aliases) > 0 {
			alts := make(term.Or, len(key.Aliases))
			for i, alias := range key.Aliases {
				alts[i] = term.F(alias, f.Value)
			}
			return c.compileTree(b, alts, ctx)
		}
		return c.compileQuery(b, key.Name, f.Value, ctx)
	default:
		return fmt.Errorf("unhandled key kind %s", key.Kind)
	}
}

func (c *Compiler) compileQuery(b queryir.Backend, name string, v term.Value, ctx boolean) error {
	if f := term.ExpandPath(name, v); f.Key != name {
		return c.compileTree(b, f, ctx)
	}

	meta := b.Searchable()
	if !meta.IsSearchable(name) {
		c.skip(name, "not searchable")
		return nil
	}
	if meta.IsRelation(name) {
		return c.compileRelation(b, name, v, ctx)
	}

	switch val := v.(type) {
	case term.Compare:
		return c.compileCompare(b, name, val, ctx)
	case term.List:
		return c.compileList(b, name, val, ctx)
	case term.Null:
		b.FilterNull(name, ctx.conn, ctx.negate)
		return nil
	case term.Scalar:
		return c.compileCompare(b, name, term.Compare{Op: term.OpEq, Value: val}, ctx)
	case term.Nested, term.Counted:
		c.skip(name, "relationship value on a column")
		return nil
	default:
		return errorf(ErrCodeUnsupportedValue, name, nil, "unsupported value %T", v)
	}
}

func (c *Compiler) compileCompare(b queryir.Backend, name string, cmp term.Compare, ctx boolean) error {
	if cmp.Op.IsRange() {
		return c.compileList(b, name, term.List{Op: cmp.Op, Values: []term.Scalar{cmp.Value}}, ctx)
	}

	op, err := normalize.NegateIf(ctx.negate, cmp.Op)
	if err != nil {
		return errorf(ErrCodeUnknownOperator, name, err, "cannot negate operator %q", cmp.Op)
	}

	if _, isNull := cmp.Value.(term.Null); isNull || cmp.Value == nil {
		switch op {
		case term.OpEq:
			b.FilterNull(name, ctx.conn, false)
		case term.OpNe:
			b.FilterNull(name, ctx.conn, true)
		default:
			return errorf(ErrCodeUnsupportedValue, name, nil, "null cannot be compared with %q", op)
		}
		return nil
	}

	var value term.Value = term.Compare{Op: op, Value: cmp.Value}
	if b.Searchable().IsDate(name) {
		widened, err := c.dates.Compare(op, cmp.Value)
		if err != nil {
			c.logger.Debug("date not recognized, comparing raw value",
				"field", name,
				"value", term.Text(cmp.Value),
				"reason", err)
		}
		value = widened
	}

	switch val := value.(type) {
	case term.Compare:
		b.Filter(name, val.Op, val.Value, ctx.conn)
		return nil
	case term.List:
		return c.emitList(b, name, val, ctx.conn)
	default:
		return errorf(ErrCodeUnsupportedValue, name, nil, "unsupported date value %T", value)
	}
}

func (c *Compiler) compileList(b queryir.Backend, name string, list term.List, ctx boolean) error {
	op := normalize.NegateRange(ctx.negate, list.Op)
	values := list.Values
	if b.Searchable().IsDate(name) {
		parsed, err := c.dates.Range(op, values)
		if err != nil {
			c.logger.Debug("date not recognized, comparing raw values",
				"field", name,
				"reason", err)
		}
		values = parsed.Values
	}
	return c.emitList(b, name, term.List{Op: op, Values: values}, ctx.conn)
}

func (c *Compiler) emitList(b queryir.Backend, name string, list term.List, conn queryir.Connector) error {
	switch list.Op {
	case term.OpIn, term.OpNotIn:
		b.FilterIn(name, list.Values, conn, list.Op == term.OpNotIn)
		return nil
	case term.OpBetween, term.OpNotBetween:
		if len(list.Values) != 2 {
			return errorf(ErrCodeUnsupportedValue, name, nil, "%s needs exactly two values, got %d", list.Op, len(list.Values))
		}
		b.FilterBetween(name, list.Values[0], list.Values[1], conn, list.Op == term.OpNotBetween)
		return nil
	default:
		return errorf(ErrCodeUnsupportedValue, name, nil, "%q is not a range operator", list.Op)
	}
}

// compileRelation turns a relation value into a count constraint and the
// sub-expression the related rows must match.
func (c *Compiler) compileRelation(b queryir.Backend, name string, v term.Value, ctx boolean) error {
	op, count := normalize.Exists.Op, normalize.Exists.Count
	var inner term.Tree

	switch val := v.(type) {
	case term.Nested:
		inner = val.Tree
	case term.Counted:
		op, count, inner = val.Op, val.Count, val.Terms
	case term.Bool:
		if !val {
			op, count = normalize.Absent.Op, normalize.Absent.Count
		}
	case term.Null:
		op, count = normalize.Absent.Op, normalize.Absent.Count
	case term.Compare:
		switch n, numeric := term.Count(val.Value); {
		case val.Op.IsRange():
			return c.compileRelation(b, name, term.List{Op: val.Op, Values: []term.Scalar{val.Value}}, ctx)
		case numeric && val.Op.IsBasic():
			op, count = val.Op, n
		case isNull(val.Value) && val.Op == term.OpEq:
			op, count = normalize.Absent.Op, normalize.Absent.Count
		case isNull(val.Value) && val.Op == term.OpNe:
			// Exists.
		case val.Op == term.OpEq && !numeric:
			inner = term.Solo(term.Text(val.Value))
		default:
			return errorf(ErrCodeRelationValue, name, nil, "%s %s is not a relation count", val.Op, term.Text(val.Value))
		}
	case term.List:
		if val.Op != term.OpIn {
			return errorf(ErrCodeRelationValue, name, nil, "%s is not supported on a relation", val.Op)
		}
		solos := make(term.And, len(val.Values))
		for i, s := range val.Values {
			solos[i] = term.Solo(term.Text(s))
		}
		inner = solos
	case term.Scalar:
		if n, ok := term.Count(val); ok {
			op, count = term.OpEq, n
		} else {
			inner = term.Solo(term.Text(val))
		}
	default:
		return errorf(ErrCodeRelationValue, name, nil, "unsupported relation value %T", v)
	}

	expr, err := normalize.RelationConstraint(ctx.negate, op, count)
	if err != nil {
		return errorf(ErrCodeUnknownOperator, name, err, "cannot negate relation operator %q", op)
	}

	var cont queryir.Continuation
	if inner != nil {
		cont = queryir.ContinuationFunc(func(rb queryir.Backend) error {
			return c.compileTree(rb, inner, root)
		})
	}
	return b.RelationConstraint(name, expr.Op, expr.Count, ctx.conn, cont)
}

func (c *Compiler) compileSolo(b queryir.Backend, s string, ctx boolean) error {
	meta := b.Searchable()

	switch {
	case !meta.IsSearchable(s):
		columns := meta.PhraseColumns(s)
		if len(columns) == 0 {
			c.skip(s, "no phrase columns")
			return nil
		}
		alts := normalize.PhraseTerm(columns, s)
		if len(alts) == 1 {
			return c.compileTree(b, alts[0], ctx)
		}
		return c.compileTree(b, alts, ctx)
	case meta.IsRelation(s):
		expr := normalize.Exists
		if ctx.negate {
			expr = normalize.Absent
		}
		return b.RelationConstraint(s, expr.Op, expr.Count, ctx.conn, nil)
	case meta.IsBoolean(s):
		b.Filter(s, term.OpEq, term.Bool(!ctx.negate), ctx.conn)
		return nil
	default:
		b.FilterNull(s, ctx.conn, !ctx.negate)
		return nil
	}
}

// compileColumns selects columns of b's entity. localKeys are columns
// the caller needs regardless of the selection; qualified prefixes
// selected columns with the table name.
func (c *Compiler) compileColumns(b queryir.Backend, names, localKeys []string, qualified bool) error {
	meta := b.Searchable()

	var (
		all      bool
		columns  []string
		computed []string
		counts   []string
		eager    = map[string][]string{}
		order    []string
	)
	addEager := func(relation, column string) {
		if _, seen := eager[relation]; !seen {
			order = append(order, relation)
			eager[relation] = nil
		}
		eager[relation] = append(eager[relation], column)
	}

	for _, name := range names {
		if name == "*" {
			all = true
			continue
		}
		if relation, column, nested := strings.Cut(name, "."); nested {
			if meta.IsRelation(relation) && meta.IsVisible(relation) && column != "" {
				addEager(relation, column)
			} else {
				c.skip(name, "not a visible relation")
			}
			continue
		}
		if relation, ok := normalize.CountedRelation(name); ok && meta.IsRelation(relation) && meta.IsVisible(relation) {
			counts = append(counts, relation)
			continue
		}
		switch {
		case !meta.IsVisible(name):
			c.skip(name, "hidden or unknown column")
		case meta.IsRelation(name):
			addEager(name, "*")
		case meta.HasComputedValue(name):
			computed = append(computed, name)
		default:
			columns = append(columns, name)
		}
	}

	relations := make([]queryir.Relation, 0, len(order))
	for _, name := range order {
		rel, ok := meta.Relation(name)
		if !ok {
			return fmt.Errorf("%s: relation %q has no join description", meta.Entity(), name)
		}
		relations = append(relations, rel)
		localKeys = append(localKeys, rel.LocalKey)
	}

	if !all {
		wanted := make(map[string]bool, len(columns)+len(localKeys))
		for _, col := range columns {
			wanted[col] = true
		}
		for _, col := range localKeys {
			wanted[col] = true
		}
		var selected []string
		for _, col := range meta.GuardableColumns() {
			if !wanted[col] {
				continue
			}
			if qualified {
				col = meta.QualifyColumn(col)
			}
			selected = append(selected, col)
		}
		if len(selected) > 0 {
			b.Select(selected)
		}
	}
	if len(computed) > 0 {
		b.AppendComputed(computed)
	}

	for _, rel := range relations {
		childColumns := eager[rel.Name]
		foreignKey := rel.ForeignKey
		joined := rel.Joined()
		err := b.EagerLoad(rel.Name, queryir.ContinuationFunc(func(cb queryir.Backend) error {
			return c.compileColumns(cb, childColumns, []string{foreignKey}, joined)
		}))
		if err != nil {
			return err
		}
	}
	for _, relation := range counts {
		if err := b.EagerLoadCount(relation); err != nil {
			return err
		}
	}
	return nil
}

// compileSort orders by the requested columns that are visible, computed
// or relation counts.
func (c *Compiler) compileSort(b queryir.Backend, v term.Value) {
	meta := b.Searchable()
	for _, o := range normalize.ParseSort(normalize.Names(v)) {
		if !sortable(meta, o.Column) {
			c.skip(o.Column, "not sortable")
			continue
		}
		dir := queryir.Asc
		if o.Desc {
			dir = queryir.Desc
		}
		b.OrderBy(o.Column, dir)
	}
}

func sortable(meta queryir.Metadata, column string) bool {
	if relation, ok := normalize.CountedRelation(column); ok && meta.IsRelation(relation) {
		return true
	}
	return meta.IsVisible(column) && !meta.IsRelation(column)
}

func (c *Compiler) skip(field, reason string) {
	c.logger.Debug("skipping term", "field", field, "reason", reason)
}

// texts returns the plain text of every scalar in v.
func texts(v term.Value) []string {
	switch val := v.(type) {
	case term.Compare:
		return []string{term.Text(val.Value)}
	case term.List:
		out := make([]string, len(val.Values))
		for i, s := range val.Values {
			out[i] = term.Text(s)
		}
		return out
	case term.Scalar:
		return []string{term.Text(val)}
	}
	return nil
}

func isNull(s term.Scalar) bool {
	_, ok := s.(term.Null)
	return ok || s == nil
}
