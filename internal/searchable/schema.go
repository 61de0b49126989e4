package searchable

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/term"
)

// defaultKeys maps the user-facing logical keys to their kinds.
var defaultKeys = map[string]queryir.KeyKind{
	"keyword":  queryir.KeyKeyword,
	"columns":  queryir.KeySelect,
	"select":   queryir.KeySelect,
	"sort":     queryir.KeyOrderBy,
	"order_by": queryir.KeyOrderBy,
	"from":     queryir.KeyOffset,
	"offset":   queryir.KeyOffset,
	"take":     queryir.KeyLimit,
	"limit":    queryir.KeyLimit,
}

// Option configures a Schema.
type Option func(*Schema)

// WithColumnLister reads the columns of entities that declare none from
// the database.
func WithColumnLister(l ColumnLister) Option {
	return func(s *Schema) { s.cache = NewColumnCache(l) }
}

// WithLogger sets the logger for column lookups that fail after loading.
func WithLogger(l *slog.Logger) Option {
	return func(s *Schema) { s.logger = l }
}

// Schema is the set of searchable entities declared in CUE.
type Schema struct {
	entities map[string]*Entity
	order    []string
	keys     map[string]queryir.KeyKind
	cache    *ColumnCache
	logger   *slog.Logger
}

func newSchema(opts []Option) *Schema {
	s := &Schema{
		entities: map[string]*Entity{},
		keys:     map[string]queryir.KeyKind{},
		logger:   slog.Default(),
	}
	for k, v := range defaultKeys {
		s.keys[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entity returns the metadata of an entity.
func (s *Schema) Entity(name string) (*Entity, bool) {
	e, ok := s.entities[name]
	return e, ok
}

// Entities lists entity names in declaration order.
func (s *Schema) Entities() []string {
	return slices.Clone(s.order)
}

// Warm fills the column cache for every entity that declares no columns,
// so lookup errors surface before the first search.
func (s *Schema) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	for _, name := range s.order {
		e := s.entities[name]
		if len(e.columnOrder) > 0 {
			continue
		}
		if _, err := s.cache.Columns(ctx, e.table); err != nil {
			return err
		}
	}
	return nil
}

type column struct {
	typ    string
	hidden bool
}

// Entity is the queryir.Metadata of one declared entity.
type Entity struct {
	schema *Schema

	name        string
	table       string
	primaryKey  string
	columns     map[string]column
	columnOrder []string
	searchable  []string // nil: every visible column and relation
	computed    map[string]string
	relations   map[string]queryir.Relation
	aliases     map[string][]string

	hiddenRelations map[string]bool
	numericPhrase   []queryir.PhraseColumn
	textPhrase      []queryir.PhraseColumn
}

var _ queryir.Metadata = (*Entity)(nil)

func (e *Entity) Entity() string     { return e.name }
func (e *Entity) Table() string      { return e.table }
func (e *Entity) PrimaryKey() string { return e.primaryKey }

func (e *Entity) ResolveKey(key string) queryir.ResolvedKey {
	if kind, ok := e.schema.keys[key]; ok {
		return queryir.ResolvedKey{Kind: kind, Name: key}
	}
	if targets, ok := e.aliases[key]; ok {
		if len(targets) == 1 {
			return queryir.ResolvedKey{Kind: queryir.KeyField, Name: targets[0]}
		}
		return queryir.ResolvedKey{Kind: queryir.KeyField, Name: key, Aliases: slices.Clone(targets)}
	}
	return queryir.ResolvedKey{Kind: queryir.KeyField, Name: key}
}

// GuardableColumns returns the declared columns, or the columns the
// database reports when none are declared. A failed lookup is logged and
// leaves the entity without columns; Schema.Warm surfaces it as an error.
func (e *Entity) GuardableColumns() []string {
	if len(e.columnOrder) > 0 || e.schema.cache == nil {
		return e.columnOrder
	}
	cols, err := e.schema.cache.Columns(context.Background(), e.table)
	if err != nil {
		e.schema.logger.Warn("listing columns failed", "entity", e.name, "table", e.table, "error", err)
		return nil
	}
	return cols
}

func (e *Entity) isColumn(key string) bool {
	if _, ok := e.columns[key]; ok {
		return true
	}
	return slices.Contains(e.GuardableColumns(), key)
}

func (e *Entity) IsSearchable(key string) bool {
	if e.searchable != nil {
		return slices.Contains(e.searchable, key)
	}
	if e.IsRelation(key) {
		return !e.hiddenRelations[key]
	}
	return e.isColumn(key) && !e.columns[key].hidden
}

func (e *Entity) IsRelation(key string) bool {
	_, ok := e.relations[key]
	return ok
}

func (e *Entity) IsDate(key string) bool {
	return e.columns[key].typ == "date"
}

func (e *Entity) IsBoolean(key string) bool {
	return e.columns[key].typ == "bool"
}

func (e *Entity) IsVisible(key string) bool {
	switch {
	case e.IsRelation(key):
		return !e.hiddenRelations[key]
	case e.HasComputedValue(key):
		return true
	default:
		return e.isColumn(key) && !e.columns[key].hidden
	}
}

func (e *Entity) HasComputedValue(key string) bool {
	_, ok := e.computed[key]
	return ok
}

func (e *Entity) ComputedExpression(name string) (string, bool) {
	expr, ok := e.computed[name]
	return expr, ok
}

// Relations lists relation names in sorted order.
func (e *Entity) Relations() []string {
	names := make([]string, 0, len(e.relations))
	for name := range e.relations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (e *Entity) Relation(name string) (queryir.Relation, bool) {
	rel, ok := e.relations[name]
	return rel, ok
}

func (e *Entity) Related(name string) (queryir.Metadata, bool) {
	rel, ok := e.relations[name]
	if !ok {
		return nil, false
	}
	related, ok := e.schema.entities[rel.Entity]
	if !ok {
		return nil, false
	}
	return related, true
}

// PhraseColumns picks the numeric phrase columns for numeric phrases
// when any are declared, and the text phrase columns otherwise.
func (e *Entity) PhraseColumns(phrase string) []queryir.PhraseColumn {
	if term.IsNumeric(phrase) && len(e.numericPhrase) > 0 {
		return e.numericPhrase
	}
	return e.textPhrase
}

func (e *Entity) QualifyColumn(col string) string {
	if strings.Contains(col, ".") {
		return col
	}
	return e.table + "." + col
}
