package queryir

import (
	"fmt"

	"github.com/roach88/searchstring/internal/term"
)

// KeyKind classifies a mapping key after resolution.
type KeyKind int

const (
	// KeyField is a column or relation name.
	KeyField KeyKind = iota
	// KeySelect chooses the columns to return (`columns`, `select`).
	KeySelect
	// KeyOrderBy sorts the result (`sort`, `order_by`).
	KeyOrderBy
	// KeyLimit caps the number of rows (`limit`, `take`).
	KeyLimit
	// KeyOffset skips rows (`from`, `offset`).
	KeyOffset
	// KeyKeyword routes its value through phrase expansion (`keyword`).
	KeyKeyword
)

var keyKindNames = [...]string{
	KeyField:   "field",
	KeySelect:  "select",
	KeyOrderBy: "order_by",
	KeyLimit:   "limit",
	KeyOffset:  "offset",
	KeyKeyword: "keyword",
}

func (k KeyKind) String() string {
	if k >= 0 && int(k) < len(keyKindNames) {
		return keyKindNames[k]
	}
	return fmt.Sprintf("KeyKind(%d)", int(k))
}

// ResolvedKey is the result of resolving a user-facing key.
//
// For KeyField, Name is the column or relation to search. When Aliases is
// non-empty the key names several columns, searched as an OR group.
type ResolvedKey struct {
	Kind    KeyKind
	Name    string
	Aliases []string
}

// RelationKind is the cardinality and join shape of a relation.
type RelationKind string

const (
	HasMany        RelationKind = "has_many"
	HasOne         RelationKind = "has_one"
	BelongsTo      RelationKind = "belongs_to"
	BelongsToMany  RelationKind = "belongs_to_many"
	HasManyThrough RelationKind = "has_many_through"
)

// Relation describes how a related entity joins to its parent.
//
// The parent row matches when
//
//	parent.LocalKey = related.ForeignKey          (direct relations)
//	parent.LocalKey = via.ForeignKey              (joined relations)
//
// and, for joined relations, related rows reach the intermediate table
// through `related.RelatedKey = via.Key`.
//
// Examples (posts, comments, users):
//
//	comments  has_many         LocalKey=id       ForeignKey=post_id
//	author    belongs_to       LocalKey=user_id  ForeignKey=id
//	many      belongs_to_many  LocalKey=id       ForeignKey=post_id
//	          via comment_post Key=comment_id    RelatedKey=id
type Relation struct {
	Name       string
	Kind       RelationKind
	Entity     string // related entity name
	Table      string // related table
	LocalKey   string // column on the parent
	ForeignKey string // column on the related (or via) table
	Via        *Via   // intermediate table, nil for direct relations
}

// Via is the pivot or intermediate table of a joined relation.
type Via struct {
	Table      string
	Key        string // column on the via table
	RelatedKey string // column on the related table
}

// Joined reports whether the relation reaches its related table through
// an intermediate table.
func (r Relation) Joined() bool {
	return r.Via != nil
}

// PhraseColumn is a column a free-text phrase is matched against.
// A positional column (empty Op) matches `like '%phrase%'`; otherwise the
// phrase is compared with Op. Column may be a dotted relationship path.
type PhraseColumn struct {
	Column string
	Op     term.Operator
}

// Positional reports whether the column uses the default contains match.
func (c PhraseColumn) Positional() bool {
	return c.Op == ""
}

// Metadata describes the searchable surface of one entity.
//
// Misses are not errors: the compiler skips unknown or unsearchable keys.
type Metadata interface {
	// Entity is the entity name, Table the table it is stored in.
	Entity() string
	Table() string

	// ResolveKey classifies a user-facing key.
	ResolveKey(key string) ResolvedKey

	// GuardableColumns lists the real columns of the table, in table order.
	GuardableColumns() []string

	IsSearchable(key string) bool
	IsRelation(key string) bool
	IsDate(key string) bool
	IsBoolean(key string) bool
	IsVisible(key string) bool
	HasComputedValue(key string) bool

	// Relation returns the join description of a relation and Related the
	// metadata of the entity it points to.
	Relation(name string) (Relation, bool)
	Related(name string) (Metadata, bool)

	// ComputedExpression returns the SQL expression of a computed column.
	ComputedExpression(name string) (string, bool)

	// PhraseColumns returns the columns a free-text phrase is matched
	// against. Numeric and textual phrases may map differently.
	PhraseColumns(phrase string) []PhraseColumn

	// QualifyColumn prefixes a column with the table name.
	QualifyColumn(column string) string
}
