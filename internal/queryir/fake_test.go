package queryir

import "slices"

// fakeMeta is a table-driven Metadata for builder and validator tests.
type fakeMeta struct {
	entity    string
	table     string
	columns   []string
	computed  map[string]string
	relations map[string]Relation
	registry  map[string]*fakeMeta
}

func (m *fakeMeta) Entity() string { return m.entity }
func (m *fakeMeta) Table() string { return m.table }
func (m *fakeMeta) ResolveKey(key string) ResolvedKey { return ResolvedKey{Kind: KeyField, Name: key} }
func (m *fakeMeta) GuardableColumns() []string { return m.columns }
func (m *fakeMeta) IsSearchable(key string) bool { return m.IsVisible(key) || m.IsRelation(key) }
func (m *fakeMeta) IsDate(string) bool { return false }
func (m *fakeMeta) IsBoolean(string) bool { return false }
func (m *fakeMeta) IsVisible(key string) bool { return slices.Contains(m.columns, key) }
func (m *fakeMeta) PhraseColumns(string) []PhraseColumn { return nil }
func (m *fakeMeta) QualifyColumn(c string) string { return m.table + "." + c }

func (m *fakeMeta) IsRelation(key string) bool {
	_, ok := m.relations[key]
	return ok
}

func (m *fakeMeta) HasComputedValue(key string) bool {
	_, ok := m.computed[key]
	return ok
}

func (m *fakeMeta) ComputedExpression(name string) (string, bool) {
	expr, ok := m.computed[name]
	return expr, ok
}

func (m *fakeMeta) Relation(name string) (Relation, bool) {
	rel, ok := m.relations[name]
	return rel, ok
}

func (m *fakeMeta) Related(name string) (Metadata, bool) {
	rel, ok := m.relations[name]
	if !ok {
		return nil, false
	}
	related, ok := m.registry[rel.Entity]
	if !ok {
		return nil, false
	}
	return related, true
}

// blogMeta returns posts/comments/users with the relation shapes the
// builder has to handle: direct, pivot, through and self.
func blogMeta() *fakeMeta {
	registry := map[string]*fakeMeta{}
	post := &fakeMeta{
		entity:   "Post",
		table:    "posts",
		columns:  []string{"id", "title", "stars", "published", "created_at"},
		computed: map[string]string{"views": "100"},
		relations: map[string]Relation{
			"comments": {Name: "comments", Kind: HasMany, Entity: "Comment", Table: "comments", LocalKey: "id", ForeignKey: "post_id"},
			"oneSelf":  {Name: "oneSelf", Kind: HasOne, Entity: "Post", Table: "posts", LocalKey: "id", ForeignKey: "id"},
			"many": {
				Name: "many", Kind: BelongsToMany, Entity: "Comment", Table: "comments", LocalKey: "id", ForeignKey: "post_id",
				Via: &Via{Table: "comment_post", Key: "comment_id", RelatedKey: "id"},
			},
			"through": {
				Name: "through", Kind: HasManyThrough, Entity: "User", Table: "users", LocalKey: "id", ForeignKey: "post_id",
				Via: &Via{Table: "comments", Key: "user_id", RelatedKey: "id"},
			},
		},
		registry: registry,
	}
	comment := &fakeMeta{
		entity:  "Comment",
		table:   "comments",
		columns: []string{"id", "post_id", "user_id", "title", "stars"},
		relations: map[string]Relation{
			"author": {Name: "author", Kind: BelongsTo, Entity: "User", Table: "users", LocalKey: "user_id", ForeignKey: "id"},
		},
		registry: registry,
	}
	user := &fakeMeta{entity: "User", table: "users", columns: []string{"id", "name"}, registry: registry}
	registry["Post"], registry["Comment"], registry["User"] = post, comment, user
	return post
}
