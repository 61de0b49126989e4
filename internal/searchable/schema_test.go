package searchable

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/term"
)

func TestEntity_ResolveKey(t *testing.T) {
	post, _ := loadBlog(t).Entity("Post")

	tests := []struct {
		key  string
		want queryir.ResolvedKey
	}{
		{"columns", queryir.ResolvedKey{Kind: queryir.KeySelect, Name: "columns"}},
		{"select", queryir.ResolvedKey{Kind: queryir.KeySelect, Name: "select"}},
		{"sort", queryir.ResolvedKey{Kind: queryir.KeyOrderBy, Name: "sort"}},
		{"from", queryir.ResolvedKey{Kind: queryir.KeyOffset, Name: "from"}},
		{"take", queryir.ResolvedKey{Kind: queryir.KeyLimit, Name: "take"}},
		{"limit", queryir.ResolvedKey{Kind: queryir.KeyLimit, Name: "limit"}},
		{"keyword", queryir.ResolvedKey{Kind: queryir.KeyKeyword, Name: "keyword"}},
		{"title", queryir.ResolvedKey{Kind: queryir.KeyField, Name: "title"}},
		{"name", queryir.ResolvedKey{Kind: queryir.KeyField, Name: "name", Aliases: []string{"title", "status"}}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, post.ResolveKey(tt.key))
		})
	}
}

func TestEntity_Predicates(t *testing.T) {
	post, _ := loadBlog(t).Entity("Post")

	assert.True(t, post.IsSearchable("title"))
	assert.True(t, post.IsSearchable("comments"))
	assert.False(t, post.IsSearchable("secret"), "hidden columns are not searchable")
	assert.False(t, post.IsSearchable("nope"))
	assert.False(t, post.IsSearchable("lonely"))

	assert.True(t, post.IsRelation("comments"))
	assert.False(t, post.IsRelation("title"))

	assert.True(t, post.IsDate("created_at"))
	assert.False(t, post.IsDate("title"))
	assert.True(t, post.IsBoolean("published"))

	assert.True(t, post.IsVisible("title"))
	assert.True(t, post.IsVisible("views"))
	assert.True(t, post.IsVisible("comments"))
	assert.False(t, post.IsVisible("secret"))
	assert.False(t, post.IsVisible("nope"))

	assert.True(t, post.HasComputedValue("views"))
	expr, ok := post.ComputedExpression("views")
	assert.True(t, ok)
	assert.Equal(t, "100", expr)

	assert.Equal(t, []string{"comments", "many", "manySelf", "one", "oneSelf", "through"}, post.Relations())

	assert.Equal(t, "posts.title", post.QualifyColumn("title"))
	assert.Equal(t, "x.title", post.QualifyColumn("x.title"))
}

func TestEntity_ExplicitSearchable(t *testing.T) {
	s, err := Compile([]byte(`entity: Post: {table: "posts", columns: {id: {}, title: {}}, searchable: ["title"]}`), "s.cue")
	require.NoError(t, err)
	post, _ := s.Entity("Post")

	assert.True(t, post.IsSearchable("title"))
	assert.False(t, post.IsSearchable("id"))
}

func TestEntity_PhraseColumns(t *testing.T) {
	s := loadBlog(t)
	post, _ := s.Entity("Post")
	user, _ := s.Entity("User")

	assert.Equal(t, []queryir.PhraseColumn{{Column: "title"}}, post.PhraseColumns("lonely"))
	assert.Len(t, post.PhraseColumns("3000"), 2)
	// No numeric columns declared: numbers fall back to text columns.
	assert.Equal(t, []queryir.PhraseColumn{{Column: "name"}}, user.PhraseColumns("42"))
	assert.Equal(t, term.OpGte, post.PhraseColumns("1.5")[0].Op)
}

type stubLister struct {
	mu    sync.Mutex
	calls int
	cols  map[string][]string
	err   error
}

func (l *stubLister) Columns(_ context.Context, table string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.cols[table], nil
}

func TestEntity_ColumnsFromLister(t *testing.T) {
	lister := &stubLister{cols: map[string][]string{"tags": {"id", "label"}}}
	s, err := Compile([]byte(`entity: Tag: table: "tags"`), "tags.cue", WithColumnLister(lister))
	require.NoError(t, err)
	require.NoError(t, s.Warm(context.Background()))

	tag, _ := s.Entity("Tag")
	assert.Equal(t, []string{"id", "label"}, tag.GuardableColumns())
	assert.True(t, tag.IsSearchable("label"))
	assert.True(t, tag.IsVisible("label"))
	assert.False(t, tag.IsSearchable("other"))
	assert.Equal(t, 1, lister.calls, "columns are listed once")
}

func TestSchema_WarmError(t *testing.T) {
	lister := &stubLister{err: errors.New("no such table")}
	s, err := Compile([]byte(`entity: Tag: table: "tags"`), "tags.cue", WithColumnLister(lister))
	require.NoError(t, err)

	err = s.Warm(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list columns of tags")

	tag, _ := s.Entity("Tag")
	assert.Nil(t, tag.GuardableColumns())
}

func TestEntity_ColumnListerErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	lister := &stubLister{err: errors.New("database is locked")}
	s, err := Compile([]byte(`entity: Tag: table: "tags"`), "tags.cue",
		WithColumnLister(lister), WithLogger(logger))
	require.NoError(t, err)

	tag, _ := s.Entity("Tag")
	assert.Nil(t, tag.GuardableColumns())
	assert.False(t, tag.IsSearchable("label"))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="listing columns failed"`)
	assert.Contains(t, out, "table=tags")
	assert.Contains(t, out, `error="database is locked"`)
}

func TestColumnCache_Concurrent(t *testing.T) {
	lister := &stubLister{cols: map[string][]string{"posts": {"id"}}}
	cache := NewColumnCache(lister)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cols, err := cache.Columns(context.Background(), "posts")
			assert.NoError(t, err)
			assert.Equal(t, []string{"id"}, cols)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, lister.calls)
}
