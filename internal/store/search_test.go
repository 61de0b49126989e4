package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/searchstring/internal/compiler"
	"github.com/roach88/searchstring/internal/normalize"
	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/querysql"
	"github.com/roach88/searchstring/internal/searchable"
	"github.com/roach88/searchstring/internal/testutil"
)

func compileBlog(t *testing.T, entity, input string) *queryir.Select {
	t.Helper()
	schema, err := searchable.LoadDir("../searchable/testdata/blog")
	require.NoError(t, err)
	meta, ok := schema.Entity(entity)
	require.True(t, ok)

	dates := normalize.NewDateParser(
		normalize.WithClock(testutil.NewFixedClock(time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC))),
		normalize.WithLocation(time.UTC),
	)
	b := queryir.NewBuilder(meta)
	require.NoError(t, compiler.CompileSearch(b, input,
		compiler.WithDateParser(dates),
		compiler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))))
	return b.Query()
}

func search(t *testing.T, q Querier, input string) []Row {
	t.Helper()
	rows, err := Search(context.Background(), q, querysql.NewSQLCompiler(querysql.SQLite), compileBlog(t, "Post", input))
	require.NoError(t, err)
	return rows
}

// ids returns the id column; PostgreSQL reports INTEGER as int32.
func ids(rows []Row) []int64 {
	out := []int64{}
	for _, r := range rows {
		switch id := r["id"].(type) {
		case int64:
			out = append(out, id)
		case int32:
			out = append(out, int64(id))
		}
	}
	return out
}

func TestSearch_Posts(t *testing.T) {
	s := openBlog(t)

	tests := []struct {
		input string
		want  []int64
	}{
		{"stars>20", []int64{2, 3}},
		{"stars:1~100", []int64{1, 3}},
		{"status:draft,archived", []int64{2, 4}},
		{"not title", []int64{4}},
		{"title:null or stars>1000", []int64{2, 4}},
		{"published", []int64{1, 3}},
		{"not published", []int64{2, 4}},
		{"lonely", []int64{2}},
		{"3000", []int64{2, 3}},
		{"created_at:2020", []int64{1}},
		{"created_at>2021", []int64{3}},
		{"created_at:yesterday", []int64{3}},
		{"not comments", []int64{2, 4}},
		{"comments:(stars>5)>1", []int64{3}},
		{"comments.author.name:alice", []int64{1, 3}},
		{"through.name:bob", []int64{1, 3}},
		{"many", []int64{2}},
		{"manySelf", []int64{1}},
		{"oneSelf", []int64{1, 2, 3, 4}},
		{"secret:hunter2", []int64{1, 2, 3, 4}},
		{"from:3", []int64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(search(t, s, tt.input+" sort:id")))
		})
	}
}

func TestSearch_SortAndLimit(t *testing.T) {
	s := openBlog(t)
	assert.Equal(t, []int64{2, 3}, ids(search(t, s, "sort:-stars take:2")))
}

func TestSearch_EagerLoad(t *testing.T) {
	s := openBlog(t)
	rows := search(t, s, `columns:id,title,"comments.title" sort:id`)
	require.Len(t, rows, 4)

	assert.Equal(t, []Row{
		{"post_id": int64(1), "title": "Nice"},
		{"post_id": int64(1), "title": "Meh"},
	}, rows[0]["comments"])
	assert.Equal(t, []Row{}, rows[1]["comments"])
	assert.Len(t, rows[2]["comments"], 3)
	assert.NotContains(t, rows[0], "stars")
}

func TestSearch_NestedEagerLoad(t *testing.T) {
	s := openBlog(t)
	rows := search(t, s, `columns:"comments.author" sort:id`)
	require.Len(t, rows, 4)

	comments, ok := rows[0]["comments"].([]Row)
	require.True(t, ok)
	require.Len(t, comments, 2)
	author, ok := comments[0]["author"].(Row)
	require.True(t, ok)
	assert.Equal(t, "alice", author["name"])
	assert.NotContains(t, comments[0], querysql.LinkColumn)
}

func TestSearch_PivotEagerLoad(t *testing.T) {
	s := openBlog(t)
	rows := search(t, s, `columns:"many.title" sort:id`)

	many, ok := rows[1]["many"].([]Row)
	require.True(t, ok)
	titles := []any{}
	for _, c := range many {
		titles = append(titles, c["title"])
	}
	assert.ElementsMatch(t, []any{"Nice", "Great"}, titles)
	assert.Equal(t, []Row{}, rows[0]["many"])
}

func TestSearch_CountsAndComputed(t *testing.T) {
	s := openBlog(t)
	rows := search(t, s, "columns:id,views,comments_count sort:id")
	require.Len(t, rows, 4)

	var counts []any
	for _, r := range rows {
		counts = append(counts, r["comments_count"])
		assert.Equal(t, int64(100), r["views"])
	}
	assert.Equal(t, []any{int64(2), int64(0), int64(3), int64(0)}, counts)
}

func TestSearch_ColumnsFromDatabase(t *testing.T) {
	s := openBlog(t)
	src := []byte(`
entity: Post: {
	table: "posts"
	relations: comments: {kind: "has_many", entity: "Comment", foreign_key: "post_id"}
}
entity: Comment: table: "comments"
`)
	schema, err := searchable.Compile(src, "inline.cue", searchable.WithColumnLister(s))
	require.NoError(t, err)
	require.NoError(t, schema.Warm(context.Background()))

	post, ok := schema.Entity("Post")
	require.True(t, ok)
	assert.Contains(t, post.GuardableColumns(), "stars")

	b := queryir.NewBuilder(post)
	require.NoError(t, compiler.CompileSearch(b, "stars>20 bogus:1 comments sort:id"))
	rows, err := Search(context.Background(), s, querysql.NewSQLCompiler(querysql.SQLite), b.Query())
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(rows))
}

func TestParentKeys(t *testing.T) {
	rows := []Row{{"id": int64(1)}, {"id": nil}, {"id": int64(1)}, {"id": "2"}}
	assert.Equal(t, []any{int64(1), "2"}, parentKeys(rows, "id"))
	assert.Nil(t, parentKeys(nil, "id"))
}
