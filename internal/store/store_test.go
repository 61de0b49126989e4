package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openBlog opens an in-memory store loaded with the blog fixture.
func openBlog(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	fixture, err := os.ReadFile("testdata/blog.sql")
	require.NoError(t, err)
	require.NoError(t, s.Exec(context.Background(), string(fixture)))
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Pragmas(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestClose_Nil(t *testing.T) {
	var s Store
	assert.NoError(t, s.Close())
}

func TestColumns(t *testing.T) {
	s := openBlog(t)
	ctx := context.Background()

	cols, err := s.Columns(ctx, "comments")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "post_id", "user_id", "title", "stars"}, cols)

	cols, err = s.Columns(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestQueryRows_Types(t *testing.T) {
	s := openBlog(t)

	rows, err := s.QueryRows(context.Background(), "SELECT id, title, published, secret FROM posts WHERE id = ?", 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{
		"id":        int64(3),
		"title":     "Go tips",
		"published": true,
		"secret":    nil,
	}, rows[0])
}

func TestQueryRows_Empty(t *testing.T) {
	s := openBlog(t)

	rows, err := s.QueryRows(context.Background(), "SELECT id FROM posts WHERE id = ?", 99)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestExec_Error(t *testing.T) {
	s := openBlog(t)
	err := s.Exec(context.Background(), "INSERT INTO nowhere VALUES (1)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec")
}
