package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/searchstring/internal/testutil"
)

var blogSchema = filepath.Join("..", "searchable", "testdata", "blog")

func blogOptions(format string) *RootOptions {
	return &RootOptions{
		Format: format,
		Schema: blogSchema,
		Entity: "Post",
		IDs:    testutil.NewFixedIDGenerator("test-search"),
	}
}

func TestCompileCommand_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(blogOptions("text"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"stars>20 sort:id"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "SELECT * FROM posts WHERE stars > ? ORDER BY id ASC\n-- int64 20\n", buf.String())
}

func TestCompileCommand_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(blogOptions("json"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"stars>20 sort:id"})

	require.NoError(t, cmd.Execute())

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test-search", resp.SearchID)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Post", data["entity"])
	assert.Equal(t, "sqlite", data["dialect"])
	assert.Equal(t, "SELECT * FROM posts WHERE stars > ? ORDER BY id ASC", data["sql"])
	assert.Equal(t, []any{float64(20)}, data["params"])
}

func TestCompileCommand_Postgres(t *testing.T) {
	opts := blogOptions("text")
	opts.Dialect = "postgres"

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"stars>20"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "SELECT * FROM posts WHERE stars > $1")
}

func TestCompileCommand_Eager(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(blogOptions("text"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{`columns:title,"comments.title"`})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "-- eager comments\n")
}

func TestCompileCommand_OutputFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "search.sql")

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(blogOptions("text"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-o", outFile, "sort:-stars"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Wrote SQL to")

	content, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM posts ORDER BY stars DESC\n", string(content))
}

func TestCompileCommand_CompileError(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(blogOptions("json"))
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"stars>null"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E303", resp.Error.Code)
	assert.Equal(t, map[string]any{"field": "stars"}, resp.Error.Details)
}

func TestCompileCommand_MissingSchema(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"stars>20"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E002")
	assert.Contains(t, buf.String(), "--schema is required")
}

func TestCompileCommand_SchemaNotFound(t *testing.T) {
	opts := blogOptions("text")
	opts.Schema = "/nonexistent/schema"

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"stars>20"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E405")
}

func TestCompileCommand_UnknownEntity(t *testing.T) {
	opts := blogOptions("text")
	opts.Entity = "Photo"

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"stars>20"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E403")
	assert.Contains(t, buf.String(), `unknown entity "Photo"`)
}

func TestCompileCommand_EntityRequired(t *testing.T) {
	opts := blogOptions("text")
	opts.Entity = ""

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"stars>20"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--entity is required")
}

func TestCompileCommand_SingleEntity(t *testing.T) {
	dir := t.TempDir()
	schema := "package items\n\nentity: Item: {\n\ttable: \"items\"\n\tcolumns: {\n\t\tid: type: \"int\"\n\t\tname: {}\n\t}\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.cue"), []byte(schema), 0644))

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text", Schema: dir})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"sort:name"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "SELECT * FROM items ORDER BY name ASC\n", buf.String())
}

func TestEagerNames(t *testing.T) {
	assert.Nil(t, eagerNames(nil))
}
