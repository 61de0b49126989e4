package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var harnessScenarios = filepath.Join("..", "harness", "testdata")

// writeScenario writes a one-search scenario against the blog fixture
// into dir.
func writeScenario(t *testing.T, dir, name, search, ids string) string {
	t.Helper()

	schema, err := filepath.Abs(blogSchema)
	require.NoError(t, err)
	fixture, err := filepath.Abs(filepath.Join("..", "store", "testdata", "blog.sql"))
	require.NoError(t, err)

	content := "name: " + name + "\n" +
		"description: generated scenario\n" +
		"schema: " + schema + "\n" +
		"fixture: " + fixture + "\n" +
		"entity: Post\n" +
		"searches:\n" +
		"  - search: \"" + search + "\"\n" +
		"    expect:\n" +
		"      ids: " + ids + "\n"

	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTestCommand_Scenarios(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{harnessScenarios, "--filter", "blog_*"})

	err := cmd.Execute()
	require.NoError(t, err, buf.String())

	output := buf.String()
	assert.Contains(t, output, "✓ blog_basics")
	assert.Contains(t, output, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestTestCommand_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{harnessScenarios, "--filter", "blog_basics"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "blog_basics", resp.Data.Scenarios[0].Name)
	assert.Equal(t, 8, resp.Data.Scenarios[0].Searches)
	assert.Equal(t, 3, resp.Data.Scenarios[0].Rejected)
}

func TestTestCommand_InvalidScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(harnessScenarios, "invalid")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "failed to load scenario")
}

func TestTestCommand_FailedExpectation(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong_ids", "stars>20 sort:id", "[1]")

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
}

func TestTestCommand_Update(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "popular", "stars>20 sort:id", "[2, 3]")

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--update"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ popular (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "popular.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), "sql: SELECT * FROM posts WHERE stars > ? ORDER BY id ASC")
	assert.Contains(t, string(golden), "ids: 2 3")

	// The regenerated golden file is now enforced.
	buf.Reset()
	cmd = NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "popular.golden"), []byte("stale\n"), 0644))
	buf.Reset()
	cmd = NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})
	require.Error(t, cmd.Execute())
	assert.Contains(t, buf.String(), "output does not match golden file")
}

func TestTestCommand_NonExistentDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/directory"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "scenarios directory not found")
}

func TestTestCommand_EmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No scenarios found.")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "blog.golden"), goldenFilePath(filepath.Join("scenarios", "blog.yaml")))
}
