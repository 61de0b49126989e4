package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, data []byte) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestPrinter_JSONCompileResult(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &Printer{Format: "json", Out: buf, SearchID: "0192-search"}

	require.NoError(t, f.Result(CompileResult{
		Search:  "stars>10",
		Entity:  "Post",
		Dialect: "sqlite",
		SQL:     "SELECT * FROM posts WHERE stars > ?",
		Params:  []any{int64(10)},
	}))

	// Comparison operators are not HTML escaped.
	assert.Contains(t, buf.String(), `"sql":"SELECT * FROM posts WHERE stars > ?"`)

	resp := decodeResponse(t, buf.Bytes())
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "0192-search", resp.SearchID)
	assert.Nil(t, resp.Error)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	assert.Equal(t, "Post", data["entity"])
	assert.Equal(t, []any{float64(10)}, data["params"])
	assert.NotContains(t, data, "eager")
}

func TestPrinter_JSONSyntaxError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &Printer{Format: "json", Out: buf}

	err := f.Reject("E201", "unexpected end of input at position 6", map[string]any{"position": 6})
	require.NoError(t, err)

	resp := decodeResponse(t, buf.Bytes())
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E201", resp.Error.Code)
	assert.Equal(t, "unexpected end of input at position 6", resp.Error.Message)
	assert.Equal(t, map[string]any{"position": float64(6)}, resp.Error.Details)
	assert.Empty(t, resp.SearchID)
}

func TestPrinter_Text(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		write   func(f *Printer) error
		want    []string
		absent  []string
	}{
		{
			name:  "success",
			write: func(f *Printer) error { return f.Result("Schema valid: 3 entities") },
			want:  []string{"Schema valid: 3 entities"},
		},
		{
			name: "error",
			write: func(f *Printer) error {
				return f.Reject("E302", "comments: > foo is not a relation count", map[string]any{"field": "comments"})
			},
			want:   []string{"Error [E302]: comments: > foo is not a relation count"},
			absent: []string{"Details:"},
		},
		{
			name:    "error with details",
			verbose: true,
			write: func(f *Printer) error {
				return f.Reject("E402", "entity.Post.table: incomplete value", map[string]any{"line": 4})
			},
			want: []string{"Error [E402]", "Details: map[line:4]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &Printer{Format: "text", Out: buf, Verbose: tt.verbose}
			require.NoError(t, tt.write(f))
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestPrinter_TraceGoesToDiag(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	f := &Printer{Format: "json", Out: out, Diag: diag, Verbose: true}

	f.Tracef("compiled %s", "SELECT 1")

	assert.Empty(t, out.String())
	assert.Equal(t, "compiled SELECT 1\n", diag.String())
}

func TestPrinter_TraceQuiet(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &Printer{Format: "text", Out: buf}

	f.Tracef("compiled %s", "SELECT 1")
	assert.Empty(t, buf.String())
	assert.Same(t, buf, f.diag())
}
