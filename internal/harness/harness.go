package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/searchstring/internal/compiler"
	"github.com/roach88/searchstring/internal/normalize"
	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/querysql"
	"github.com/roach88/searchstring/internal/searchable"
	"github.com/roach88/searchstring/internal/store"
	"github.com/roach88/searchstring/internal/syntax"
	"github.com/roach88/searchstring/internal/term"
	"github.com/roach88/searchstring/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs searches against a fixture database with a pinned clock.
type Harness struct {
	store    *store.Store
	entity   *searchable.Entity
	sql      *querysql.SQLCompiler
	compiler *compiler.Compiler
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger handed to the compiler. Logs are discarded
// by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Create the in-memory database and load the fixture
//  2. Load the CUE schema, listing columns from the database where needed
//  3. Parse, compile and execute every search
//  4. Check each step against its expect clause
//
// Syntax and compile errors are recorded on their step. Any other failure
// (fixture, schema, SQL execution) aborts the run with an error.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		sql:    querysql.NewSQLCompiler(querysql.SQLite),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()
	h.store = st

	fixture, err := os.ReadFile(scenario.Fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	if err := st.Exec(ctx, string(fixture)); err != nil {
		return nil, fmt.Errorf("failed to load fixture: %w", err)
	}

	schema, err := searchable.LoadDir(scenario.Schema, searchable.WithColumnLister(st), searchable.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	if err := schema.Warm(ctx); err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	entity, ok := schema.Entity(scenario.Entity)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", scenario.Entity)
	}
	h.entity = entity

	now, err := scenario.clock()
	if err != nil {
		return nil, fmt.Errorf("invalid clock: %w", err)
	}
	dateOpts := []normalize.DateOption{
		normalize.WithClock(testutil.NewFixedClock(now)),
		normalize.WithLocation(time.UTC),
	}
	if scenario.DateFormat != "" {
		dateOpts = append(dateOpts, normalize.WithDateFormat(scenario.DateFormat))
	}
	h.compiler = compiler.New(
		compiler.WithLogger(h.logger),
		compiler.WithDateParser(normalize.NewDateParser(dateOpts...)),
	)

	result := NewResult()
	for i, s := range scenario.Searches {
		step, err := h.search(ctx, s.Search)
		if err != nil {
			return nil, fmt.Errorf("searches[%d] %q: %w", i, s.Search, err)
		}
		result.Steps = append(result.Steps, step)

		for _, msg := range checkStep(step, s.Expect) {
			result.AddError(fmt.Sprintf("searches[%d] %q: %s", i, s.Search, msg))
		}
	}
	return result, nil
}

// search runs one search string through parse, compile and execution.
func (h *Harness) search(ctx context.Context, input string) (Step, error) {
	step := Step{Search: input}

	tree, err := syntax.Parse(input)
	if err != nil {
		return step, record(&step, err)
	}
	data, err := term.Marshal(tree)
	if err != nil {
		return step, err
	}
	step.Tree = string(data)

	b := queryir.NewBuilder(h.entity)
	if err := h.compiler.Compile(b, tree); err != nil {
		return step, record(&step, err)
	}
	q := b.Query()

	step.SQL, step.Params, err = h.sql.Compile(q)
	if err != nil {
		return step, err
	}
	step.Rows, err = store.Search(ctx, h.store, h.sql, q)
	if err != nil {
		return step, err
	}

	pk := h.entity.PrimaryKey()
	for _, row := range step.Rows {
		if v, ok := row[pk]; ok {
			step.IDs = append(step.IDs, fmt.Sprint(v))
		}
	}
	h.logger.Debug("search executed", "search", input, "rows", len(step.Rows))
	return step, nil
}

// record stores a coded error on the step. Uncoded errors are returned.
func record(step *Step, err error) error {
	code := ErrorCode(err)
	if code == "" {
		return err
	}
	step.Error = code
	step.Message = err.Error()
	return nil
}

// ErrorCode returns the code of a syntax or compile error, or "".
func ErrorCode(err error) string {
	if syntaxErr, ok := syntax.AsError(err); ok {
		return syntaxErr.Code
	}
	if compileErr, ok := compiler.AsCompileError(err); ok {
		return compileErr.Code
	}
	return ""
}
