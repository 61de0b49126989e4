package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/searchstring/internal/compiler"
	"github.com/roach88/searchstring/internal/harness"
	"github.com/roach88/searchstring/internal/normalize"
	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/querysql"
	"github.com/roach88/searchstring/internal/searchable"
	"github.com/roach88/searchstring/internal/syntax"
)

// session is the state of one CLI invocation: its search id, a logger
// stamped with it and the printer for its results.
type session struct {
	opts      *RootOptions
	id        string
	logger    *slog.Logger
	printer   *Printer
}

func newSession(opts *RootOptions, cmd *cobra.Command) *session {
	ids := opts.IDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	id := ids.NewID()

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})

	return &session{
		opts:   opts,
		id:     id,
		logger: slog.New(handler).With("search_id", id),
		printer: &Printer{
			Format:   opts.Format,
			Out:      cmd.OutOrStdout(),
			Diag:     cmd.ErrOrStderr(),
			Verbose:  opts.Verbose,
			SearchID: id,
		},
	}
}

// fail reports an error in the configured format and returns it with
// an exit code.
func (s *session) fail(exit int, code, message string, details any) error {
	_ = s.printer.Reject(code, message, details)
	return WrapExitError(exit, fmt.Sprintf("%s: %s", code, message), nil)
}

// searchFailure reports a syntax or compile error. Anything else is a
// generic failure.
func (s *session) searchFailure(err error) error {
	code := harness.ErrorCode(err)
	if code == "" {
		return s.fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
	var details any
	if syntaxErr, ok := syntax.AsError(err); ok {
		details = map[string]any{"position": syntaxErr.Found.Pos}
	}
	if compileErr, ok := compiler.AsCompileError(err); ok && compileErr.Field != "" {
		details = map[string]any{"field": compileErr.Field}
	}
	s.logger.Debug("search rejected", "code", code, "error", err)
	return s.fail(ExitFailure, code, err.Error(), details)
}

// schemaFailure reports a schema loading error, with its CUE position
// when known.
func (s *session) schemaFailure(err error) error {
	loadErr, ok := searchable.AsLoadError(err)
	if !ok {
		return s.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	var details any
	if loadErr.Pos.IsValid() {
		details = map[string]any{
			"file":   loadErr.Pos.Filename(),
			"line":   loadErr.Pos.Line(),
			"column": loadErr.Pos.Column(),
		}
	}
	exit := ExitFailure
	if loadErr.Code == searchable.ErrCodeNotFound {
		exit = ExitCommandError
	}
	return s.fail(exit, loadErr.Code, loadErr.Error(), details)
}

// loadEntity loads the schema and picks the entity to search. The entity
// flag may be omitted when the schema declares a single entity.
func (s *session) loadEntity(opts ...searchable.Option) (*searchable.Schema, *searchable.Entity, error) {
	if s.opts.Schema == "" {
		return nil, nil, s.fail(ExitCommandError, ErrCodeUsage, "--schema is required", nil)
	}
	schema, err := searchable.LoadDir(s.opts.Schema, opts...)
	if err != nil {
		return nil, nil, s.schemaFailure(err)
	}

	name := s.opts.Entity
	if name == "" {
		entities := schema.Entities()
		if len(entities) != 1 {
			return nil, nil, s.fail(ExitCommandError, ErrCodeUsage,
				fmt.Sprintf("--entity is required (schema declares %v)", entities), nil)
		}
		name = entities[0]
	}
	entity, ok := schema.Entity(name)
	if !ok {
		return nil, nil, s.fail(ExitCommandError, searchable.ErrCodeUnknownEntity,
			fmt.Sprintf("unknown entity %q", name), nil)
	}
	s.logger.Debug("schema loaded", "dir", s.opts.Schema, "entity", name, "table", entity.Table())
	return schema, entity, nil
}

func (s *session) dialect() (querysql.Dialect, error) {
	d, err := querysql.ParseDialect(s.opts.Dialect)
	if err != nil {
		return d, s.fail(ExitCommandError, ErrCodeUsage, err.Error(), nil)
	}
	return d, nil
}

func (s *session) dateParser() *normalize.DateParser {
	var opts []normalize.DateOption
	if s.opts.Clock != nil {
		opts = append(opts, normalize.WithClock(s.opts.Clock))
	}
	if s.opts.DateFormat != "" {
		opts = append(opts, normalize.WithDateFormat(s.opts.DateFormat))
	}
	return normalize.NewDateParser(opts...)
}

// compile turns a search string into a query for entity.
func (s *session) compile(entity *searchable.Entity, input string) (*queryir.Select, error) {
	b := queryir.NewBuilder(entity)
	err := compiler.CompileSearch(b, input,
		compiler.WithLogger(s.logger),
		compiler.WithDateParser(s.dateParser()),
	)
	if err != nil {
		return nil, s.searchFailure(err)
	}
	return b.Query(), nil
}
