package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/searchstring/internal/querysql"
	"github.com/roach88/searchstring/internal/searchable"
	"github.com/roach88/searchstring/internal/store"
)

// QueryResult is the payload of the query command.
type QueryResult struct {
	Search string      `json:"search"`
	Entity string      `json:"entity"`
	SQL    string      `json:"sql"`
	Params []any       `json:"params"`
	Count  int         `json:"count"`
	Rows   []store.Row `json:"rows"`
}

// backend is a database a search can run on.
type backend interface {
	store.Querier
	searchable.ColumnLister
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <search>",
		Short: "Run a search string against a database",
		Long: `Compile a search string and run it against SQLite (--db) or
PostgreSQL (--dsn). Eager loaded relations are attached to each row.

Entities that declare no columns take them from the database.

Example:
  searchstring query --schema ./schema --db ./blog.db 'stars>10 sort:-stars'
  searchstring query --schema ./schema --dsn postgres://localhost/blog --format json 'columns:title,comments'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runQuery(opts *RootOptions, input string, cmd *cobra.Command) error {
	s := newSession(opts, cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, dialect, closeDB, err := s.openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	schema, entity, err := s.loadEntity(searchable.WithColumnLister(db), searchable.WithLogger(s.logger))
	if err != nil {
		return err
	}
	if err := schema.Warm(ctx); err != nil {
		return s.fail(ExitCommandError, ErrCodeQueryFailed, fmt.Sprintf("listing columns: %v", err), nil)
	}
	q, err := s.compile(entity, input)
	if err != nil {
		return err
	}

	sqlc := querysql.NewSQLCompiler(dialect)
	sql, params, err := sqlc.Compile(q)
	if err != nil {
		return s.fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
	rows, err := store.Search(ctx, db, sqlc, q)
	if err != nil {
		return s.fail(ExitCommandError, ErrCodeQueryFailed, err.Error(), nil)
	}
	s.logger.Debug("search executed", "entity", entity.Entity(), "rows", len(rows))

	if params == nil {
		params = []any{}
	}
	result := QueryResult{
		Search: input,
		Entity: entity.Entity(),
		SQL:    sql,
		Params: params,
		Count:  len(rows),
		Rows:   rows,
	}
	if s.printer.JSON() {
		return s.printer.Result(result)
	}
	return outputQueryText(s.printer, result)
}

// openBackend opens PostgreSQL when --dsn is set and SQLite otherwise.
// The returned func closes the connection.
func (s *session) openBackend(ctx context.Context) (backend, querysql.Dialect, func(), error) {
	switch {
	case s.opts.DSN != "":
		pg, err := store.OpenPostgres(ctx, s.opts.DSN)
		if err != nil {
			return nil, 0, nil, s.fail(ExitCommandError, ErrCodeQueryFailed, err.Error(), nil)
		}
		s.logger.Debug("database ready", "driver", "pgx")
		return pg, querysql.Postgres, func() {
			if err := pg.Close(ctx); err != nil {
				s.logger.Error("error closing database", "error", err)
			}
		}, nil

	case s.opts.Database != "":
		if _, err := os.Stat(s.opts.Database); err != nil {
			return nil, 0, nil, s.fail(ExitCommandError, ErrCodeNotFound,
				fmt.Sprintf("database not found: %s", s.opts.Database), nil)
		}
		st, err := store.Open(s.opts.Database)
		if err != nil {
			return nil, 0, nil, s.fail(ExitCommandError, ErrCodeQueryFailed, err.Error(), nil)
		}
		s.logger.Debug("database ready", "driver", "sqlite3", "path", s.opts.Database)
		return st, querysql.SQLite, func() {
			if err := st.Close(); err != nil {
				s.logger.Error("error closing database", "error", err)
			}
		}, nil
	}
	return nil, 0, nil, s.fail(ExitCommandError, ErrCodeUsage, "one of --db or --dsn is required", nil)
}

// outputQueryText prints one JSON object per row and a row count.
func outputQueryText(p *Printer, result QueryResult) error {
	for _, row := range result.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		fmt.Fprintln(p.Out, string(data))
	}
	fmt.Fprintf(p.Out, "(%d rows)\n", result.Count)
	p.Tracef("%s", result.SQL)
	return nil
}
