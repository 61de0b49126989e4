package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/searchstring/internal/normalize"
	"github.com/roach88/searchstring/internal/querysql"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Schema     string // CUE schema directory
	Entity     string // entity searched; optional when the schema declares one
	Database   string // SQLite database path
	DSN        string // PostgreSQL connection string
	Dialect    string // "sqlite" | "postgres"
	DateFormat string // layout dates are compared in

	// IDs generates the search id stamped on logs and JSON output.
	// If nil, defaults to UUIDv7Generator.
	IDs IDGenerator

	// Clock resolves relative dates. If nil, the system clock is used.
	Clock normalize.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the searchstring CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts, so
// callers can inject the id generator and clock.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searchstring",
		Short: "Search strings to SQL",
		Long: `Parse human-written search strings, compile them against a CUE entity
schema and run them as parameterized SQL on SQLite or PostgreSQL.

  searchstring parse 'stars>10 and (status:active or not archived)'
  searchstring compile --schema ./schema 'comments:(stars>5)>2 sort:-stars'
  searchstring query --schema ./schema --db ./blog.db 'created_at:2024 take:10'`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := querysql.ParseDialect(opts.Dialect); err != nil {
				return err
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Schema, "schema", "", "CUE schema directory")
	flags.StringVar(&opts.Entity, "entity", "", "entity to search")
	flags.StringVar(&opts.Database, "db", "", "path to SQLite database")
	flags.StringVar(&opts.DSN, "dsn", "", "PostgreSQL connection string")
	flags.StringVar(&opts.Dialect, "dialect", "sqlite", "SQL dialect (sqlite|postgres)")
	flags.StringVar(&opts.DateFormat, "date-format", normalize.DefaultDateFormat, "layout dates are compared in (Go time format)")

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
