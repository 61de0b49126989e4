package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileResult is the payload of the compile command.
type CompileResult struct {
	Search  string   `json:"search"`
	Entity  string   `json:"entity"`
	Dialect string   `json:"dialect"`
	SQL     string   `json:"sql"`
	Params  []any    `json:"params"`
	Eager   []string `json:"eager,omitempty"` // relations loaded by follow-up queries
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <search>",
		Short: "Compile a search string to SQL",
		Long: `Compile a search string against an entity of the CUE schema and print
the parameterized SQL statement with its parameters.

Unknown or hidden fields are skipped (see --verbose). Eager loaded
relations run as separate queries once the parent rows are known, so
only their names are listed.

Example:
  searchstring compile --schema ./schema --entity Post 'comments:(stars>5)>2'
  searchstring compile --schema ./schema --dialect postgres 'status:a,b take:5'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the SQL to a file")

	return cmd
}

func runCompile(opts *CompileOptions, input string, cmd *cobra.Command) error {
	s := newSession(opts.RootOptions, cmd)

	dialect, err := s.dialect()
	if err != nil {
		return err
	}
	_, entity, err := s.loadEntity()
	if err != nil {
		return err
	}
	q, err := s.compile(entity, input)
	if err != nil {
		return err
	}

	sql, params, err := querysql.NewSQLCompiler(dialect).Compile(q)
	if err != nil {
		return s.fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
	if params == nil {
		params = []any{}
	}
	result := CompileResult{
		Search:  input,
		Entity:  entity.Entity(),
		Dialect: dialect.String(),
		SQL:     sql,
		Params:  params,
		Eager:   eagerNames(q.Eager),
	}
	s.logger.Debug("search compiled", "entity", result.Entity, "params", len(params))

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(sql+"\n"), 0644); err != nil {
			return s.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if s.printer.JSON() {
		return s.printer.Result(result)
	}
	writeStatement(s.printer.Out, result.SQL, result.Params)
	for _, name := range result.Eager {
		fmt.Fprintf(s.printer.Out, "-- eager %s\n", name)
	}
	if opts.Output != "" {
		fmt.Fprintf(s.printer.Out, "Wrote SQL to %s\n", opts.Output)
	}
	return nil
}

// writeStatement prints sql followed by one `-- <type> <value>` line per
// parameter.
func writeStatement(w io.Writer, sql string, params []any) {
	fmt.Fprintln(w, sql)
	for _, p := range params {
		fmt.Fprintf(w, "-- %T %v\n", p, p)
	}
}

// eagerNames lists eager loaded relations, nested ones as dotted paths.
func eagerNames(loads []queryir.EagerLoad) []string {
	var names []string
	for _, e := range loads {
		names = append(names, e.Relation.Name)
		if e.Select == nil {
			continue
		}
		for _, child := range eagerNames(e.Select.Eager) {
			names = append(names, e.Relation.Name+"."+child)
		}
	}
	return names
}
