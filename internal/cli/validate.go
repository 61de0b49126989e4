package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/searchstring/internal/searchable"
)

// EntitySummary describes one validated entity.
type EntitySummary struct {
	Name       string   `json:"name"`
	Table      string   `json:"table"`
	PrimaryKey string   `json:"primary_key"`
	Columns    []string `json:"columns"`
	Relations  []string `json:"relations"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool            `json:"valid"`
	Entities []EntitySummary `json:"entities"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate a CUE entity schema",
		Long: `Validate a CUE entity schema without running any search.

Checks the schema against its definition, resolves every relation to a
declared entity and lists what each entity exposes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaDir string, cmd *cobra.Command) error {
	s := newSession(opts, cmd)

	schema, err := searchable.LoadDir(schemaDir)
	if err != nil {
		if loadErr, ok := searchable.AsLoadError(err); ok && loadErr.Pos.IsValid() && !s.printer.JSON() {
			fmt.Fprintf(s.printer.Out, "%s:%d:%d\n",
				loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		return s.schemaFailure(err)
	}

	result := ValidationResult{Valid: true, Entities: []EntitySummary{}}
	for _, name := range schema.Entities() {
		entity, _ := schema.Entity(name)
		s.printer.Tracef("Validated entity: %s", name)
		result.Entities = append(result.Entities, EntitySummary{
			Name:       name,
			Table:      entity.Table(),
			PrimaryKey: entity.PrimaryKey(),
			Columns:    nonNil(entity.GuardableColumns()),
			Relations:  entity.Relations(),
		})
	}
	return outputValidateSuccess(s.printer, result)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// outputValidateSuccess outputs successful validation.
func outputValidateSuccess(p *Printer, result ValidationResult) error {
	if p.JSON() {
		return p.Result(result)
	}

	fmt.Fprintf(p.Out, "✓ Schema valid: %d entit%s\n", len(result.Entities), plural(len(result.Entities), "y", "ies"))
	for _, e := range result.Entities {
		fmt.Fprintf(p.Out, "  %s (%s): %d column(s), %d relation(s)\n",
			e.Name, e.Table, len(e.Columns), len(e.Relations))
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
