package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/searchstring/internal/syntax"
	"github.com/roach88/searchstring/internal/term"
)

// ParseResult is the payload of the parse command.
type ParseResult struct {
	Search string          `json:"search"`
	Tree   json.RawMessage `json:"tree"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <search>",
		Short: "Parse a search string into a term tree",
		Long: `Parse a search string and print its term tree as canonical JSON.

No schema is needed: parsing is purely syntactic. The output can be fed
back to the compiler as pre-parsed terms.

Example:
  searchstring parse 'stars>10 and (status:active or not archived)'
  [{"stars":[">",10]},{"or":[{"status":["=","active"]},{"not":"archived"}]}]`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runParse(opts *RootOptions, input string, cmd *cobra.Command) error {
	s := newSession(opts, cmd)

	tree, err := syntax.Parse(input)
	if err != nil {
		return s.searchFailure(err)
	}
	data, err := term.Marshal(tree)
	if err != nil {
		return s.fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
	s.logger.Debug("search parsed", "search", input)

	if s.printer.JSON() {
		return s.printer.Result(ParseResult{Search: input, Tree: data})
	}
	fmt.Fprintln(s.printer.Out, string(data))
	return nil
}
