package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the steps of a result for golden comparison.
//
// One block per search: the input, the canonical term tree, then either
// the error code or the SQL with one `-- <type> <value>` line per
// parameter and the primary keys returned.
func Snapshot(name string, result *Result) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario: %s\n", name)
	for _, step := range result.Steps {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "search: %s\n", step.Search)
		if step.Tree != "" {
			fmt.Fprintf(&sb, "tree: %s\n", step.Tree)
		}
		if step.Error != "" {
			fmt.Fprintf(&sb, "error: %s\n", step.Error)
			continue
		}
		fmt.Fprintf(&sb, "sql: %s\n", step.SQL)
		for _, p := range step.Params {
			fmt.Fprintf(&sb, "-- %T %v\n", p, p)
		}
		sb.WriteString("ids:")
		for _, id := range step.IDs {
			sb.WriteString(" " + id)
		}
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}
