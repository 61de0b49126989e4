package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/searchstring/internal/store"
)

// AssertionError is returned when a step does not match its expect clause.
type AssertionError struct {
	Field    string // Expect field that failed
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

// checkStep compares a step against its expect clause and returns one
// message per mismatch. A step with an unexpected error always fails.
func checkStep(step Step, expect *ExpectClause) []string {
	if expect == nil {
		expect = &ExpectClause{}
	}

	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if expect.Error != "" || step.Error != "" {
		if step.Error != expect.Error {
			add(&AssertionError{Field: "error", Expected: orNone(expect.Error), Actual: orNone(step.Message)})
		}
		return errs
	}

	if expect.SQL != "" && expect.SQL != step.SQL {
		add(&AssertionError{Field: "sql", Expected: expect.SQL, Actual: step.SQL})
	}
	if expect.Count != nil && *expect.Count != len(step.Rows) {
		add(&AssertionError{Field: "count", Expected: fmt.Sprint(*expect.Count), Actual: fmt.Sprint(len(step.Rows))})
	}
	if expect.IDs != nil {
		add(assertIDs(step.IDs, expect.IDs))
	}
	if expect.Rows != nil {
		add(assertRows(step.Rows, expect.Rows))
	}
	return errs
}

func orNone(s string) string {
	if s == "" {
		return "no error"
	}
	return s
}

func assertIDs(actual []string, expected []any) error {
	want := make([]string, len(expected))
	for i, v := range expected {
		want[i] = fmt.Sprint(v)
	}
	if !slicesEqual(want, actual) {
		return &AssertionError{
			Field:    "ids",
			Expected: "[" + strings.Join(want, " ") + "]",
			Actual:   "[" + strings.Join(actual, " ") + "]",
		}
	}
	return nil
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// assertRows matches rows in order. Each expected row is a subset of the
// returned row; extra columns are ignored.
func assertRows(actual []store.Row, expected []map[string]any) error {
	if len(actual) < len(expected) {
		return &AssertionError{
			Field:    "rows",
			Expected: fmt.Sprintf("at least %d rows", len(expected)),
			Actual:   fmt.Sprintf("%d rows", len(actual)),
		}
	}
	for i, want := range expected {
		if !matchRow(actual[i], want) {
			return &AssertionError{
				Field:    fmt.Sprintf("rows[%d]", i),
				Expected: fmt.Sprint(want),
				Actual:   fmt.Sprint(actual[i]),
			}
		}
	}
	return nil
}

func matchRow(actual map[string]any, expected map[string]any) bool {
	for key, want := range expected {
		got, exists := actual[key]
		if !exists {
			return false
		}
		if !valuesEqual(want, got) {
			return false
		}
	}
	return true
}

// valuesEqual compares a YAML value with a database value.
// Handles type coercion for SQLite values and nested eager loads.
func valuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case map[string]any:
		switch row := actual.(type) {
		case store.Row:
			return matchRow(row, exp)
		case map[string]any:
			return matchRow(row, exp)
		}
		return false
	case []any:
		rows, ok := actual.([]store.Row)
		if !ok || len(rows) != len(exp) {
			return false
		}
		for i := range exp {
			if !valuesEqual(exp[i], rows[i]) {
				return false
			}
		}
		return true
	case int:
		return intEqual(int64(exp), actual)
	case int64:
		return intEqual(exp, actual)
	case bool:
		if b, ok := actual.(bool); ok {
			return exp == b
		}
		// SQLite may store booleans as integers
		if n, ok := actual.(int64); ok {
			return exp == (n != 0)
		}
		return false
	case string:
		s, ok := actual.(string)
		return ok && exp == s
	case float64:
		if f, ok := actual.(float64); ok {
			return exp == f
		}
		return fmt.Sprint(exp) == fmt.Sprint(actual)
	}
	return reflect.DeepEqual(expected, actual)
}

func intEqual(exp int64, actual any) bool {
	switch n := actual.(type) {
	case int64:
		return exp == n
	case int32:
		return exp == int64(n)
	case int:
		return exp == int64(n)
	}
	return false
}
