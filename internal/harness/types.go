package harness

import "github.com/roach88/searchstring/internal/store"

// Step records what one search produced.
type Step struct {
	Search string `json:"search"`

	// Tree is the canonical JSON of the parsed term tree.
	// Empty when the search failed to parse.
	Tree string `json:"tree,omitempty"`

	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`

	// IDs are the primary keys of Rows, in order.
	IDs  []string    `json:"ids,omitempty"`
	Rows []store.Row `json:"rows,omitempty"`

	// Error is the code of a syntax or compile error, Message its text.
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause matched.
	Pass bool `json:"pass"`

	// Steps holds one entry per search, in scenario order.
	Steps []Step `json:"steps"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []Step{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
