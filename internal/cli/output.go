package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Response is the JSON envelope every command prints with --format json.
// SearchID matches the search_id attribute on the invocation's log lines.
type Response struct {
	Status   string   `json:"status"`
	Data     any      `json:"data,omitempty"`
	Error    *Problem `json:"error,omitempty"`
	SearchID string   `json:"trace_id,omitempty"`
}

// Problem describes a rejected search or a failed command. Code is one
// of the E-codes; Details holds the position, field or schema location.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Printer writes command results to Out, either as a Response or as text.
// Verbose lines (the rendered SQL, validated entities) go to Diag so they
// never mix with JSON on Out.
type Printer struct {
	Format   string
	Out      io.Writer
	Diag     io.Writer // defaults to Out
	Verbose  bool
	SearchID string
}

// JSON reports whether results are printed as a Response.
func (p *Printer) JSON() bool {
	return p.Format == "json"
}

// Result prints data, which in text mode is printed with fmt.
func (p *Printer) Result(data any) error {
	if !p.JSON() {
		fmt.Fprintln(p.Out, data)
		return nil
	}
	return p.encode(Response{Status: statusOK, Data: data, SearchID: p.SearchID})
}

// Reject prints a failure under its E-code. Text mode shows details only
// when verbose.
func (p *Printer) Reject(code, message string, details any) error {
	if p.JSON() {
		return p.encode(Response{
			Status:   statusError,
			Error:    &Problem{Code: code, Message: message, Details: details},
			SearchID: p.SearchID,
		})
	}
	fmt.Fprintf(p.Out, "Error [%s]: %s\n", code, message)
	if p.Verbose && details != nil {
		fmt.Fprintf(p.Out, "Details: %v\n", details)
	}
	return nil
}

// Tracef writes a verbose line to Diag.
func (p *Printer) Tracef(format string, args ...any) {
	if p.Verbose {
		fmt.Fprintf(p.diag(), format+"\n", args...)
	}
}

func (p *Printer) diag() io.Writer {
	if p.Diag == nil {
		return p.Out
	}
	return p.Diag
}

// encode keeps comparison operators in SQL unescaped.
func (p *Printer) encode(resp Response) error {
	enc := json.NewEncoder(p.Out)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}
