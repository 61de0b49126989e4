package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/searchstring/internal/term"
)

// countSuffix marks a relation count column, e.g. `comments_count`.
const countSuffix = "_count"

var title = cases.Title(language.Und, cases.NoLower)

// Names flattens the value of a list-valued logical key (columns, sort)
// into names. Comma-separated strings are split; blanks are dropped.
func Names(v term.Value) []string {
	var raw []string
	switch val := v.(type) {
	case term.Compare:
		raw = []string{term.Text(val.Value)}
	case term.List:
		for _, s := range val.Values {
			raw = append(raw, term.Text(s))
		}
	case term.Scalar:
		raw = []string{term.Text(val)}
	}

	var names []string
	for _, r := range raw {
		for _, name := range strings.Split(r, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// Integer returns the integer held by a pagination value such as
// `limit:10` or {"limit": "10"}.
func Integer(v term.Value) (int64, bool) {
	switch val := v.(type) {
	case term.Compare:
		return term.Count(val.Value)
	case term.Scalar:
		return term.Count(val)
	}
	return 0, false
}

// Camel converts a snake or kebab case name to lower camel case:
// `one_self` -> `oneSelf`.
func Camel(name string) string {
	spaced := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	studly := strings.ReplaceAll(title.String(spaced), " ", "")
	if studly == "" {
		return ""
	}
	first := []rune(studly)
	return strings.ToLower(string(first[0])) + string(first[1:])
}

// CountedRelation splits a relation count column into its relation name:
// `one_self_count` -> `oneSelf`.
func CountedRelation(column string) (string, bool) {
	base, ok := strings.CutSuffix(column, countSuffix)
	if !ok || base == "" {
		return "", false
	}
	return Camel(base), true
}

// Order is one sort key.
type Order struct {
	Column string
	Desc   bool
}

// ParseSort reads sort keys; a leading `-` sorts descending.
func ParseSort(names []string) []Order {
	orders := make([]Order, 0, len(names))
	for _, name := range names {
		if col, ok := strings.CutPrefix(name, "-"); ok {
			orders = append(orders, Order{Column: col, Desc: true})
			continue
		}
		orders = append(orders, Order{Column: name})
	}
	return orders
}
