package normalize

import (
	"github.com/roach88/searchstring/internal/queryir"
	"github.com/roach88/searchstring/internal/term"
)

// PhraseTerm expands a free-text phrase into one alternative per phrase
// column. Positional columns match `like '%phrase%'`; keyed columns
// compare with their own operator. Dotted columns become relationship
// terms.
func PhraseTerm(columns []queryir.PhraseColumn, phrase string) term.Or {
	alts := make(term.Or, 0, len(columns))
	for _, col := range columns {
		cmp := term.Compare{Op: col.Op, Value: term.String(phrase)}
		if col.Positional() {
			cmp = term.Compare{Op: term.OpLike, Value: term.String("%" + phrase + "%")}
		}
		alts = append(alts, term.ExpandPath(col.Column, cmp))
	}
	return alts
}
