package syntax

import "fmt"

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenAssign
	TokenComparator
	TokenIn
	TokenBetween
	TokenAnd
	TokenOr
	TokenNot
	TokenLParen
	TokenRParen
	TokenDot
	TokenComma
	TokenTilde
	TokenNull
	TokenInteger
	TokenDecimal
	TokenString
	TokenTerm
)

var tokenNames = [...]string{
	TokenEOF:        "end of input",
	TokenAssign:     "assignment",
	TokenComparator: "comparator",
	TokenIn:         "in",
	TokenBetween:    "between",
	TokenAnd:        "and",
	TokenOr:         "or",
	TokenNot:        "not",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenDot:        ".",
	TokenComma:      ",",
	TokenTilde:      "~",
	TokenNull:       "null",
	TokenInteger:    "integer",
	TokenDecimal:    "decimal",
	TokenString:     "string",
	TokenTerm:       "term",
}

func (k TokenKind) String() string {
	if k >= 0 && int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// keywords are reserved only as whole words: a keyword immediately
// followed by anything other than whitespace, a parenthesis or the end of
// input is part of a bare term.
var keywords = map[string]TokenKind{
	"in":      TokenIn,
	"between": TokenBetween,
	"and":     TokenAnd,
	"or":      TokenOr,
	"not":     TokenNot,
	"null":    TokenNull,
}

// Token is a lexical token.
//
// Value is the reduced form: assignments reduce to "=", quoted strings
// lose their quotes, keywords are lower-cased. Raw keeps the
// source text. Pos is the byte offset of the token in the NFC-normalized
// input.
type Token struct {
	Kind  TokenKind
	Value string
	Raw   string
	Pos   int
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Raw)
}

// isScalar reports whether the token can stand as a scalar value.
func (t Token) isScalar() bool {
	switch t.Kind {
	case TokenString, TokenInteger, TokenDecimal, TokenTerm:
		return true
	}
	return false
}
