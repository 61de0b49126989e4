package syntax

import (
	"slices"

	"github.com/roach88/searchstring/internal/term"
)

// Parser is a backtracking LL(k) recursive descent parser over a token
// stream. Alternatives are tried in a fixed order; the first one that
// matches wins. On failure the parser reports the token at the furthest
// position any alternative reached, with the kinds expected there.
type Parser struct {
	tokens []Token
	pos    int
	input  string

	furthest int
	expected []TokenKind
}

// Parse turns a search string into a term tree.
// Blank input yields an empty And, which matches everything.
func Parse(input string) (term.Tree, error) {
	node, err := ParseNode(input)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return term.And{}, nil
	}
	return Reduce(node)
}

// ParseNode parses a search string into a raw parse tree. It returns a
// nil Node for blank input.
func ParseNode(input string) (Node, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			break
		}
	}
	if len(tokens) == 1 {
		return nil, nil
	}

	p := &Parser{tokens: tokens, input: l.Input()}
	node, ok := p.parseExpr()
	if ok && p.current().Kind == TokenEOF {
		return node, nil
	}
	p.fail(TokenEOF)
	return nil, p.error()
}

func (p *Parser) current() Token {
	return p.tokens[p.pos]
}

// accept consumes the current token if it is one of kinds.
func (p *Parser) accept(kinds ...TokenKind) (Token, bool) {
	tok := p.current()
	if slices.Contains(kinds, tok.Kind) {
		p.pos++
		return tok, true
	}
	p.fail(kinds...)
	return Token{}, false
}

// acceptScalar consumes a scalar token, or null when allowNull is set.
func (p *Parser) acceptScalar(allowNull bool) (Token, bool) {
	kinds := []TokenKind{TokenString, TokenInteger, TokenDecimal, TokenTerm}
	if allowNull {
		kinds = append(kinds, TokenNull)
	}
	return p.accept(kinds...)
}

// fail records that kinds were expected at the current position.
func (p *Parser) fail(kinds ...TokenKind) {
	switch {
	case p.pos > p.furthest:
		p.furthest = p.pos
		p.expected = nil
	case p.pos < p.furthest:
		return
	}
	for _, k := range kinds {
		if !slices.Contains(p.expected, k) {
			p.expected = append(p.expected, k)
		}
	}
}

func (p *Parser) error() *Error {
	expected := slices.Clone(p.expected)
	slices.Sort(expected)
	return &Error{
		Code:     ErrCodeUnexpectedToken,
		Found:    p.tokens[p.furthest],
		Expected: expected,
		Input:    p.input,
	}
}

// attempt runs fn and rewinds the token position when it does not match.
func attempt[T any](p *Parser, fn func() (T, bool)) (T, bool) {
	mark := p.pos
	v, ok := fn()
	if !ok {
		p.pos = mark
	}
	return v, ok
}

// Expr := OrExpr
func (p *Parser) parseExpr() (Node, bool) {
	return p.parseOr()
}

// OrExpr := AndExpr ( OR AndExpr )*
func (p *Parser) parseOr() (Node, bool) {
	first, ok := p.parseAnd()
	if !ok {
		return nil, false
	}
	children := []Node{first}
	for {
		next, ok := attempt(p, func() (Node, bool) {
			if _, ok := p.accept(TokenOr); !ok {
				return nil, false
			}
			return p.parseAnd()
		})
		if !ok {
			break
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, true
	}
	return OrNode{Children: children}, true
}

// AndExpr := Terminal ( AND? Terminal )*
func (p *Parser) parseAnd() (Node, bool) {
	first, ok := p.parseTerminal()
	if !ok {
		return nil, false
	}
	children := []Node{first}
	for {
		next, ok := attempt(p, func() (Node, bool) {
			if p.current().Kind == TokenAnd {
				p.pos++
			}
			return p.parseTerminal()
		})
		if !ok {
			break
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, true
	}
	return AndNode{Children: children}, true
}

// Terminal := '(' Expr ')' | NOT Terminal | NestedRelationshipTerm
//
//	| RelationshipTerm | ListTerm | BetweenTerm | QueryTerm | SoloTerm
//
// List and between are tried before query so that `foo:1,2` and `foo:1~2`
// are not cut short at `foo:1`.
func (p *Parser) parseTerminal() (Node, bool) {
	alternatives := []func() (Node, bool){
		p.parseGroup,
		p.parseNot,
		p.parseNestedRelationship,
		p.parseRelationship,
		p.parseList,
		p.parseBetween,
		p.parseQuery,
		p.parseSolo,
	}
	for _, alt := range alternatives {
		if node, ok := attempt(p, alt); ok {
			return node, true
		}
	}
	return nil, false
}

func (p *Parser) parseGroup() (Node, bool) {
	if _, ok := p.accept(TokenLParen); !ok {
		return nil, false
	}
	node, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	if _, ok := p.accept(TokenRParen); !ok {
		return nil, false
	}
	return node, true
}

func (p *Parser) parseNot() (Node, bool) {
	if _, ok := p.accept(TokenNot); !ok {
		return nil, false
	}
	child, ok := p.parseTerminal()
	if !ok {
		return nil, false
	}
	return NotNode{Child: child}, true
}

// parsePath reads IDENT ('.' IDENT)*.
func (p *Parser) parsePath() ([]Token, bool) {
	first, ok := p.accept(TokenTerm)
	if !ok {
		return nil, false
	}
	path := []Token{first}
	for {
		seg, ok := attempt(p, func() (Token, bool) {
			if _, ok := p.accept(TokenDot); !ok {
				return Token{}, false
			}
			return p.accept(TokenTerm, TokenInteger)
		})
		if !ok {
			return path, true
		}
		path = append(path, seg)
	}
}

// NestedRelationshipTerm := Path ASSIGN '(' Expr ')' ( (ASSIGN|COMPARATOR) INTEGER )?
func (p *Parser) parseNestedRelationship() (Node, bool) {
	path, ok := p.parsePath()
	if !ok {
		return nil, false
	}
	if _, ok := p.accept(TokenAssign); !ok {
		return nil, false
	}
	if _, ok := p.accept(TokenLParen); !ok {
		return nil, false
	}
	expr, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	if _, ok := p.accept(TokenRParen); !ok {
		return nil, false
	}

	node := NestedRelationshipNode{Path: path, Terms: NestedTerms{Expr: expr}}
	count, ok := attempt(p, func() ([2]Token, bool) {
		op, ok := p.accept(TokenAssign, TokenComparator)
		if !ok {
			return [2]Token{}, false
		}
		n, ok := p.accept(TokenInteger)
		return [2]Token{op, n}, ok
	})
	if ok {
		node.CountOp, node.Count = &count[0], &count[1]
	}
	return node, true
}

// RelationshipTerm := DottedIdent ( (ASSIGN|COMPARATOR) (Scalar|NULL) )?
func (p *Parser) parseRelationship() (Node, bool) {
	path, ok := p.parsePath()
	if !ok {
		return nil, false
	}
	if len(path) < 2 {
		p.fail(TokenDot)
		return nil, false
	}

	node := RelationshipNode{Path: path}
	cmp, ok := attempt(p, func() ([2]Token, bool) {
		op, ok := p.accept(TokenAssign, TokenComparator)
		if !ok {
			return [2]Token{}, false
		}
		v, ok := p.acceptScalar(true)
		return [2]Token{op, v}, ok
	})
	if ok {
		node.Op, node.Value = &cmp[0], &cmp[1]
	}
	return node, true
}

// ListTerm := IDENT IN '(' ScalarList ')' | IDENT ASSIGN Scalar (',' Scalar)+
func (p *Parser) parseList() (Node, bool) {
	key, ok := p.accept(TokenTerm)
	if !ok {
		return nil, false
	}

	if values, ok := attempt(p, func() (ScalarList, bool) {
		if _, ok := p.accept(TokenIn); !ok {
			return nil, false
		}
		if _, ok := p.accept(TokenLParen); !ok {
			return nil, false
		}
		values, ok := p.parseScalarList(1)
		if !ok {
			return nil, false
		}
		_, ok = p.accept(TokenRParen)
		return values, ok
	}); ok {
		return ListNode{Key: key, Values: values}, true
	}

	if _, ok := p.accept(TokenAssign); !ok {
		return nil, false
	}
	values, ok := p.parseScalarList(2)
	if !ok {
		return nil, false
	}
	return ListNode{Key: key, Values: values}, true
}

// parseScalarList reads Scalar (',' Scalar)* with at least atLeast elements.
func (p *Parser) parseScalarList(atLeast int) (ScalarList, bool) {
	first, ok := p.acceptScalar(false)
	if !ok {
		return nil, false
	}
	values := ScalarList{first}
	for {
		next, ok := attempt(p, func() (Token, bool) {
			if _, ok := p.accept(TokenComma); !ok {
				return Token{}, false
			}
			return p.acceptScalar(false)
		})
		if !ok {
			break
		}
		values = append(values, next)
	}
	if len(values) < atLeast {
		return nil, false
	}
	return values, true
}

// BetweenTerm := IDENT BETWEEN '(' Scalar ',' Scalar ')' | IDENT ASSIGN Scalar '~' Scalar
func (p *Parser) parseBetween() (Node, bool) {
	key, ok := p.accept(TokenTerm)
	if !ok {
		return nil, false
	}

	if bounds, ok := attempt(p, func() ([2]Token, bool) {
		if _, ok := p.accept(TokenBetween); !ok {
			return [2]Token{}, false
		}
		if _, ok := p.accept(TokenLParen); !ok {
			return [2]Token{}, false
		}
		low, ok := p.acceptScalar(false)
		if !ok {
			return [2]Token{}, false
		}
		if _, ok := p.accept(TokenComma); !ok {
			return [2]Token{}, false
		}
		high, ok := p.acceptScalar(false)
		if !ok {
			return [2]Token{}, false
		}
		_, ok = p.accept(TokenRParen)
		return [2]Token{low, high}, ok
	}); ok {
		return BetweenNode{Key: key, Low: bounds[0], High: bounds[1]}, true
	}

	if _, ok := p.accept(TokenAssign); !ok {
		return nil, false
	}
	low, ok := p.acceptScalar(false)
	if !ok {
		return nil, false
	}
	if _, ok := p.accept(TokenTilde); !ok {
		return nil, false
	}
	high, ok := p.acceptScalar(false)
	if !ok {
		return nil, false
	}
	return BetweenNode{Key: key, Low: low, High: high}, true
}

// QueryTerm := IDENT (ASSIGN|COMPARATOR) (Scalar|NULL)
func (p *Parser) parseQuery() (Node, bool) {
	key, ok := p.accept(TokenTerm)
	if !ok {
		return nil, false
	}
	op, ok := p.accept(TokenAssign, TokenComparator)
	if !ok {
		return nil, false
	}
	value, ok := p.acceptScalar(true)
	if !ok {
		return nil, false
	}
	return QueryNode{Key: key, Op: op, Value: value}, true
}

// SoloTerm := Scalar
func (p *Parser) parseSolo() (Node, bool) {
	value, ok := p.acceptScalar(false)
	if !ok {
		return nil, false
	}
	return SoloNode{Value: value}, true
}
