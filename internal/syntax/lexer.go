package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const eof = -1

// termBreakers end a bare term.
const termBreakers = `:><="'().,~`

// Lexer tokenizes search strings.
type Lexer struct {
	input string
	pos   int // offset of the next rune
	start int // offset of ch
	ch    rune
}

// NewLexer creates a lexer over the NFC normalization of input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: norm.NFC.String(input)}
	l.readChar()
	return l
}

// Input returns the normalized input the token positions refer to.
func (l *Lexer) Input() string {
	return l.input
}

func (l *Lexer) readChar() {
	l.start = l.pos
	if l.pos >= len(l.input) {
		l.ch = eof
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.ch = r
	l.pos += w
}

func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.ch != eof && unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

// NextToken returns the next token, or an *Error for an unterminated string.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	start := l.start
	single := func(kind TokenKind, value string) Token {
		raw := l.input[start:l.pos]
		l.readChar()
		return Token{Kind: kind, Value: value, Raw: raw, Pos: start}
	}

	switch l.ch {
	case eof:
		return Token{Kind: TokenEOF, Pos: len(l.input)}, nil
	case ':', '=':
		return single(TokenAssign, "="), nil
	case '>', '<':
		op := string(l.ch)
		if l.peekChar() == '=' {
			l.readChar()
			op += "="
		}
		return single(TokenComparator, op), nil
	case '(':
		return single(TokenLParen, "("), nil
	case ')':
		return single(TokenRParen, ")"), nil
	case '.':
		return single(TokenDot, "."), nil
	case ',':
		return single(TokenComma, ","), nil
	case '~':
		return single(TokenTilde, "~"), nil
	case '"', '\'':
		return l.readString()
	default:
		return l.readWord(), nil
	}
}

// readString reads a quoted string up to the next matching quote. Empty
// content is allowed. There are no escapes: a string cannot contain its
// own quote character, so use the other quote.
func (l *Lexer) readString() (Token, error) {
	start := l.start
	quote := l.ch
	l.readChar()
	content := l.start

	for l.ch != quote {
		if l.ch == eof {
			return Token{}, &Error{
				Code:  ErrCodeUnterminatedString,
				Found: Token{Kind: TokenString, Raw: l.input[start:], Pos: start},
				Input: l.input,
			}
		}
		l.readChar()
	}

	value := l.input[content:l.start]
	raw := l.input[start:l.pos]
	l.readChar()
	return Token{Kind: TokenString, Value: value, Raw: raw, Pos: start}, nil
}

// readWord reads a run of term characters and classifies it as a keyword,
// number or bare term by what follows it.
func (l *Lexer) readWord() Token {
	start := l.start
	for isTermChar(l.ch) {
		l.readChar()
	}
	word := l.input[start:l.start]

	if kind, ok := keywords[strings.ToLower(word)]; ok && endsKeyword(l.ch) {
		return Token{Kind: kind, Value: strings.ToLower(word), Raw: word, Pos: start}
	}

	if isDigits(word) {
		if l.ch == '.' && isDigit(l.peekChar()) {
			pos, at, ch := l.pos, l.start, l.ch
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
			if endsNumber(l.ch) {
				text := l.input[start:l.start]
				return Token{Kind: TokenDecimal, Value: text, Raw: text, Pos: start}
			}
			l.pos, l.start, l.ch = pos, at, ch
		}
		if endsNumber(l.ch) {
			return Token{Kind: TokenInteger, Value: word, Raw: word, Pos: start}
		}
	}

	return Token{Kind: TokenTerm, Value: word, Raw: word, Pos: start}
}

// Tokenize splits input into tokens, ending with a TokenEOF.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens, nil
		}
	}
}

func isTermChar(r rune) bool {
	return r != eof && !unicode.IsSpace(r) && !strings.ContainsRune(termBreakers, r)
}

func endsKeyword(r rune) bool {
	return r == eof || r == '(' || r == ')' || unicode.IsSpace(r)
}

func endsNumber(r rune) bool {
	return endsKeyword(r) || r == ',' || r == '~'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(rune(s[i])) {
			return false
		}
	}
	return true
}
