package syntax

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidToken is returned when the input contains text that does not
// form a token.
var ErrInvalidToken = errors.New("invalid token")

// TokenType defines the different types of tokens produced by the lexer.
type TokenType int

const (
	TokenIdent  TokenType = iota // names, including $-prefixed system functions
	TokenInt                     // 42
	TokenReal                    // 1.5, 2e10
	TokenString                  // "text"
	TokenPunct                   // operators and delimiters
	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenIdent:
		return "identifier"
	case TokenInt:
		return "integer"
	case TokenReal:
		return "real"
	case TokenString:
		return "string"
	case TokenPunct:
		return "punctuation"
	case TokenEOF:
		return "end of input"
	default:
		return "?"
	}
}

// Token is a single lexical token.
type Token struct {
	Type     TokenType
	Value    string // literal text; string tokens keep their quotes
	Position int    // byte offset in the input
}

// punctuation, longest first so that the lexer can take the first match.
var punctuation = []string{
	"<<=", ">>=",
	"**", "==", "!=", "<=", ">=", "&&", "||", "<<", ">>", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"+", "-", "*", "/", "%", "<", ">", "!", "~", "&", "|", "^", "=",
	"?", ":", ",", "(", ")", "{", "}", "[", "]",
}

// Lexer scans an expression and produces tokens.
type Lexer struct {
	input    string
	position int
	tokens   []Token
}

// NewLexer returns a new Lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize processes the entire input. The returned slice always ends with
// a TokenEOF token.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		l.skipWhitespace()
		if l.position >= len(l.input) {
			break
		}
		start := l.position
		c := l.input[start]

		var err error
		switch {
		case isIdentStart(c):
			l.lexIdent()
		case isDigit(c):
			err = l.lexNumber()
		case c == '.' && start+1 < len(l.input) && isDigit(l.input[start+1]):
			err = l.lexNumber()
		case c == '"':
			err = l.lexString()
		default:
			err = l.lexPunct()
		}
		if err != nil {
			return nil, err
		}
	}
	l.addToken(TokenEOF, "", l.position)
	return l.tokens, nil
}

func (l *Lexer) skipWhitespace() {
	for l.position < len(l.input) && isWhitespace(l.input[l.position]) {
		l.position++
	}
}

func (l *Lexer) lexIdent() {
	start := l.position
	for l.position < len(l.input) && isIdentPart(l.input[l.position]) {
		l.position++
	}
	l.addToken(TokenIdent, l.input[start:l.position], start)
}

// lexNumber scans digits with an optional fraction and exponent.
func (l *Lexer) lexNumber() error {
	start := l.position
	typ := TokenInt
	l.digits()
	if l.peek() == '.' {
		typ = TokenReal
		l.position++
		l.digits()
	}
	if c := l.peek(); c == 'e' || c == 'E' {
		typ = TokenReal
		l.position++
		if c := l.peek(); c == '+' || c == '-' {
			l.position++
		}
		if !isDigit(l.peek()) {
			return fmt.Errorf("%w: malformed exponent in %q at offset %d",
				ErrInvalidToken, l.input[start:l.position], start)
		}
		l.digits()
	}
	if isIdentPart(l.peek()) {
		return fmt.Errorf("%w: malformed number at offset %d", ErrInvalidToken, start)
	}
	l.addToken(typ, l.input[start:l.position], start)
	return nil
}

func (l *Lexer) digits() {
	for isDigit(l.peek()) {
		l.position++
	}
}

// lexString scans a double-quoted literal. Escapes are validated by the
// parser when the literal is unquoted.
func (l *Lexer) lexString() error {
	start := l.position
	l.position++
	for l.position < len(l.input) {
		switch l.input[l.position] {
		case '\\':
			l.position += 2
			continue
		case '\n':
			return fmt.Errorf("%w: newline in string at offset %d", ErrInvalidToken, start)
		case '"':
			l.position++
			l.addToken(TokenString, l.input[start:l.position], start)
			return nil
		}
		l.position++
	}
	return fmt.Errorf("%w: unterminated string at offset %d", ErrInvalidToken, start)
}

func (l *Lexer) lexPunct() error {
	rest := l.input[l.position:]
	for _, p := range punctuation {
		if strings.HasPrefix(rest, p) {
			l.addToken(TokenPunct, p, l.position)
			l.position += len(p)
			return nil
		}
	}
	return fmt.Errorf("%w: unexpected character %q at offset %d", ErrInvalidToken, rest[0], l.position)
}

func (l *Lexer) peek() byte {
	if l.position >= len(l.input) {
		return 0
	}
	return l.input[l.position]
}

func (l *Lexer) addToken(typ TokenType, value string, pos int) {
	l.tokens = append(l.tokens, Token{Type: typ, Value: value, Position: pos})
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
