// Package syntax parses the textual expression language used by design
// documents into ast expressions.
//
// The grammar follows C operator precedence, with ** binding tighter than
// the multiplicative operators and associating to the right. Names are
// left unresolved: every identifier becomes an ast.NamedValue whose Symbol
// is nil.
package syntax

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gnoswap-labs/unroll/internal/ast"
)

// ErrUnexpectedToken is returned when a token appears where the grammar does
// not allow it.
var ErrUnexpectedToken = errors.New("unexpected token")

type binaryInfo struct {
	op    ast.BinaryOp
	prec  int
	right bool
}

var binaryOps = map[string]binaryInfo{
	"||": {ast.OpLogicalOr, 1, false},
	"&&": {ast.OpLogicalAnd, 2, false},
	"|":  {ast.OpBitOr, 3, false},
	"^":  {ast.OpBitXor, 4, false},
	"&":  {ast.OpBitAnd, 5, false},
	"==": {ast.OpEq, 6, false},
	"!=": {ast.OpNeq, 6, false},
	"<":  {ast.OpLt, 7, false},
	"<=": {ast.OpLte, 7, false},
	">":  {ast.OpGt, 7, false},
	">=": {ast.OpGte, 7, false},
	"<<": {ast.OpShl, 8, false},
	">>": {ast.OpShr, 8, false},
	"+":  {ast.OpAdd, 9, false},
	"-":  {ast.OpSub, 9, false},
	"*":  {ast.OpMul, 10, false},
	"/":  {ast.OpDiv, 10, false},
	"%":  {ast.OpMod, 10, false},
	"**": {ast.OpPow, 11, true},
}

var assignOps = map[string]ast.BinaryOp{
	"=":   ast.OpNone,
	"+=":  ast.OpAdd,
	"-=":  ast.OpSub,
	"*=":  ast.OpMul,
	"/=":  ast.OpDiv,
	"%=":  ast.OpMod,
	"&=":  ast.OpBitAnd,
	"|=":  ast.OpBitOr,
	"^=":  ast.OpBitXor,
	"<<=": ast.OpShl,
	">>=": ast.OpShr,
}

var prefixOps = map[string]ast.UnaryOp{
	"+":  ast.OpPlus,
	"-":  ast.OpMinus,
	"!":  ast.OpLogicalNot,
	"~":  ast.OpBitwiseNot,
	"++": ast.OpPreincrement,
	"--": ast.OpPredecrement,
}

// Parser consumes the tokens produced by the lexer and builds an expression.
type Parser struct {
	tokens  []Token
	current int
}

// NewParser creates a parser over tokens, which must end with TokenEOF.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseExpr parses src as a single expression.
func ParseExpr(src string) (ast.Expr, error) {
	tokens, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

// Parse parses one expression and requires that it consumes every token.
func (p *Parser) Parse() (ast.Expr, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, p.unexpected(tok, "end of input")
	}
	return e, nil
}

func (p *Parser) parseExpr() (ast.Expr, error) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	op, ok := assignOps[tok.Value]
	if tok.Type != TokenPunct || !ok {
		return left, nil
	}
	if _, named := left.(*ast.NamedValue); !named {
		return nil, fmt.Errorf("%w: cannot assign to %s at offset %d", ErrUnexpectedToken, left, tok.Position)
	}
	p.advance()
	right, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.AssignmentExpr{Op: op, Left: left, Right: right}, nil
}

func (p *Parser) parseTernary() (ast.Expr, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return cond, nil
	}
	ifTrue, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	ifFalse, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ast.ConditionalExpr{Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse}, nil
}

// parseBinary is a precedence climber over binaryOps.
func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		info, ok := binaryOps[tok.Value]
		if tok.Type != TokenPunct || !ok || info.prec < minPrec {
			return left, nil
		}
		p.advance()
		next := info.prec + 1
		if info.right {
			next = info.prec
		}
		right, err := p.parseBinary(next)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: info.op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	tok := p.peek()
	if op, ok := prefixOps[tok.Value]; ok && tok.Type == TokenPunct {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: op, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept("++"):
			e = &ast.UnaryExpr{Op: ast.OpPostincrement, Operand: e}
		case p.accept("--"):
			e = &ast.UnaryExpr{Op: ast.OpPostdecrement, Operand: e}
		case p.accept("["):
			sel, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			e = &ast.ElementSelectExpr{Value: e, Selector: sel}
		default:
			return e, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.advance()
	switch tok.Type {
	case TokenInt:
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: integer %s out of range at offset %d", ErrInvalidToken, tok.Value, tok.Position)
		}
		return &ast.IntegerLiteral{Value: v}, nil
	case TokenReal:
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: real %s out of range at offset %d", ErrInvalidToken, tok.Value, tok.Position)
		}
		return &ast.RealLiteral{Value: v}, nil
	case TokenString:
		s, err := strconv.Unquote(tok.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: bad string literal at offset %d", ErrInvalidToken, tok.Position)
		}
		return &ast.StringLiteral{Value: s}, nil
	case TokenIdent:
		if p.accept("(") {
			args, err := p.parseList(")")
			if err != nil {
				return nil, err
			}
			return &ast.CallExpr{Func: tok.Value, Args: args}, nil
		}
		return &ast.NamedValue{Name: tok.Value}, nil
	case TokenPunct:
		switch tok.Value {
		case "(":
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		case "{":
			elems, err := p.parseList("}")
			if err != nil {
				return nil, err
			}
			return &ast.AggregateExpr{Elements: elems}, nil
		}
	}
	return nil, p.unexpected(tok, "expression")
}

// parseList parses comma-separated expressions up to and including the
// closing delimiter.
func (p *Parser) parseList(closing string) ([]ast.Expr, error) {
	var out []ast.Expr
	if p.accept(closing) {
		return out, nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.accept(closing) {
			return out, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) peek() Token {
	if p.current >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.current]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.current < len(p.tokens) {
		p.current++
	}
	return tok
}

// accept consumes the next token if it is the punctuation value.
func (p *Parser) accept(value string) bool {
	if tok := p.peek(); tok.Type == TokenPunct && tok.Value == value {
		p.current++
		return true
	}
	return false
}

func (p *Parser) expect(value string) error {
	if p.accept(value) {
		return nil
	}
	return p.unexpected(p.peek(), strconv.Quote(value))
}

func (p *Parser) unexpected(tok Token, want string) error {
	if tok.Type == TokenEOF {
		return fmt.Errorf("%w: unexpected end of input, expected %s", ErrUnexpectedToken, want)
	}
	return fmt.Errorf("%w %q at offset %d, expected %s", ErrUnexpectedToken, tok.Value, tok.Position, want)
}
