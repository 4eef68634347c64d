package ast

import (
	"strconv"
	"strings"

	"github.com/gnoswap-labs/unroll/internal/constant"
)

// Expr is implemented by all expression kinds. String renders a fully
// parenthesized form that parses back to the same tree.
type Expr interface {
	String() string
	expr()
}

// UnaryOp is a prefix or postfix operator.
type UnaryOp int

const (
	_ UnaryOp = iota
	OpPlus
	OpMinus
	OpLogicalNot
	OpBitwiseNot
	OpPreincrement
	OpPredecrement
	OpPostincrement
	OpPostdecrement
)

func (op UnaryOp) String() string {
	switch op {
	case OpPlus:
		return "+"
	case OpMinus:
		return "-"
	case OpLogicalNot:
		return "!"
	case OpBitwiseNot:
		return "~"
	case OpPreincrement, OpPostincrement:
		return "++"
	case OpPredecrement, OpPostdecrement:
		return "--"
	default:
		return "?"
	}
}

// IsPostfix reports whether the operator is written after its operand.
func (op UnaryOp) IsPostfix() bool {
	return op == OpPostincrement || op == OpPostdecrement
}

// BinaryOp is an infix operator. OpNone marks a plain assignment.
type BinaryOp int

const (
	OpNone BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpLogicalAnd
	OpLogicalOr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpPow:
		return "**"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLogicalAnd:
		return "&&"
	case OpLogicalOr:
		return "||"
	case OpBitAnd:
		return "&"
	case OpBitOr:
		return "|"
	case OpBitXor:
		return "^"
	case OpShl:
		return "<<"
	case OpShr:
		return ">>"
	default:
		return ""
	}
}

// IntegerLiteral is a non-negative integer literal.
type IntegerLiteral struct {
	Value int64
}

// RealLiteral is a real literal.
type RealLiteral struct {
	Value float64
}

// StringLiteral is a string literal.
type StringLiteral struct {
	Value string
}

// NamedValue is a reference to a declared symbol. Symbol is set during
// name resolution.
type NamedValue struct {
	Name   string
	Symbol Symbol
}

// UnaryExpr applies a unary operator.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// ConditionalExpr is the ternary operator.
type ConditionalExpr struct {
	Cond    Expr
	IfTrue  Expr
	IfFalse Expr
}

// AssignmentExpr stores Right (combined with Left through Op, unless Op is
// OpNone) into Left.
type AssignmentExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// AggregateExpr builds an aggregate from its elements.
type AggregateExpr struct {
	Elements []Expr
}

// ElementSelectExpr indexes into an aggregate.
type ElementSelectExpr struct {
	Value    Expr
	Selector Expr
}

// CallExpr calls a function or system function.
type CallExpr struct {
	Func string
	Args []Expr
}

func (*IntegerLiteral) expr()    {}
func (*RealLiteral) expr()       {}
func (*StringLiteral) expr()     {}
func (*NamedValue) expr()        {}
func (*UnaryExpr) expr()         {}
func (*BinaryExpr) expr()        {}
func (*ConditionalExpr) expr()   {}
func (*AssignmentExpr) expr()    {}
func (*AggregateExpr) expr()     {}
func (*ElementSelectExpr) expr() {}
func (*CallExpr) expr()          {}

func (e *IntegerLiteral) String() string { return strconv.FormatInt(e.Value, 10) }
func (e *RealLiteral) String() string    { return constant.FormatReal(e.Value) }
func (e *StringLiteral) String() string  { return strconv.Quote(e.Value) }
func (e *NamedValue) String() string     { return e.Name }

func (e *UnaryExpr) String() string {
	if e.Op.IsPostfix() {
		return "(" + e.Operand.String() + e.Op.String() + ")"
	}
	return "(" + e.Op.String() + e.Operand.String() + ")"
}

func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

func (e *ConditionalExpr) String() string {
	return "(" + e.Cond.String() + " ? " + e.IfTrue.String() + " : " + e.IfFalse.String() + ")"
}

func (e *AssignmentExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + "= " + e.Right.String() + ")"
}

func (e *AggregateExpr) String() string {
	return "{" + joinExprs(e.Elements) + "}"
}

func (e *ElementSelectExpr) String() string {
	return e.Value.String() + "[" + e.Selector.String() + "]"
}

func (e *CallExpr) String() string {
	return e.Func + "(" + joinExprs(e.Args) + ")"
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Helper constructors, mostly for building trees in tests.

// Int creates an integer literal.
func Int(v int64) Expr { return &IntegerLiteral{Value: v} }

// Real creates a real literal.
func Real(v float64) Expr { return &RealLiteral{Value: v} }

// Str creates a string literal.
func Str(v string) Expr { return &StringLiteral{Value: v} }

// Ref creates a resolved reference to sym.
func Ref(sym Symbol) Expr { return &NamedValue{Name: sym.SymbolName(), Symbol: sym} }

// Binary creates a binary expression.
func Binary(op BinaryOp, left, right Expr) Expr {
	return &BinaryExpr{Op: op, Left: left, Right: right}
}

// Assign creates a plain assignment.
func Assign(left, right Expr) Expr {
	return &AssignmentExpr{Op: OpNone, Left: left, Right: right}
}

// Call creates a call expression.
func Call(fn string, args ...Expr) Expr {
	return &CallExpr{Func: fn, Args: args}
}
