// Package ast holds the elaborated, immutable tree the unrolling pass walks:
// hierarchical scopes, statements, expressions and the symbols names resolve
// to.
package ast

import (
	"fmt"
	"strings"
)

// Node is implemented by scopes and statements.
type Node interface {
	node()
}

// Location identifies a statement for budget accounting and diagnostics.
type Location struct {
	Scope string `json:"scope,omitempty"` // hierarchical path of the enclosing scope
	ID    int    `json:"id"`              // preorder statement index within the design, starting at 1
	Label string `json:"label,omitempty"` // optional user label
}

// NoLocation is used for budget charges not tied to a statement.
var NoLocation = Location{}

func (l Location) String() string {
	if l.ID == 0 {
		return "<unknown>"
	}
	s := fmt.Sprintf("#%d", l.ID)
	if l.Scope != "" {
		s = l.Scope + s
	}
	if l.Label != "" {
		s += "(" + l.Label + ")"
	}
	return s
}

// Symbol is a declaration a NamedValue can refer to.
type Symbol interface {
	SymbolName() string
	symbol()
}

// Parameter is a named compile-time constant declared in a scope.
type Parameter struct {
	Name  string
	Value Expr
}

func (p *Parameter) SymbolName() string { return p.Name }
func (*Parameter) symbol()              {}

// Variable is a mutable variable. Loop variables carry an optional
// initializer; scope variables model runtime state and never have a
// constant value.
type Variable struct {
	Name        string
	Initializer Expr
}

func (v *Variable) SymbolName() string { return v.Name }
func (*Variable) symbol()              {}

// Scope is a named region of the design with its own declarations, body and
// nested scopes.
type Scope struct {
	Name       string
	Parent     *Scope
	Parameters []*Parameter
	Variables  []*Variable
	Body       []Stmt
	Scopes     []*Scope
}

func (*Scope) node() {}

// Path returns the dotted hierarchical path of s. The root scope has an
// empty path and is not part of its children's paths.
func (s *Scope) Path() string {
	if s == nil || s.Parent == nil {
		return ""
	}
	parent := s.Parent.Path()
	if parent == "" {
		return s.Name
	}
	return parent + "." + s.Name
}

// Lookup resolves a dotted path relative to s. It returns nil when any
// component is missing.
func (s *Scope) Lookup(path string) *Scope {
	if path == "" {
		return s
	}
	cur := s
	for _, part := range strings.Split(path, ".") {
		next := cur.child(part)
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

func (s *Scope) child(name string) *Scope {
	for _, c := range s.Scopes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Stmt is implemented by all statement kinds.
type Stmt interface {
	Node
	Loc() Location
	stmt()
}

// BlockStmt is a sequence of statements.
type BlockStmt struct {
	Pos   Location
	Stmts []Stmt
}

// ForLoopStmt is a for loop with declared loop variables, an optional stop
// expression and zero or more step expressions.
type ForLoopStmt struct {
	Pos      Location
	LoopVars []*Variable
	Stop     Expr
	Steps    []Expr
	Body     Stmt
}

// Pattern is a structural match condition. Its contents are never evaluated
// as a constant.
type Pattern struct {
	Text string
}

// Condition is one clause of a conditional statement.
type Condition struct {
	Pattern *Pattern
	Expr    Expr
}

// ConditionalStmt runs IfTrue when every condition holds, IfFalse otherwise.
type ConditionalStmt struct {
	Pos        Location
	Conditions []Condition
	IfTrue     Stmt
	IfFalse    Stmt // nil when there is no else branch
}

// ExpressionStmt evaluates an expression for its effects.
type ExpressionStmt struct {
	Pos  Location
	Expr Expr
}

// WhileLoopStmt has no dedicated unrolling handler; it is walked
// structurally.
type WhileLoopStmt struct {
	Pos  Location
	Cond Expr
	Body Stmt
}

// EmptyStmt does nothing.
type EmptyStmt struct {
	Pos Location
}

func (*BlockStmt) node()       {}
func (*ForLoopStmt) node()     {}
func (*ConditionalStmt) node() {}
func (*ExpressionStmt) node()  {}
func (*WhileLoopStmt) node()   {}
func (*EmptyStmt) node()       {}

func (*BlockStmt) stmt()       {}
func (*ForLoopStmt) stmt()     {}
func (*ConditionalStmt) stmt() {}
func (*ExpressionStmt) stmt()  {}
func (*WhileLoopStmt) stmt()   {}
func (*EmptyStmt) stmt()       {}

func (s *BlockStmt) Loc() Location       { return s.Pos }
func (s *ForLoopStmt) Loc() Location     { return s.Pos }
func (s *ConditionalStmt) Loc() Location { return s.Pos }
func (s *ExpressionStmt) Loc() Location  { return s.Pos }
func (s *WhileLoopStmt) Loc() Location   { return s.Pos }
func (s *EmptyStmt) Loc() Location       { return s.Pos }
