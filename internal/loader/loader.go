// Package loader turns design documents into elaborated ast trees.
//
// A design document is YAML (or JSON, which yaml.v3 reads as well) in the
// schema described by ScopeDoc. Loading parses every expression, resolves
// every name to the symbol it refers to and numbers statements in preorder
// so that each one has a stable Location.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/unroll/internal/ast"
	"github.com/gnoswap-labs/unroll/internal/syntax"
)

var (
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrDuplicateName     = errors.New("duplicate name")
	ErrMalformed         = errors.New("malformed document")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnknownScope      = errors.New("unknown scope")
)

// HasDesignExtension reports whether path names a file Load accepts.
func HasDesignExtension(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// Load reads and builds the design at path.
func Load(path string) (*ast.Scope, error) {
	if !HasDesignExtension(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	root, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// Decode builds the design held in data.
func Decode(data []byte) (*ast.Scope, error) {
	var doc ScopeDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Build(&doc)
}

// Build elaborates doc into a tree rooted at a scope with no parent.
func Build(doc *ScopeDoc) (*ast.Scope, error) {
	b := &builder{}
	return b.scope(doc, nil, nil)
}

// SelectScopes resolves dotted scope paths against root. With no paths it
// returns root alone.
func SelectScopes(root *ast.Scope, paths []string) ([]*ast.Scope, error) {
	if len(paths) == 0 {
		return []*ast.Scope{root}, nil
	}
	out := make([]*ast.Scope, 0, len(paths))
	for _, p := range paths {
		s := root.Lookup(p)
		if s == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownScope, p)
		}
		out = append(out, s)
	}
	return out, nil
}

type builder struct {
	nextID int
}

// env is one level of lexical name bindings.
type env struct {
	symbols map[string]ast.Symbol
	parent  *env
}

func newEnv(parent *env) *env {
	return &env{symbols: make(map[string]ast.Symbol), parent: parent}
}

func (e *env) declare(sym ast.Symbol) error {
	name := sym.SymbolName()
	if name == "" {
		return fmt.Errorf("%w: declaration without a name", ErrMalformed)
	}
	if _, dup := e.symbols[name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	e.symbols[name] = sym
	return nil
}

func (e *env) lookup(name string) (ast.Symbol, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if sym, ok := cur.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

func (b *builder) scope(doc *ScopeDoc, parent *ast.Scope, outer *env) (*ast.Scope, error) {
	s := &ast.Scope{Name: doc.Name, Parent: parent}
	if parent != nil && doc.Name == "" {
		return nil, fmt.Errorf("%w: nested scope of %q without a name", ErrMalformed, parent.Path())
	}
	where := "scope " + s.Path()
	if s.Path() == "" {
		where = "root scope"
	}

	names := newEnv(outer)
	for _, pd := range doc.Parameters {
		p := &ast.Parameter{Name: pd.Name}
		if err := names.declare(p); err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
		s.Parameters = append(s.Parameters, p)
	}
	for _, vd := range doc.Variables {
		if vd.Init != "" {
			return nil, fmt.Errorf("%s: %w: variable %q has an initializer", where, ErrMalformed, vd.Name)
		}
		v := &ast.Variable{Name: vd.Name}
		if err := names.declare(v); err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
		s.Variables = append(s.Variables, v)
	}

	// parameters may refer to each other regardless of declaration order
	for i, pd := range doc.Parameters {
		e, err := b.expr(pd.Value, names)
		if err != nil {
			return nil, fmt.Errorf("%s: parameter %s: %w", where, pd.Name, err)
		}
		s.Parameters[i].Value = e
	}

	for i := range doc.Body {
		st, err := b.stmt(&doc.Body[i], s, names)
		if err != nil {
			return nil, err
		}
		s.Body = append(s.Body, st)
	}

	seen := make(map[string]bool)
	for i := range doc.Scopes {
		name := doc.Scopes[i].Name
		if seen[name] {
			return nil, fmt.Errorf("%s: %w: scope %q", where, ErrDuplicateName, name)
		}
		seen[name] = true
		child, err := b.scope(&doc.Scopes[i], s, names)
		if err != nil {
			return nil, err
		}
		s.Scopes = append(s.Scopes, child)
	}
	return s, nil
}

// stmt builds one statement. IDs are handed out before children are built,
// so numbering is preorder.
func (b *builder) stmt(doc *StmtDoc, scope *ast.Scope, names *env) (ast.Stmt, error) {
	b.nextID++
	pos := ast.Location{Scope: scope.Path(), ID: b.nextID, Label: doc.Label}
	if doc.kinds() > 1 {
		return nil, fmt.Errorf("%s: %w: statement has more than one kind", pos, ErrMalformed)
	}
	wrap := func(err error) error { return fmt.Errorf("%s: %w", pos, err) }

	switch {
	case doc.Expr != "":
		e, err := b.expr(doc.Expr, names)
		if err != nil {
			return nil, wrap(err)
		}
		return &ast.ExpressionStmt{Pos: pos, Expr: e}, nil

	case doc.Block != nil:
		block := &ast.BlockStmt{Pos: pos}
		for i := range doc.Block {
			st, err := b.stmt(&doc.Block[i], scope, names)
			if err != nil {
				return nil, err
			}
			block.Stmts = append(block.Stmts, st)
		}
		return block, nil

	case doc.For != nil:
		return b.forLoop(doc.For, pos, scope, names)

	case doc.If != nil:
		return b.conditional(doc.If, pos, scope, names)

	case doc.While != nil:
		if doc.While.Cond == "" {
			return nil, wrap(fmt.Errorf("%w: while loop without a condition", ErrMalformed))
		}
		cond, err := b.expr(doc.While.Cond, names)
		if err != nil {
			return nil, wrap(err)
		}
		body, err := b.optional(doc.While.Body, scope, names)
		if err != nil {
			return nil, err
		}
		return &ast.WhileLoopStmt{Pos: pos, Cond: cond, Body: body}, nil

	default:
		return &ast.EmptyStmt{Pos: pos}, nil
	}
}

func (b *builder) forLoop(doc *ForDoc, pos ast.Location, scope *ast.Scope, outer *env) (ast.Stmt, error) {
	loop := &ast.ForLoopStmt{Pos: pos}
	names := newEnv(outer)
	for _, vd := range doc.Vars {
		lv := &ast.Variable{Name: vd.Name}
		// an initializer sees the loop variables declared before it
		if vd.Init != "" {
			init, err := b.expr(vd.Init, names)
			if err != nil {
				return nil, fmt.Errorf("%s: loop variable %s: %w", pos, vd.Name, err)
			}
			lv.Initializer = init
		}
		if err := names.declare(lv); err != nil {
			return nil, fmt.Errorf("%s: %w", pos, err)
		}
		loop.LoopVars = append(loop.LoopVars, lv)
	}
	if doc.Stop != "" {
		stop, err := b.expr(doc.Stop, names)
		if err != nil {
			return nil, fmt.Errorf("%s: stop: %w", pos, err)
		}
		loop.Stop = stop
	}
	for _, src := range doc.Steps {
		st, err := b.expr(src, names)
		if err != nil {
			return nil, fmt.Errorf("%s: step: %w", pos, err)
		}
		loop.Steps = append(loop.Steps, st)
	}
	body, err := b.optional(doc.Body, scope, names)
	if err != nil {
		return nil, err
	}
	loop.Body = body
	return loop, nil
}

func (b *builder) conditional(doc *IfDoc, pos ast.Location, scope *ast.Scope, names *env) (ast.Stmt, error) {
	stmt := &ast.ConditionalStmt{Pos: pos}
	for _, cd := range doc.Conditions {
		if cd.Expr == "" {
			return nil, fmt.Errorf("%s: %w: condition without an expression", pos, ErrMalformed)
		}
		e, err := b.expr(cd.Expr, names)
		if err != nil {
			return nil, fmt.Errorf("%s: condition: %w", pos, err)
		}
		c := ast.Condition{Expr: e}
		if cd.Pattern != "" {
			c.Pattern = &ast.Pattern{Text: cd.Pattern}
		}
		stmt.Conditions = append(stmt.Conditions, c)
	}
	ifTrue, err := b.optional(doc.Then, scope, names)
	if err != nil {
		return nil, err
	}
	stmt.IfTrue = ifTrue
	if doc.Else != nil {
		ifFalse, err := b.stmt(doc.Else, scope, names)
		if err != nil {
			return nil, err
		}
		stmt.IfFalse = ifFalse
	}
	return stmt, nil
}

// optional builds doc, or an empty statement when it is absent.
func (b *builder) optional(doc *StmtDoc, scope *ast.Scope, names *env) (ast.Stmt, error) {
	if doc == nil {
		doc = &StmtDoc{}
	}
	return b.stmt(doc, scope, names)
}

func (b *builder) expr(src string, names *env) (ast.Expr, error) {
	e, err := syntax.ParseExpr(src)
	if err != nil {
		return nil, err
	}
	if err := resolve(e, names); err != nil {
		return nil, err
	}
	return e, nil
}

// resolve binds every NamedValue in e to its declaration. Call targets are
// not names: they are system or external functions.
func resolve(e ast.Expr, names *env) error {
	switch e := e.(type) {
	case *ast.NamedValue:
		sym, ok := names.lookup(e.Name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownIdentifier, e.Name)
		}
		e.Symbol = sym
		return nil
	case *ast.UnaryExpr:
		return resolve(e.Operand, names)
	case *ast.BinaryExpr:
		return resolveAll(names, e.Left, e.Right)
	case *ast.ConditionalExpr:
		return resolveAll(names, e.Cond, e.IfTrue, e.IfFalse)
	case *ast.AssignmentExpr:
		return resolveAll(names, e.Left, e.Right)
	case *ast.AggregateExpr:
		return resolveAll(names, e.Elements...)
	case *ast.ElementSelectExpr:
		return resolveAll(names, e.Value, e.Selector)
	case *ast.CallExpr:
		return resolveAll(names, e.Args...)
	default:
		return nil
	}
}

func resolveAll(names *env, exprs ...ast.Expr) error {
	for _, e := range exprs {
		if err := resolve(e, names); err != nil {
			return err
		}
	}
	return nil
}
