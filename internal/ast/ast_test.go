package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildScopes() *Scope {
	root := &Scope{}
	top := &Scope{Name: "top", Parent: root}
	u1 := &Scope{Name: "u1", Parent: top}
	top.Scopes = []*Scope{u1}
	root.Scopes = []*Scope{top}
	return root
}

func TestScopePathAndLookup(t *testing.T) {
	t.Parallel()
	root := buildScopes()

	u1 := root.Lookup("top.u1")
	require.NotNil(t, u1)
	assert.Equal(t, "top.u1", u1.Path())
	assert.Equal(t, "", root.Path())
	assert.Same(t, root, root.Lookup(""))
	assert.Nil(t, root.Lookup("top.missing"))
	assert.Nil(t, root.Lookup("u1"))
}

func TestInspectOrder(t *testing.T) {
	t.Parallel()
	a := &ExpressionStmt{Pos: Location{ID: 3}}
	b := &ExpressionStmt{Pos: Location{ID: 5}}
	loop := &ForLoopStmt{Pos: Location{ID: 2}, Body: a}
	cond := &ConditionalStmt{Pos: Location{ID: 4}, IfTrue: b}
	block := &BlockStmt{Pos: Location{ID: 1}, Stmts: []Stmt{loop, cond}}

	root := buildScopes()
	root.Scopes[0].Body = []Stmt{block}

	var ids []int
	Inspect(root, func(n Node) bool {
		if s, ok := n.(Stmt); ok {
			ids = append(ids, s.Loc().ID)
		}
		return true
	})
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids)

	ids = nil
	Inspect(block, func(n Node) bool {
		s := n.(Stmt)
		ids = append(ids, s.Loc().ID)
		_, isLoop := n.(*ForLoopStmt)
		return !isLoop
	})
	assert.Equal(t, []int{1, 2, 4, 5}, ids)
}

func TestLocationString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "<unknown>", NoLocation.String())
	assert.Equal(t, "top.u1#4(mark)", Location{Scope: "top.u1", ID: 4, Label: "mark"}.String())
	assert.Equal(t, "#2", Location{ID: 2}.String())
}

func TestExprString(t *testing.T) {
	t.Parallel()
	i := &Variable{Name: "i"}
	tests := []struct {
		expr Expr
		want string
	}{
		{Binary(OpLt, Ref(i), Int(3)), "(i < 3)"},
		{Assign(Ref(i), Binary(OpAdd, Ref(i), Int(1))), "(i = (i + 1))"},
		{&AssignmentExpr{Op: OpShl, Left: Ref(i), Right: Int(1)}, "(i <<= 1)"},
		{&UnaryExpr{Op: OpPostincrement, Operand: Ref(i)}, "(i++)"},
		{&UnaryExpr{Op: OpLogicalNot, Operand: Ref(i)}, "(!i)"},
		{&ConditionalExpr{Cond: Ref(i), IfTrue: Real(1.5), IfFalse: Str("x")}, `(i ? 1.5 : "x")`},
		{&ElementSelectExpr{Value: &AggregateExpr{Elements: []Expr{Int(1), Int(2)}}, Selector: Ref(i)}, "{1, 2}[i]"},
		{Call("$clog2", Int(8)), "$clog2(8)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.expr.String())
	}
}
