package unroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/unroll/internal/ast"
	"github.com/gnoswap-labs/unroll/internal/eval"
)

func mark(label string, args ...ast.Expr) *ast.ExpressionStmt {
	return &ast.ExpressionStmt{
		Pos:  ast.Location{ID: 1, Label: label},
		Expr: ast.Call("emit", args...),
	}
}

func block(stmts ...ast.Stmt) *ast.BlockStmt {
	return &ast.BlockStmt{Stmts: stmts}
}

func loop(vars []*ast.Variable, stop ast.Expr, steps []ast.Expr, body ast.Stmt) *ast.ForLoopStmt {
	return &ast.ForLoopStmt{LoopVars: vars, Stop: stop, Steps: steps, Body: body}
}

func cond(ifTrue, ifFalse ast.Stmt, exprs ...ast.Expr) *ast.ConditionalStmt {
	stmt := &ast.ConditionalStmt{IfTrue: ifTrue, IfFalse: ifFalse}
	for _, e := range exprs {
		stmt.Conditions = append(stmt.Conditions, ast.Condition{Expr: e})
	}
	return stmt
}

// counting builds `for (name = 0; name < limit; name = name + 1)`.
func counting(name string, limit ast.Expr, body func(v *ast.Variable) ast.Stmt) *ast.ForLoopStmt {
	v := &ast.Variable{Name: name, Initializer: ast.Int(0)}
	return loop(
		[]*ast.Variable{v},
		ast.Binary(ast.OpLt, ast.Ref(v), limit),
		[]ast.Expr{ast.Assign(ast.Ref(v), ast.Binary(ast.OpAdd, ast.Ref(v), ast.Int(1)))},
		body(v),
	)
}

func walk(root ast.Node, opts ...eval.Option) (*Visitor, *Recorder) {
	rec := NewRecorder()
	v := New(eval.NewContext(opts...), WithObserver(rec))
	v.Visit(root)
	return v, rec
}

func labels(rec *Recorder) []string {
	out := make([]string, 0, len(rec.Visits))
	for _, v := range rec.Visits {
		out = append(out, v.Location.Label)
	}
	return out
}

// values renders the bindings of every visit as "name=value" lists.
func values(rec *Recorder) [][]string {
	out := make([][]string, 0, len(rec.Visits))
	for _, v := range rec.Visits {
		row := []string{}
		for _, b := range v.Bindings {
			row = append(row, b.Name+"="+b.Value)
		}
		out = append(out, row)
	}
	return out
}

func TestUnrollConstantLoop(t *testing.T) {
	t.Parallel()
	root := counting("i", ast.Int(3), func(i *ast.Variable) ast.Stmt {
		return mark("body", ast.Ref(i))
	})

	v, rec := walk(root)

	assert.Equal(t, [][]string{{"i=0"}, {"i=1"}, {"i=2"}}, values(rec))
	assert.False(t, v.AnyErrors())
	assert.Empty(t, v.Context().Locals(), "loop variables must be unbound after replay")
	assert.Equal(t, 1, rec.Stats.LoopsUnrolled)
	assert.Equal(t, 3, rec.Stats.IterationsReplayed)
	assert.Empty(t, rec.Issues)
	// 4 stop tests plus 3 expression statements
	assert.Equal(t, 7, v.Context().StepsUsed())
}

func TestRuntimeBoundFallsBack(t *testing.T) {
	t.Parallel()
	n := &ast.Variable{Name: "n"}
	root := counting("i", ast.Ref(n), func(i *ast.Variable) ast.Stmt {
		return mark("body", ast.Ref(i))
	})

	v, rec := walk(root)

	require.Len(t, rec.Visits, 1)
	assert.Empty(t, rec.Visits[0].Bindings)
	assert.Empty(t, v.Context().Locals())
	assert.False(t, v.AnyErrors(), "non-constant bounds are not a sticky error")
	require.Len(t, rec.Issues, 1)
	assert.Equal(t, RuleLoopNotUnrolled, rec.Issues[0].Rule)
	assert.Contains(t, rec.Issues[0].Message, ReasonStopNotConstant.String())
}

func TestLoopPrechecks(t *testing.T) {
	t.Parallel()
	i := &ast.Variable{Name: "i", Initializer: ast.Int(0)}
	stop := ast.Binary(ast.OpLt, ast.Ref(i), ast.Int(3))
	step := ast.Assign(ast.Ref(i), ast.Binary(ast.OpAdd, ast.Ref(i), ast.Int(1)))

	tests := []struct {
		name   string
		loop   *ast.ForLoopStmt
		reason FallbackReason
	}{
		{"no loop vars", loop(nil, stop, []ast.Expr{step}, mark("b")), ReasonNoLoopVars},
		{"no stop", loop([]*ast.Variable{i}, nil, []ast.Expr{step}, mark("b")), ReasonNoStop},
		{"no steps", loop([]*ast.Variable{i}, stop, nil, mark("b")), ReasonNoSteps},
		{
			"no initializer",
			loop([]*ast.Variable{{Name: "k"}}, stop, []ast.Expr{step}, mark("b")),
			ReasonNoInitializer,
		},
		{
			"initializer not constant",
			loop([]*ast.Variable{{Name: "k", Initializer: ast.Call("f")}}, stop, []ast.Expr{step}, mark("b")),
			ReasonInitializerNotConstant,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			obs := &captureObserver{}
			v := New(eval.NewContext(), WithObserver(obs))
			v.Visit(tt.loop)

			assert.Equal(t, 1, obs.expressions, "fallback visits the body exactly once")
			require.Len(t, obs.loops, 1)
			assert.False(t, obs.loops[0].Unrolled)
			assert.Equal(t, tt.reason, obs.loops[0].Reason)
			assert.Empty(t, v.Context().Locals())
		})
	}
}

func TestMissingInitializerUnbindsEarlierVariables(t *testing.T) {
	t.Parallel()
	i := &ast.Variable{Name: "i", Initializer: ast.Int(0)}
	j := &ast.Variable{Name: "j"}
	root := loop(
		[]*ast.Variable{i, j},
		ast.Binary(ast.OpLt, ast.Ref(i), ast.Int(3)),
		[]ast.Expr{ast.Assign(ast.Ref(i), ast.Binary(ast.OpAdd, ast.Ref(i), ast.Int(1)))},
		mark("body"),
	)

	v, rec := walk(root)
	require.Len(t, rec.Visits, 1)
	assert.Empty(t, rec.Visits[0].Bindings, "i must not be visible in the fallback body")
	assert.Empty(t, v.Context().Locals())
}

func TestAllOrNothing(t *testing.T) {
	t.Parallel()
	// j = 10 / (3 - i) divides by zero on the third iteration
	i := &ast.Variable{Name: "i", Initializer: ast.Int(0)}
	j := &ast.Variable{Name: "j", Initializer: ast.Int(0)}
	root := loop(
		[]*ast.Variable{i, j},
		ast.Binary(ast.OpLt, ast.Ref(i), ast.Int(5)),
		[]ast.Expr{
			ast.Assign(ast.Ref(i), ast.Binary(ast.OpAdd, ast.Ref(i), ast.Int(1))),
			ast.Assign(ast.Ref(j), ast.Binary(ast.OpDiv, ast.Int(10), ast.Binary(ast.OpSub, ast.Int(3), ast.Ref(i)))),
		},
		mark("body", ast.Ref(i)),
	)

	v, rec := walk(root)
	require.Len(t, rec.Visits, 1, "a loop that fails at iteration k is visited once, not k times")
	assert.Empty(t, rec.Visits[0].Bindings)
	assert.Empty(t, v.Context().Locals())
	assert.False(t, v.AnyErrors())
	assert.Contains(t, rec.Issues[0].Message, ReasonStepNotConstant.String())
}

func TestStepsApplyInDeclaredOrder(t *testing.T) {
	t.Parallel()
	a := &ast.Variable{Name: "a", Initializer: ast.Int(0)}
	b := &ast.Variable{Name: "b", Initializer: ast.Int(1)}
	root := loop(
		[]*ast.Variable{a, b},
		ast.Binary(ast.OpLt, ast.Ref(a), ast.Int(10)),
		[]ast.Expr{
			ast.Assign(ast.Ref(a), ast.Ref(b)),
			// sees the a updated by the previous step
			ast.Assign(ast.Ref(b), ast.Binary(ast.OpAdd, ast.Ref(a), ast.Ref(b))),
		},
		mark("body"),
	)

	_, rec := walk(root)
	assert.Equal(t, [][]string{
		{"a=0", "b=1"},
		{"a=1", "b=2"},
		{"a=2", "b=4"},
		{"a=4", "b=8"},
		{"a=8", "b=16"},
	}, values(rec))
}

func TestZeroIterationLoop(t *testing.T) {
	t.Parallel()
	root := counting("i", ast.Int(0), func(*ast.Variable) ast.Stmt { return mark("body") })

	v, rec := walk(root)
	assert.Empty(t, rec.Visits)
	assert.Equal(t, 1, rec.Stats.LoopsUnrolled)
	assert.Empty(t, v.Context().Locals())
}

func TestNestedLoops(t *testing.T) {
	t.Parallel()
	i := &ast.Variable{Name: "i", Initializer: ast.Int(0)}
	j := &ast.Variable{Name: "j", Initializer: ast.Int(0)}
	inner := loop(
		[]*ast.Variable{j},
		ast.Binary(ast.OpLte, ast.Ref(j), ast.Ref(i)),
		[]ast.Expr{&ast.UnaryExpr{Op: ast.OpPostincrement, Operand: ast.Ref(j)}},
		mark("body"),
	)
	outer := loop(
		[]*ast.Variable{i},
		ast.Binary(ast.OpLt, ast.Ref(i), ast.Int(3)),
		[]ast.Expr{&ast.AssignmentExpr{Op: ast.OpAdd, Left: ast.Ref(i), Right: ast.Int(1)}},
		inner,
	)

	v, rec := walk(outer)
	assert.Equal(t, [][]string{
		{"i=0", "j=0"},
		{"i=1", "j=0"},
		{"i=1", "j=1"},
		{"i=2", "j=0"},
		{"i=2", "j=1"},
		{"i=2", "j=2"},
	}, values(rec))
	assert.Equal(t, 4, rec.Stats.LoopsUnrolled, "the inner loop is unrolled once per outer iteration")
	assert.Empty(t, v.Context().Locals())
}

func TestFailedAttemptDoesNotLeakIntoSiblings(t *testing.T) {
	t.Parallel()
	n := &ast.Variable{Name: "n"}
	first := counting("i", ast.Ref(n), func(*ast.Variable) ast.Stmt { return mark("first") })
	i := first.LoopVars[0]

	// a later conditional on i must not see a stale binding
	probe := cond(mark("then"), mark("else"), ast.Binary(ast.OpEq, ast.Ref(i), ast.Int(0)))

	// a sibling loop reusing the same variable identity starts fresh
	second := loop(first.LoopVars, first.Stop, first.Steps, mark("second"))
	second.Stop = ast.Binary(ast.OpLt, ast.Ref(i), ast.Int(2))

	_, rec := walk(block(first, probe, second))
	assert.Equal(t, []string{"first", "then", "else", "second", "second"}, labels(rec))
	assert.Equal(t, 1, rec.Stats.ConditionalsDual)
}

func TestConditionals(t *testing.T) {
	t.Parallel()
	x := &ast.Parameter{Name: "x", Value: ast.Int(2)}
	runtime := &ast.Variable{Name: "r"}
	xIs := func(n int64) ast.Expr { return ast.Binary(ast.OpEq, ast.Ref(x), ast.Int(n)) }

	tests := []struct {
		name string
		stmt *ast.ConditionalStmt
		want []string
	}{
		{"constant false", cond(mark("then"), mark("else"), xIs(1)), []string{"else"}},
		{"constant false without else", cond(mark("then"), nil, xIs(1)), []string{}},
		{"constant true", cond(mark("then"), mark("else"), xIs(2)), []string{"then"}},
		{"not constant", cond(mark("then"), mark("else"), ast.Ref(runtime)), []string{"then", "else"}},
		{"not constant without else", cond(mark("then"), nil, ast.Ref(runtime)), []string{"then"}},
		{"all clauses true", cond(mark("then"), mark("else"), xIs(2), ast.Int(1)), []string{"then"}},
		{"second clause false", cond(mark("then"), mark("else"), xIs(2), ast.Int(0)), []string{"else"}},
		{"false before invalid", cond(mark("then"), mark("else"), xIs(1), ast.Ref(runtime)), []string{"else"}},
		{"invalid before false", cond(mark("then"), mark("else"), ast.Ref(runtime), xIs(1)), []string{"then", "else"}},
		{"no clauses", cond(mark("then"), mark("else")), []string{"then"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, rec := walk(tt.stmt)
			assert.Equal(t, tt.want, labels(rec))
			assert.False(t, v.AnyErrors())
		})
	}
}

func TestPatternConditionVisitsBoth(t *testing.T) {
	t.Parallel()
	stmt := cond(mark("then"), mark("else"))
	stmt.Conditions = []ast.Condition{
		{Pattern: &ast.Pattern{Text: "tagged Valid .v"}, Expr: ast.Int(1)},
	}

	v, rec := walk(stmt)
	assert.Equal(t, []string{"then", "else"}, labels(rec))
	// only the two expression statements charged the budget
	assert.Equal(t, 2, v.Context().StepsUsed())
}

func TestBudgetExhaustionIsSticky(t *testing.T) {
	t.Parallel()
	x := &ast.Parameter{Name: "x", Value: ast.Int(1)}
	big := counting("i", ast.Int(1000), func(*ast.Variable) ast.Stmt { return mark("big") })
	small := counting("k", ast.Int(2), func(*ast.Variable) ast.Stmt { return mark("small") })
	probe := cond(mark("then"), mark("else"), ast.Binary(ast.OpEq, ast.Ref(x), ast.Int(1)))

	v, rec := walk(block(big, small, probe), eval.WithMaxSteps(50))

	assert.True(t, v.AnyErrors())
	assert.Equal(t, []string{"big", "small", "then", "else"}, labels(rec),
		"after exhaustion every loop falls back and every conditional is dual-visited")
	assert.Empty(t, v.Context().Locals())

	require.Len(t, rec.Issues, 2)
	assert.Equal(t, RuleStepLimit, rec.Issues[0].Rule)
	assert.Equal(t, RuleLoopNotUnrolled, rec.Issues[1].Rule)
	assert.Contains(t, rec.Issues[1].Message, ReasonStickyError.String())

	at, exhausted := v.Context().Exhausted()
	assert.True(t, exhausted)
	assert.Equal(t, big.Pos, at)
}

func TestReplayStopsWhenBudgetRunsOut(t *testing.T) {
	t.Parallel()
	// discovery takes 4 steps, each body visit takes 2
	root := counting("i", ast.Int(3), func(*ast.Variable) ast.Stmt {
		return block(mark("a"), mark("b"))
	})

	v, rec := walk(root, eval.WithMaxSteps(6))

	assert.True(t, v.AnyErrors())
	assert.Equal(t, []string{"a", "b", "a", "b"}, labels(rec), "the third iteration must not be replayed")
	assert.Empty(t, v.Context().Locals())
	require.Len(t, rec.Issues, 1)
	assert.Equal(t, RuleStepLimit, rec.Issues[0].Rule)
	assert.Equal(t, 2, rec.Stats.IterationsReplayed)
}

func TestStructuralFallbackForOtherNodes(t *testing.T) {
	t.Parallel()
	runtime := &ast.Variable{Name: "r"}
	root := &ast.Scope{
		Body: []ast.Stmt{
			&ast.WhileLoopStmt{Cond: ast.Ref(runtime), Body: mark("while")},
			&ast.EmptyStmt{},
		},
	}
	child := &ast.Scope{Name: "child", Parent: root, Body: []ast.Stmt{mark("child")}}
	root.Scopes = []*ast.Scope{child}

	_, rec := walk(root)
	assert.Equal(t, []string{"while", "child"}, labels(rec))
}

type captureObserver struct {
	expressions int
	loops       []LoopOutcome
	conds       []CondOutcome
}

func (c *captureObserver) Expression(*ast.ExpressionStmt, *eval.Context) {
	c.expressions++
}

func (c *captureObserver) Loop(_ *ast.ForLoopStmt, o LoopOutcome) {
	c.loops = append(c.loops, o)
}

func (c *captureObserver) Conditional(_ *ast.ConditionalStmt, o CondOutcome) {
	c.conds = append(c.conds, o)
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) Expression(stmt *ast.ExpressionStmt, ctx *eval.Context) {
	m.Called(stmt, ctx)
}

func (m *mockObserver) Loop(loop *ast.ForLoopStmt, outcome LoopOutcome) {
	m.Called(loop, outcome)
}

func (m *mockObserver) Conditional(stmt *ast.ConditionalStmt, outcome CondOutcome) {
	m.Called(stmt, outcome)
}

func TestObserverNotifications(t *testing.T) {
	t.Parallel()
	body := mark("body")
	inner := cond(body, nil, ast.Int(1))
	root := counting("i", ast.Int(2), func(*ast.Variable) ast.Stmt { return inner })

	ctx := eval.NewContext()
	obs := new(mockObserver)
	obs.On("Expression", body, ctx).Return().Twice()
	obs.On("Conditional", inner, CondFoldedTrue).Return().Twice()
	obs.On("Loop", root, LoopOutcome{Unrolled: true, Iterations: 2, Replayed: 2}).Return().Once()

	New(ctx, WithObserver(obs)).Visit(root)

	obs.AssertExpectations(t)
}
