// Package unroll implements the constant-driven loop unrolling pass.
//
// The pass walks a statement tree and, for every for loop whose control
// expressions are compile-time constants, determines all of its iterations
// up front and then visits the body once per iteration with the loop
// variables bound to that iteration's values. Loops that cannot be fully
// resolved are visited once, structurally. Conditionals with constant
// conditions visit only the branch that is taken; otherwise both branches
// are visited.
//
// Constant evaluation is bounded by the step budget of the eval.Context.
// Once the budget runs out the visitor stops attempting any constant
// reasoning for the rest of the walk; see Visitor.AnyErrors.
package unroll

import (
	"go.uber.org/zap"

	"github.com/gnoswap-labs/unroll/internal/ast"
	"github.com/gnoswap-labs/unroll/internal/constant"
	"github.com/gnoswap-labs/unroll/internal/eval"
)

// Visitor performs one unrolling walk. It is not safe for concurrent use and
// must not be reused for a second walk.
type Visitor struct {
	ctx      *eval.Context
	observer Observer
	logger   *zap.Logger

	// anyErrors is set once the step budget is exhausted and never cleared.
	anyErrors bool
}

// Option configures a Visitor.
type Option func(*Visitor)

// WithObserver registers an observer for the decisions of the walk.
func WithObserver(o Observer) Option {
	return func(v *Visitor) {
		if o != nil {
			v.observer = o
		}
	}
}

// WithLogger attaches a logger. Decisions are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Visitor) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a visitor bound to ctx and pushes the frame its loop
// variables are bound in.
func New(ctx *eval.Context, opts ...Option) *Visitor {
	v := &Visitor{
		ctx:      ctx,
		observer: nopObserver{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	ctx.PushEmptyFrame()
	return v
}

// AnyErrors reports whether the step budget ran out during the walk. When
// it did, every loop and conditional reached afterwards was traversed
// without constant reasoning.
func (v *Visitor) AnyErrors() bool { return v.anyErrors }

// Context returns the evaluation context the visitor is bound to.
func (v *Visitor) Context() *eval.Context { return v.ctx }

// Visit dispatches node to its handler. Node kinds without a handler are
// walked structurally.
func (v *Visitor) Visit(node ast.Node) {
	switch n := node.(type) {
	case *ast.ForLoopStmt:
		v.visitForLoop(n)
	case *ast.ConditionalStmt:
		v.visitConditional(n)
	case *ast.ExpressionStmt:
		v.visitExpression(n)
	case nil:
		return
	default:
		ast.VisitChildren(v, node)
	}
}

func (v *Visitor) visitForLoop(loop *ast.ForLoopStmt) {
	if reason := v.precheck(loop); reason != ReasonNone {
		v.fallback(loop, reason)
		return
	}

	// Bind every loop variable to its initial value. Unless all of them and
	// every later stop/step evaluation are constant, nothing is unrolled.
	slots := make([]*eval.Slot, 0, len(loop.LoopVars))
	for _, lv := range loop.LoopVars {
		if lv.Initializer == nil {
			v.abort(loop, ReasonNoInitializer)
			return
		}
		cv := v.ctx.Eval(lv.Initializer)
		if cv.Bad() {
			v.abort(loop, ReasonInitializerNotConstant)
			return
		}
		slots = append(slots, v.ctx.CreateLocal(lv, cv))
	}

	var iterations [][]constant.Value
	for {
		if !v.step(loop.Pos) {
			v.abort(loop, ReasonBudgetExhausted)
			return
		}
		truth, ok := v.ctx.Eval(loop.Stop).Truth()
		if !ok {
			v.abort(loop, ReasonStopNotConstant)
			return
		}
		if !truth {
			break
		}

		snapshot := make([]constant.Value, len(slots))
		for i, s := range slots {
			snapshot[i] = s.Get()
		}
		iterations = append(iterations, snapshot)

		for _, st := range loop.Steps {
			if v.ctx.Eval(st).Bad() {
				v.abort(loop, ReasonStepNotConstant)
				return
			}
		}
	}

	v.logger.Debug("unrolling loop",
		zap.Stringer("location", loop.Pos),
		zap.Int("iterations", len(iterations)))

	replayed := 0
	for _, it := range iterations {
		for i, s := range slots {
			s.Set(it[i])
		}
		v.Visit(loop.Body)
		replayed++
		if v.anyErrors {
			break
		}
	}

	v.unbind(loop)
	v.observer.Loop(loop, LoopOutcome{
		Unrolled:    true,
		Iterations:  len(iterations),
		Replayed:    replayed,
		Interrupted: replayed < len(iterations),
	})
}

func (v *Visitor) precheck(loop *ast.ForLoopStmt) FallbackReason {
	switch {
	case v.anyErrors:
		return ReasonStickyError
	case len(loop.LoopVars) == 0:
		return ReasonNoLoopVars
	case loop.Stop == nil:
		return ReasonNoStop
	case len(loop.Steps) == 0:
		return ReasonNoSteps
	default:
		return ReasonNone
	}
}

// abort releases the bindings of a failed unroll attempt and falls back.
func (v *Visitor) abort(loop *ast.ForLoopStmt, reason FallbackReason) {
	v.unbind(loop)
	v.fallback(loop, reason)
}

func (v *Visitor) unbind(loop *ast.ForLoopStmt) {
	for _, lv := range loop.LoopVars {
		v.ctx.DeleteLocal(lv)
	}
}

// fallback visits the loop body exactly once.
func (v *Visitor) fallback(loop *ast.ForLoopStmt, reason FallbackReason) {
	v.logger.Debug("loop not unrolled",
		zap.Stringer("location", loop.Pos),
		zap.Stringer("reason", reason))
	v.Visit(loop.Body)
	v.observer.Loop(loop, LoopOutcome{Reason: reason})
}

func (v *Visitor) visitConditional(stmt *ast.ConditionalStmt) {
	for _, cond := range stmt.Conditions {
		if cond.Pattern != nil || !v.step(stmt.Pos) {
			v.visitBoth(stmt)
			return
		}
		truth, ok := v.ctx.Eval(cond.Expr).Truth()
		if !ok {
			v.visitBoth(stmt)
			return
		}
		if !truth {
			v.observer.Conditional(stmt, CondFoldedFalse)
			if stmt.IfFalse != nil {
				v.Visit(stmt.IfFalse)
			}
			return
		}
	}
	v.observer.Conditional(stmt, CondFoldedTrue)
	v.Visit(stmt.IfTrue)
}

// visitBoth is used when the condition cannot be proven: either branch
// may be taken, so both are visited.
func (v *Visitor) visitBoth(stmt *ast.ConditionalStmt) {
	v.observer.Conditional(stmt, CondDualVisited)
	v.Visit(stmt.IfTrue)
	if stmt.IfFalse != nil {
		v.Visit(stmt.IfFalse)
	}
}

func (v *Visitor) visitExpression(stmt *ast.ExpressionStmt) {
	v.step(stmt.Pos)
	v.observer.Expression(stmt, v.ctx)
}

// step charges one unit of budget, raising the sticky flag on exhaustion.
func (v *Visitor) step(loc ast.Location) bool {
	if v.anyErrors || !v.ctx.Step(loc) {
		if !v.anyErrors {
			v.logger.Debug("step budget exhausted, disabling unrolling",
				zap.Stringer("location", loc),
				zap.Int("steps", v.ctx.StepsUsed()))
		}
		v.anyErrors = true
		return false
	}
	return true
}
