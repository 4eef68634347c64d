package unroll

import (
	"fmt"

	"github.com/gnoswap-labs/unroll/internal/ast"
	"github.com/gnoswap-labs/unroll/internal/eval"
	"github.com/gnoswap-labs/unroll/internal/types"
)

// FallbackReason says why a loop was visited structurally instead of being
// unrolled.
type FallbackReason int

const (
	ReasonNone FallbackReason = iota
	ReasonStickyError
	ReasonNoLoopVars
	ReasonNoStop
	ReasonNoSteps
	ReasonNoInitializer
	ReasonInitializerNotConstant
	ReasonStopNotConstant
	ReasonStepNotConstant
	ReasonBudgetExhausted
)

func (r FallbackReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonStickyError:
		return "unrolling disabled after step limit"
	case ReasonNoLoopVars:
		return "no loop variables"
	case ReasonNoStop:
		return "no stop expression"
	case ReasonNoSteps:
		return "no step expressions"
	case ReasonNoInitializer:
		return "loop variable without initializer"
	case ReasonInitializerNotConstant:
		return "initializer is not constant"
	case ReasonStopNotConstant:
		return "stop expression is not constant"
	case ReasonStepNotConstant:
		return "step expression is not constant"
	case ReasonBudgetExhausted:
		return "step limit exceeded"
	default:
		return "?"
	}
}

// LoopOutcome describes how a loop was handled.
type LoopOutcome struct {
	Unrolled    bool
	Iterations  int // iterations discovered, when unrolled
	Replayed    int // body visits performed during replay
	Interrupted bool
	Reason      FallbackReason // set when not unrolled
}

// CondOutcome describes how a conditional was handled.
type CondOutcome int

const (
	CondFoldedTrue CondOutcome = iota
	CondFoldedFalse
	CondDualVisited
)

func (c CondOutcome) String() string {
	switch c {
	case CondFoldedTrue:
		return "true"
	case CondFoldedFalse:
		return "false"
	case CondDualVisited:
		return "both"
	default:
		return "?"
	}
}

// Observer is notified of the visitor's decisions. Expression is called
// for every visit of an expression statement, with the loop variables of
// the enclosing unrolled loops bound in ctx. Loop and Conditional are
// called once the node has been fully handled.
type Observer interface {
	Expression(stmt *ast.ExpressionStmt, ctx *eval.Context)
	Loop(loop *ast.ForLoopStmt, outcome LoopOutcome)
	Conditional(stmt *ast.ConditionalStmt, outcome CondOutcome)
}

type nopObserver struct{}

func (nopObserver) Expression(*ast.ExpressionStmt, *eval.Context) {}
func (nopObserver) Loop(*ast.ForLoopStmt, LoopOutcome)            {}
func (nopObserver) Conditional(*ast.ConditionalStmt, CondOutcome) {}

// Rule names used for recorded issues.
const (
	RuleLoopNotUnrolled = "loop-not-unrolled"
	RuleStepLimit       = "step-limit-exceeded"
)

// Recorder is an Observer that collects visits, issues and statistics.
type Recorder struct {
	Visits []types.Visit
	Issues []types.Issue
	Stats  types.Stats
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Expression(stmt *ast.ExpressionStmt, ctx *eval.Context) {
	r.Stats.ExpressionsVisited++
	locals := ctx.Locals()
	visit := types.Visit{
		Location: stmt.Pos,
		Expr:     stmt.Expr.String(),
	}
	for _, b := range locals {
		visit.Bindings = append(visit.Bindings, types.Binding{
			Name:  b.Var.Name,
			Value: b.Value.String(),
		})
	}
	r.Visits = append(r.Visits, visit)
}

func (r *Recorder) Loop(loop *ast.ForLoopStmt, outcome LoopOutcome) {
	if outcome.Unrolled {
		r.Stats.LoopsUnrolled++
		r.Stats.IterationsReplayed += outcome.Replayed
		if outcome.Interrupted {
			r.Issues = append(r.Issues, types.Issue{
				Rule:     RuleStepLimit,
				Message:  fmt.Sprintf("replay stopped after %d of %d iterations", outcome.Replayed, outcome.Iterations),
				Severity: types.SeverityWarning,
				Location: loop.Pos,
			})
		}
		return
	}

	r.Stats.LoopsFallenBack++
	issue := types.Issue{
		Rule:     RuleLoopNotUnrolled,
		Message:  "loop not unrolled: " + outcome.Reason.String(),
		Severity: types.SeverityInfo,
		Location: loop.Pos,
	}
	if outcome.Reason == ReasonBudgetExhausted {
		issue.Rule = RuleStepLimit
		issue.Severity = types.SeverityWarning
		issue.Note = "constant reasoning is disabled for the rest of the walk"
	}
	r.Issues = append(r.Issues, issue)
}

func (r *Recorder) Conditional(_ *ast.ConditionalStmt, outcome CondOutcome) {
	if outcome == CondDualVisited {
		r.Stats.ConditionalsDual++
		return
	}
	r.Stats.ConditionalsFolded++
}
