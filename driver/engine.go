package driver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/unroll/internal/ast"
	"github.com/gnoswap-labs/unroll/internal/config"
	"github.com/gnoswap-labs/unroll/internal/eval"
	"github.com/gnoswap-labs/unroll/internal/loader"
	tt "github.com/gnoswap-labs/unroll/internal/types"
	"github.com/gnoswap-labs/unroll/internal/unroll"
)

// Runner produces the report for one design file.
type Runner interface {
	Run(filename string) (*tt.Report, error)
}

// Engine runs the unrolling pass over design files. It holds no per-walk
// state and may be shared by concurrent callers.
type Engine struct {
	config config.Config
	logger *zap.Logger
}

// NewEngine creates an engine for config. A nil logger discards output.
func NewEngine(cfg config.Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{config: cfg, logger: logger}
}

// Run loads the design at filename and walks the configured scopes.
func (e *Engine) Run(filename string) (*tt.Report, error) {
	root, err := loader.Load(filename)
	if err != nil {
		return nil, err
	}
	return e.RunDesign(filename, root)
}

// RunDesign walks the configured scopes of an already loaded design. All
// selected scopes share one evaluation context and therefore one step
// budget.
func (e *Engine) RunDesign(filename string, root *ast.Scope) (*tt.Report, error) {
	scopes, err := loader.SelectScopes(root, e.config.Scopes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	logger := e.logger.With(zap.String("file", filename))
	ctx := eval.NewContext(
		eval.WithMaxSteps(e.config.MaxSteps),
		eval.WithLogger(logger),
	)
	rec := unroll.NewRecorder()
	v := unroll.New(ctx, unroll.WithObserver(rec), unroll.WithLogger(logger))
	for _, s := range scopes {
		v.Visit(s)
	}

	report := &tt.Report{
		Filename:  filename,
		Scopes:    append([]string(nil), e.config.Scopes...),
		AnyErrors: v.AnyErrors(),
		StepsUsed: ctx.StepsUsed(),
		MaxSteps:  ctx.MaxSteps(),
		Stats:     rec.Stats,
		Visits:    rec.Visits,
	}

	issues := rec.Issues
	if at, exhausted := ctx.Exhausted(); exhausted && !hasRule(issues, unroll.RuleStepLimit) {
		issues = append(issues, tt.Issue{
			Rule:     unroll.RuleStepLimit,
			Message:  fmt.Sprintf("step limit of %d reached", ctx.MaxSteps()),
			Note:     "constant reasoning is disabled for the rest of the walk",
			Severity: tt.SeverityWarning,
			Location: at,
		})
	}
	report.Issues = e.applyRules(filename, issues)

	logger.Debug("walk finished",
		zap.Int("visits", len(report.Visits)),
		zap.Int("steps", report.StepsUsed),
		zap.Bool("any_errors", report.AnyErrors))
	return report, nil
}

// applyRules sets configured severities and drops issues of rules that
// are turned off.
func (e *Engine) applyRules(filename string, issues []tt.Issue) []tt.Issue {
	out := make([]tt.Issue, 0, len(issues))
	for _, issue := range issues {
		issue.Severity = e.config.Severity(issue.Rule, issue.Severity)
		if issue.Severity == tt.SeverityOff {
			continue
		}
		issue.Filename = filename
		out = append(out, issue)
	}
	return out
}

func hasRule(issues []tt.Issue, rule string) bool {
	for _, issue := range issues {
		if issue.Rule == rule {
			return true
		}
	}
	return false
}
