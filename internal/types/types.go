package types

import (
	"fmt"
	"strings"

	"github.com/gnoswap-labs/unroll/internal/ast"
)

// Severity ranks an issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityOff
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	case SeverityOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the severity by name in JSON reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "ERROR":
		*s = SeverityError
	case "WARNING":
		*s = SeverityWarning
	case "INFO":
		*s = SeverityInfo
	case "OFF":
		*s = SeverityOff
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Issue is a notable event of a walk, such as a loop that could not be
// unrolled.
type Issue struct {
	Rule     string       `json:"rule"`
	Filename string       `json:"filename,omitempty"`
	Message  string       `json:"message"`
	Note     string       `json:"note,omitempty"`
	Severity Severity     `json:"severity"`
	Location ast.Location `json:"location"`
}

// Binding is the rendered value of one loop variable at a visit.
type Binding struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Visit records one visit of an expression statement together with the loop
// variable bindings that were live at that moment.
type Visit struct {
	Location ast.Location `json:"location"`
	Expr     string       `json:"expr"`
	Bindings []Binding    `json:"bindings,omitempty"`
}

// Stats summarizes the decisions of a walk.
type Stats struct {
	LoopsUnrolled      int `json:"loops_unrolled"`
	LoopsFallenBack    int `json:"loops_fallen_back"`
	IterationsReplayed int `json:"iterations_replayed"`
	ConditionalsFolded int `json:"conditionals_folded"`
	ConditionalsDual   int `json:"conditionals_dual_visited"`
	ExpressionsVisited int `json:"expressions_visited"`
}

// Report is the outcome of running the pass over one design file.
type Report struct {
	Filename  string   `json:"filename"`
	Scopes    []string `json:"scopes,omitempty"`
	AnyErrors bool     `json:"any_errors"`
	StepsUsed int      `json:"steps_used"`
	MaxSteps  int      `json:"max_steps"`
	Stats     Stats    `json:"stats"`
	Visits    []Visit  `json:"visits,omitempty"`
	Issues    []Issue  `json:"issues,omitempty"`
}
