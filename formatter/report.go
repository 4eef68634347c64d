package formatter

import (
	"fmt"
	"strings"

	tt "github.com/gnoswap-labs/unroll/internal/types"
)

// FormatReport renders one report: the visits in walk order, the issues and
// a summary line. quiet omits the visits.
func FormatReport(r *tt.Report, quiet bool) string {
	var b strings.Builder
	b.WriteString(fileStyle.Sprintf("== %s", r.Filename))
	if len(r.Scopes) > 0 {
		b.WriteString(fileStyle.Sprintf(" [%s]", strings.Join(r.Scopes, ", ")))
	}
	b.WriteString("\n")

	if !quiet {
		for _, v := range r.Visits {
			b.WriteString(formatVisit(v))
		}
	}

	issues := make([]tt.Issue, len(r.Issues))
	for i, issue := range r.Issues {
		issue.Filename = r.Filename
		issues[i] = issue
	}
	b.WriteString(GenerateFormattedIssue(issues))
	b.WriteString(summary(r))
	return b.String()
}

func formatVisit(v tt.Visit) string {
	line := lineStyle.Sprintf("%-12s", v.Location.String()) + " " + v.Expr
	if len(v.Bindings) > 0 {
		parts := make([]string, len(v.Bindings))
		for i, bnd := range v.Bindings {
			parts[i] = bnd.Name + "=" + bnd.Value
		}
		line += "  " + valueStyle.Sprint(strings.Join(parts, " "))
	}
	return line + "\n"
}

func summary(r *tt.Report) string {
	s := r.Stats
	line := fmt.Sprintf("%d visits, %d loops unrolled (%d iterations), %d fallen back, "+
		"%d conditionals folded, %d dual-visited, %d/%d steps\n",
		s.ExpressionsVisited, s.LoopsUnrolled, s.IterationsReplayed, s.LoopsFallenBack,
		s.ConditionalsFolded, s.ConditionalsDual, r.StepsUsed, r.MaxSteps)
	if r.AnyErrors {
		line += warningStyle.Sprint("degraded: ") + "step limit reached, constant reasoning was disabled\n"
	}
	return line
}

// FormatTotals renders a one-line total over several reports.
func FormatTotals(reports []*tt.Report) string {
	var visits, issues, degraded int
	for _, r := range reports {
		visits += len(r.Visits)
		issues += len(r.Issues)
		if r.AnyErrors {
			degraded++
		}
	}
	return fmt.Sprintf("%d files, %d visits, %d issues, %d degraded\n", len(reports), visits, issues, degraded)
}
