package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/fatih/color"

	tt "github.com/gnoswap-labs/unroll/internal/types"
	"github.com/gnoswap-labs/unroll/internal/unroll"
)

var (
	errorStyle      = color.New(color.FgRed, color.Bold)
	warningStyle    = color.New(color.FgHiYellow, color.Bold)
	infoStyle       = color.New(color.FgHiBlue, color.Bold)
	ruleStyle       = color.New(color.FgYellow, color.Bold)
	fileStyle       = color.New(color.FgCyan, color.Bold)
	lineStyle       = color.New(color.FgHiBlue, color.Bold)
	messageStyle    = color.New(color.FgRed, color.Bold)
	suggestionStyle = color.New(color.FgGreen, color.Bold)
	valueStyle      = color.New(color.FgMagenta)
)

// issueFormatter is the interface that wraps the IssueTemplate method.
// Implementations are responsible for formatting specific kinds of issues.
type issueFormatter interface {
	IssueTemplate() string
}

// getIssueFormatter returns the formatter for rule, falling back to
// GeneralIssueFormatter.
func getIssueFormatter(rule string) issueFormatter {
	switch rule {
	case unroll.RuleStepLimit:
		return &StepLimitFormatter{}
	default:
		return &GeneralIssueFormatter{}
	}
}

// GenerateFormattedIssue formats issues into a human-readable string.
func GenerateFormattedIssue(issues []tt.Issue) string {
	var builder strings.Builder
	for _, issue := range issues {
		builder.WriteString(buildIssue(issue, getIssueFormatter(issue.Rule)))
	}
	return builder.String()
}

/***** Issue Formatter Builder *****/

type IssueData struct {
	Severity string
	Rule     string
	Filename string
	Location string
	Message  string
	Note     string
}

func buildIssue(issue tt.Issue, formatter issueFormatter) string {
	data := IssueData{
		Severity: issue.Severity.String(),
		Rule:     issue.Rule,
		Filename: issue.Filename,
		Location: issue.Location.String(),
		Message:  issue.Message,
		Note:     issue.Note,
	}

	funcMap := template.FuncMap{
		"header":  header,
		"message": message,
		"note":    note,
		"hint":    hint,
	}

	tmpl := template.Must(template.New("issue").Funcs(funcMap).Parse(formatter.IssueTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}
	return buf.String()
}

// utils functions used in the text templates

func header(rule, severity, filename, location string) string {
	var endString string
	switch severity {
	case "ERROR":
		endString = errorStyle.Sprint("error: ")
	case "WARNING":
		endString = warningStyle.Sprint("warning: ")
	case "INFO":
		endString = infoStyle.Sprint("info: ")
	}
	endString += ruleStyle.Sprintf("%s\n", rule)
	endString += lineStyle.Sprint(" --> ")
	if filename != "" {
		endString += fileStyle.Sprintf("%s @ ", filename)
	}
	endString += fileStyle.Sprintf("%s\n", location)
	return endString
}

func message(msg string) string {
	return lineStyle.Sprint("  = ") + messageStyle.Sprintf("%s\n", msg)
}

func note(note string) string {
	if note == "" {
		return ""
	}
	return suggestionStyle.Sprint("Note: ") + lineStyle.Sprintf("%s\n", note)
}

func hint(text string) string {
	return suggestionStyle.Sprint("Hint: ") + lineStyle.Sprintf("%s\n", text)
}
