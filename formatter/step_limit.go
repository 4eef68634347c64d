package formatter

// StepLimitFormatter adds a hint on raising the budget to step limit issues.
type StepLimitFormatter struct{}

func (f *StepLimitFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .Filename .Location -}}
{{message .Message -}}
{{if .Note}}{{note .Note}}{{end -}}
{{hint "raise max_steps in .unroll.yaml or pass --max-steps"}}
`
}
