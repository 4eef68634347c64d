package formatter

type GeneralIssueFormatter struct{}

func (f *GeneralIssueFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .Filename .Location -}}
{{message .Message -}}
{{if .Note}}{{note .Note}}{{end}}
`
}
