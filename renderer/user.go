package renderer

import (
	portfolio "github.com/etnz/stockfolio"
)

const userMarkdownTemplate = `# {{ .Name }} (user {{ .ID }})

Default commission: {{ .Commission }}
{{ if .Portfolios }}
| ID | Name | Kind | Content |
|---:|:---|:---|:---|
{{- range .Portfolios }}
| {{ .ID }} | {{ .Name }} | {{ .Kind }} | {{ if eq .Kind "rigid" }}{{ len .Stocks }} stock(s){{ else }}{{ .LedgerFile }}{{ end }} |
{{- end }}
{{ else }}
No portfolios.
{{ end }}
{{- if .Plans }}
## Plans

| Plan | Portfolio | From | To | Every | Amount | Transactions |
|:---|---:|:---|:---|---:|---:|---:|
{{- range .Plans }}
| {{ .ID }} | {{ .Portfolio }} | {{ .From }} | {{ .To }} | {{ .Interval }} days | {{ .Amount }} | {{ .Transactions }} |
{{- end }}
{{ end -}}
`

// RenderUser renders a user and the list of its portfolios to markdown.
func RenderUser(u *portfolio.User) string {
	return renderTemplate("user", userMarkdownTemplate, u)
}
