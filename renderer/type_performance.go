package renderer

import (
	"fmt"
	"math"

	portfolio "github.com/etnz/stockfolio"
)

// AxisTicks is the number of intervals of the dollar axis.
const AxisTicks = 10

// Performance is a bar chart of sampled portfolio values.
type Performance struct {
	Portfolio   string            `json:"portfolio"`
	Range       portfolio.Range   `json:"range"`
	Granularity int               `json:"granularity"`
	Points      []portfolio.Point `json:"points"`
	Base        portfolio.Money   `json:"base"`
	Scale       portfolio.Money   `json:"scale"`
	Axis        []portfolio.Money `json:"axis"`

	Mean           string          `json:"mean"`
	StdDev         string          `json:"stdDev"`
	Change         portfolio.Money `json:"change"`
	RelativeChange string          `json:"relativeChange"`
}

// NewPerformance prepares a sampled performance for rendering.
func NewPerformance(name string, r portfolio.Range, perf *portfolio.Performance) *Performance {
	s := perf.Summary()
	rel := "n/a"
	if !math.IsNaN(s.RelativeChange) {
		rel = fmt.Sprintf("%+.2f%%", 100*s.RelativeChange)
	}
	return &Performance{
		Portfolio:      name,
		Range:          r,
		Granularity:    perf.Granularity,
		Points:         perf.Points,
		Base:           perf.Base,
		Scale:          perf.Scale,
		Axis:           perf.Axis(AxisTicks),
		Mean:           fmt.Sprintf("$%.2f", s.Mean),
		StdDev:         fmt.Sprintf("$%.2f", s.StdDev),
		Change:         s.Change,
		RelativeChange: rel,
	}
}

const performanceMarkdownTemplate = `# {{ .Portfolio }} performance from {{ .Range.From }} to {{ .Range.To }}

Sampled every {{ .Granularity }} day(s). {{ if .Scale.IsZero }}The value did not change.{{ else }}Each * is worth {{ .Scale }} above {{ .Base }}.{{ end }}

` + "```" + `
{{- range .Points }}
{{ .Date }} {{ .Value }} {{ bar .Magnitude }}
{{- end }}
` + "```" + `

Axis: {{ range $i, $v := .Axis }}{{ if $i }} | {{ end }}{{ $v }}{{ end }}

| Statistic | Value |
|:---|---:|
| Mean | {{ .Mean }} |
| Standard deviation | {{ .StdDev }} |
| Change | {{ signed .Change }} |
| Relative change | {{ .RelativeChange }} |
`

// RenderPerformance renders a performance to markdown.
func RenderPerformance(p *Performance) string {
	return renderTemplate("performance", performanceMarkdownTemplate, p)
}
