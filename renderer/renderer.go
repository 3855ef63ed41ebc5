// Package renderer turns portfolio reports into markdown.
package renderer

import (
	"fmt"
	"strings"
	"text/template"

	portfolio "github.com/etnz/stockfolio"
)

var funcs = template.FuncMap{
	"bar":    func(n int) string { return strings.Repeat("*", n) },
	"signed": signed,
}

// signed prints an amount with an explicit sign.
func signed(m portfolio.Money) string {
	if m.IsNegative() {
		return m.String()
	}
	return "+" + m.String()
}

// renderTemplate parses and executes a template. Failures are rendered in place of the
// report.
func renderTemplate(name, text string, data any) string {
	tmpl, err := template.New(name).Funcs(funcs).Parse(text)
	if err != nil {
		return fmt.Sprintf("error parsing template %q: %v", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", name, err)
	}
	return b.String()
}
