package renderer

import (
	"fmt"

	portfolio "github.com/etnz/stockfolio"
)

// Transaction renders a transaction to a string.
func Transaction(tx portfolio.Transaction) string {
	switch tx.Action {
	case portfolio.ActionBuy:
		return fmt.Sprintf("Bought %s of %s on %s (commission %s)", tx.Quantity, tx.Ticker, tx.Date, tx.Commission)
	case portfolio.ActionSell:
		return fmt.Sprintf("Sold %s of %s on %s (commission %s)", tx.Quantity, tx.Ticker, tx.Date, tx.Commission)
	default:
		return tx.String()
	}
}

// Transactions is the log of a flexible portfolio.
type Transactions struct {
	Portfolio    string                  `json:"portfolio"`
	Transactions []portfolio.Transaction `json:"transactions"`
}

const transactionsMarkdownTemplate = `# {{ .Portfolio }} transactions
{{ if .Transactions }}
| Date | Action | Ticker | Quantity | Commission |
|:---|:---|:---|---:|---:|
{{- range .Transactions }}
| {{ .Date }} | {{ .Action }} | {{ .Ticker }} | {{ .Quantity }} | {{ .Commission }} |
{{- end }}
{{ else }}
No transactions.
{{ end -}}
`

// RenderTransactions renders a transaction log to markdown.
func RenderTransactions(t *Transactions) string {
	return renderTemplate("transactions", transactionsMarkdownTemplate, t)
}
