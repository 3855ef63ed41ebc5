package renderer

import (
	"context"

	portfolio "github.com/etnz/stockfolio"
)

// Holding is the content of a portfolio on a given day, priced.
// Numbers are handled using the exact decimal types (Money, Quantity)
// so that they already know how to print themselves.
type Holding struct {
	// Name of the portfolio.
	Portfolio string `json:"portfolio"`
	// Kind of the portfolio, rigid or flexible.
	Kind portfolio.Kind `json:"kind"`
	// Date of the holding.
	Date portfolio.Date `json:"date"`
	// Securities held on that day, in ticker order.
	Securities []HoldingSecurity `json:"securities"`
	// Value is the market value of all securities.
	Value portfolio.Money `json:"value"`
	// CostBasis is the money committed up to that day.
	CostBasis portfolio.Money `json:"costBasis"`
	// Gain is Value minus CostBasis.
	Gain portfolio.Money `json:"gain"`
}

// HoldingSecurity is a single position.
type HoldingSecurity struct {
	Ticker      string             `json:"ticker"`
	Quantity    portfolio.Quantity `json:"quantity"`
	Price       portfolio.Money    `json:"price"`
	MarketValue portfolio.Money    `json:"marketValue"`
}

// NewHolding prices the composition of a portfolio on day.
func NewHolding(ctx context.Context, b *portfolio.Book, id int, day portfolio.Date) (*Holding, error) {
	p, err := b.User().Portfolio(id)
	if err != nil {
		return nil, err
	}
	comp, err := b.Composition(id, day)
	if err != nil {
		return nil, err
	}
	h := &Holding{Portfolio: p.Name, Kind: p.Kind, Date: day, Securities: make([]HoldingSecurity, 0, len(comp))}
	for _, ticker := range comp.Tickers() {
		price, err := b.Prices().PriceAsOf(ctx, ticker, day)
		if err != nil {
			return nil, err
		}
		h.Securities = append(h.Securities, HoldingSecurity{
			Ticker:      ticker,
			Quantity:    comp[ticker],
			Price:       price,
			MarketValue: price.Mul(comp[ticker]),
		})
	}
	if h.Value, err = b.Value(ctx, id, day); err != nil {
		return nil, err
	}
	if h.CostBasis, err = b.CostBasis(ctx, id, day); err != nil {
		return nil, err
	}
	h.Gain = h.Value.Sub(h.CostBasis)
	return h, nil
}

const holdingMarkdownTemplate = `# {{ .Portfolio }} on {{ .Date }}

Total Value: **{{ .Value }}**

{{- if .Securities }}

| Ticker | Quantity | Price | Market Value |
|:---|---:|---:|---:|
{{- range .Securities }}
| {{ .Ticker }} | {{ .Quantity }} | {{ .Price }} | {{ .MarketValue }} |
{{- end }}
| **Total** | | | **{{ .Value }}** |
{{- else }}

No securities held.
{{- end }}

* Cost basis: {{ .CostBasis }}
* Gain: {{ signed .Gain }}
`

// RenderHolding renders a holding to markdown.
func RenderHolding(h *Holding) string {
	return renderTemplate("holding", holdingMarkdownTemplate, h)
}
