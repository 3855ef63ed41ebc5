package portfolio

import (
	"fmt"
	"slices"
	"strings"
)

// Kind tells which variant a Portfolio is.
type Kind string

// Portfolio kinds.
const (
	// Rigid portfolios have a fixed composition, set once at creation.
	Rigid Kind = "rigid"
	// Flexible portfolios derive their composition from a ledger of transactions.
	Flexible Kind = "flexible"
)

// ParseKind parses "rigid" or "flexible".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Rigid, Flexible:
		return k, nil
	default:
		return "", fmt.Errorf("unknown portfolio kind %q", s)
	}
}

// Stock is a static holding of a rigid portfolio.
type Stock struct {
	Ticker   string   `json:"ticker"`
	Quantity Quantity `json:"quantity"`
	Date     Date     `json:"date"` // acquisition date, optional
}

// Portfolio is either Rigid, holding a static list of stocks, or Flexible, holding a
// ledger. Fields of the other variant are left empty.
type Portfolio struct {
	ID   int
	Name string
	Kind Kind

	Stocks []Stock // Rigid only

	LedgerFile string  // Flexible only, the ledger file name within the user folder
	ledger     *Ledger // Flexible only, nil until loaded
}

// Ledger returns the ledger of a flexible portfolio.
func (p *Portfolio) Ledger() (*Ledger, error) {
	switch p.Kind {
	case Flexible:
		if p.ledger == nil {
			p.ledger = NewLedger()
		}
		return p.ledger, nil
	default:
		return nil, fmt.Errorf("portfolio %d %q: %w", p.ID, p.Name, ErrRigidPortfolio)
	}
}

// Holdings returns the composition of the portfolio on day.
//
// Rigid portfolios hold every stock whose acquisition date is unset or on or before
// day. Flexible portfolios replay their ledger.
func (p *Portfolio) Holdings(day Date) Composition {
	switch p.Kind {
	case Rigid:
		c := make(Composition)
		for _, s := range p.Stocks {
			if !s.Date.IsZero() && s.Date.After(day) {
				continue
			}
			c[s.Ticker] = c[s.Ticker].Add(s.Quantity)
		}
		for ticker, q := range c {
			if q.IsZero() {
				delete(c, ticker)
			}
		}
		return c
	default:
		l, _ := p.Ledger()
		return l.CompositionAsOf(day)
	}
}

// Tickers returns every ticker the portfolio ever held, sorted.
func (p *Portfolio) Tickers() []string {
	switch p.Kind {
	case Rigid:
		tickers := make([]string, 0, len(p.Stocks))
		for _, s := range p.Stocks {
			tickers = append(tickers, s.Ticker)
		}
		slices.Sort(tickers)
		return slices.Compact(tickers)
	default:
		l, _ := p.Ledger()
		return l.Tickers()
	}
}

func (p *Portfolio) String() string { return fmt.Sprintf("%d %s (%s)", p.ID, p.Name, p.Kind) }
