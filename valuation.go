package portfolio

import (
	"context"
	"fmt"
)

// ValueAsOf computes the market value of the portfolio on day: the sum over its
// holdings of quantity times the price on the closest trading day on or before day.
func (p *Portfolio) ValueAsOf(ctx context.Context, prices *Pricer, day Date) (Money, error) {
	holdings := p.Holdings(day)
	var total Money
	for _, ticker := range holdings.Tickers() {
		price, err := prices.PriceAsOf(ctx, ticker, day)
		if err != nil {
			return Money{}, fmt.Errorf("value of portfolio %d on %s: %w", p.ID, day, err)
		}
		total = total.Add(price.Mul(holdings[ticker]))
	}
	return total, nil
}

// CostBasisAsOf computes the money committed to the portfolio up to day.
//
// For a flexible portfolio every buy adds its price on the buy date times its
// quantity plus its commission, and every sell adds its commission only. Sells never
// reduce the cost basis, so it never decreases as day advances.
//
// For a rigid portfolio each stock acquired on or before day adds its price on the
// acquisition date times its quantity. Stocks without an acquisition date are not
// counted.
func (p *Portfolio) CostBasisAsOf(ctx context.Context, prices *Pricer, day Date) (Money, error) {
	var total Money
	switch p.Kind {
	case Rigid:
		for _, s := range p.Stocks {
			if s.Date.IsZero() || s.Date.After(day) {
				continue
			}
			price, err := prices.PriceAsOf(ctx, s.Ticker, s.Date)
			if err != nil {
				return Money{}, fmt.Errorf("cost basis of portfolio %d on %s: %w", p.ID, day, err)
			}
			total = total.Add(price.Mul(s.Quantity))
		}
	default:
		l, _ := p.Ledger()
		for tx := range l.Until(day) {
			if tx.Action == ActionBuy {
				price, err := prices.PriceAsOf(ctx, tx.Ticker, tx.Date)
				if err != nil {
					return Money{}, fmt.Errorf("cost basis of portfolio %d on %s: %w", p.ID, day, err)
				}
				total = total.Add(price.Mul(tx.Quantity))
			}
			total = total.Add(tx.Commission)
		}
	}
	return total, nil
}
