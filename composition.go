package portfolio

import (
	"maps"
	"slices"
)

// Composition maps tickers to the quantity held.
type Composition map[string]Quantity

// Tickers returns the tickers of the composition in alphabetical order.
func (c Composition) Tickers() []string {
	return slices.Sorted(maps.Keys(c))
}

// Equal reports whether both compositions hold the same quantities.
func (c Composition) Equal(o Composition) bool {
	return maps.EqualFunc(c, o, Quantity.Equal)
}

// CompositionAsOf replays every transaction dated on or before day and returns the
// resulting holdings. Positions that are exactly zero are omitted.
//
// The result is derived from the ledger only. It is memoized until the next append;
// callers must not modify it.
func (l *Ledger) CompositionAsOf(day Date) Composition {
	if c, ok := l.compositions[day]; ok {
		return c
	}
	c := make(Composition)
	for tx := range l.Until(day) {
		c[tx.Ticker] = c[tx.Ticker].Add(tx.Delta())
	}
	for ticker, q := range c {
		if q.IsZero() {
			delete(c, ticker)
		}
	}
	if l.compositions == nil {
		l.compositions = make(map[Date]Composition)
	}
	l.compositions[day] = c
	return c
}

// Position returns the quantity held of a single ticker on day.
func (l *Ledger) Position(ticker string, day Date) Quantity {
	return l.CompositionAsOf(day)[ticker]
}
