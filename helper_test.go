package portfolio

import (
	"context"
	"fmt"
	"sync"
)

// fakeMarket is an in-memory Market for tests.
type fakeMarket struct {
	mu     sync.Mutex
	listed map[string]Date
	quotes map[string]map[Date]Money
	calls  int // Price calls
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{listed: make(map[string]Date), quotes: make(map[string]map[Date]Money)}
}

// list lists ticker on day.
func (m *fakeMarket) list(ticker, day string) *fakeMarket {
	m.listed[ticker] = MustParse(day)
	return m
}

// quote sets the closing price of ticker on day.
func (m *fakeMarket) quote(ticker, day string, price float64) *fakeMarket {
	if m.quotes[ticker] == nil {
		m.quotes[ticker] = make(map[Date]Money)
	}
	m.quotes[ticker][MustParse(day)] = M(price)
	return m
}

// quoteDaily sets the same price on every day of [from, to].
func (m *fakeMarket) quoteDaily(ticker, from, to string, price float64) *fakeMarket {
	for d := MustParse(from); !d.After(MustParse(to)); d = d.Add(1) {
		m.quote(ticker, d.String(), price)
	}
	return m
}

func (m *fakeMarket) Price(_ context.Context, ticker string, day Date) (Money, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.quotes[ticker][day]
	return p, ok, nil
}

func (m *fakeMarket) ListingDate(_ context.Context, ticker string) (Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.listed[ticker]
	if !ok {
		return Date{}, fmt.Errorf("%s: %w", ticker, ErrUnknownTicker)
	}
	return d, nil
}

// testMarket lists AAPL and MSFT at the end of 2021 with constant prices through 2022,
// and NEWCO in mid 2022 without any price.
func testMarket() *fakeMarket {
	return newFakeMarket().
		list("AAPL", "2021-12-01").
		list("MSFT", "2021-12-01").
		list("NEWCO", "2022-06-01").
		quoteDaily("AAPL", "2021-12-01", "2022-12-31", 150).
		quoteDaily("MSFT", "2021-12-01", "2022-12-31", 300)
}

func buy(day, ticker string, q int, commission float64) Transaction {
	return NewBuy(MustParse(day), ticker, Q(q), M(commission))
}

func sell(day, ticker string, q int, commission float64) Transaction {
	return NewSell(MustParse(day), ticker, Q(q), M(commission))
}
