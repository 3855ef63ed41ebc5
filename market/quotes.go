// Package market provides sources of closing prices and listing dates.
package market

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	portfolio "github.com/etnz/stockfolio"
)

// history stores a chronological series of prices. Dates are unique.
type history struct {
	days   []portfolio.Date
	prices []portfolio.Money
}

func (h *history) search(day portfolio.Date) (int, bool) {
	return slices.BinarySearchFunc(h.days, day, portfolio.Date.Compare)
}

// append adds a price on a day. An existing price on that day is replaced.
func (h *history) append(on portfolio.Date, price portfolio.Money) {
	i, found := h.search(on)
	if found {
		h.prices[i] = price
		return
	}
	h.days = slices.Insert(h.days, i, on)
	h.prices = slices.Insert(h.prices, i, price)
}

// get returns the price on that exact day.
func (h *history) get(day portfolio.Date) (portfolio.Money, bool) {
	if i, found := h.search(day); found {
		return h.prices[i], true
	}
	return portfolio.Money{}, false
}

func (h *history) values() iter.Seq2[portfolio.Date, portfolio.Money] {
	return func(yield func(portfolio.Date, portfolio.Money) bool) {
		for i, on := range h.days {
			if !yield(on, h.prices[i]) {
				return
			}
		}
	}
}

// Quotes is an in-memory market. It is safe for concurrent use.
type Quotes struct {
	mu     sync.RWMutex
	listed map[string]portfolio.Date
	prices map[string]*history
}

var _ portfolio.Market = (*Quotes)(nil)

// NewQuotes returns an empty market.
func NewQuotes() *Quotes {
	return &Quotes{listed: make(map[string]portfolio.Date), prices: make(map[string]*history)}
}

// List declares that ticker trades since day.
func (q *Quotes) List(ticker string, day portfolio.Date) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listed[ticker] = day
}

// Add records the closing price of ticker on day. A ticker seen for the first time is
// listed on day.
func (q *Quotes) Add(ticker string, day portfolio.Date, price portfolio.Money) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.listed[ticker]; !ok {
		q.listed[ticker] = day
	}
	h, ok := q.prices[ticker]
	if !ok {
		h = new(history)
		q.prices[ticker] = h
	}
	h.append(day, price)
}

// Price implements portfolio.PriceSource.
func (q *Quotes) Price(_ context.Context, ticker string, day portfolio.Date) (portfolio.Money, bool, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	h, ok := q.prices[ticker]
	if !ok {
		return portfolio.Money{}, false, nil
	}
	price, ok := h.get(day)
	return price, ok, nil
}

// ListingDate implements portfolio.Listings.
func (q *Quotes) ListingDate(_ context.Context, ticker string) (portfolio.Date, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	day, ok := q.listed[ticker]
	if !ok {
		return portfolio.Date{}, fmt.Errorf("%w: %q", portfolio.ErrUnknownTicker, ticker)
	}
	return day, nil
}

// Tickers returns the listed tickers in alphabetical order.
func (q *Quotes) Tickers() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return slices.Sorted(maps.Keys(q.listed))
}

// Prices returns an iterator over the prices of ticker, in chronological order.
func (q *Quotes) Prices(ticker string) iter.Seq2[portfolio.Date, portfolio.Money] {
	return func(yield func(portfolio.Date, portfolio.Money) bool) {
		q.mu.RLock()
		var h history
		if src, ok := q.prices[ticker]; ok {
			h = history{days: slices.Clone(src.days), prices: slices.Clone(src.prices)}
		}
		q.mu.RUnlock()
		for day, price := range h.values() {
			if !yield(day, price) {
				return
			}
		}
	}
}

// Days returns every day with at least one price, in chronological order.
func (q *Quotes) Days() []portfolio.Date {
	q.mu.RLock()
	defer q.mu.RUnlock()
	set := make(map[portfolio.Date]struct{})
	for _, h := range q.prices {
		for _, day := range h.days {
			set[day] = struct{}{}
		}
	}
	return slices.SortedFunc(maps.Keys(set), portfolio.Date.Compare)
}
