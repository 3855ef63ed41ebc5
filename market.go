package portfolio

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// PriceSource looks up closing prices.
//
// Price returns false when no price is quoted for that exact day, for instance on a
// non-trading day or before the ticker was listed. Implementations are not expected
// to fall back to a previous day; see Pricer for that.
type PriceSource interface {
	Price(ctx context.Context, ticker string, day Date) (Money, bool, error)
}

// Quote is the closing price of a ticker on a day.
type Quote struct {
	Day   Date
	Price Money
}

// RangePriceSource is implemented by price sources able to return every quote of a
// date range in one lookup. Pricer prefers it over day by day lookups.
//
// Prices returns the quotes within r in chronological order. Days without a quote are
// absent.
type RangePriceSource interface {
	Prices(ctx context.Context, ticker string, r Range) ([]Quote, error)
}

// Listings tells when a ticker started trading.
//
// ListingDate returns an error wrapping ErrUnknownTicker when the ticker is not listed.
type Listings interface {
	ListingDate(ctx context.Context, ticker string) (Date, error)
}

// Market is the external market data collaborator.
type Market interface {
	PriceSource
	Listings
}

// priceWindow is the number of days a RangePriceSource is asked for at once. Two weeks
// cover any weekend or holiday gap.
const priceWindow = 14

type priceKey struct {
	ticker string
	day    Date
}

// Pricer resolves the price of a ticker on any day, using the closest trading day on
// or before it. Resolved prices are memoized for the lifetime of the Pricer.
//
// A Pricer is safe for concurrent use.
type Pricer struct {
	market Market

	mu   sync.Mutex
	memo map[priceKey]Money
}

// NewPricer returns a Pricer over a market.
func NewPricer(market Market) *Pricer {
	return &Pricer{market: market, memo: make(map[priceKey]Money)}
}

// PriceAsOf returns the last quoted price of ticker on or before day.
//
// It walks back down to the listing date, and fails with a *PriceError wrapping
// ErrNoPriceData when nothing is quoted in that window. Markets implementing
// RangePriceSource are asked for priceWindow days at a time, the others for one day at
// a time.
func (p *Pricer) PriceAsOf(ctx context.Context, ticker string, day Date) (Money, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if price, ok := p.memo[priceKey{ticker, day}]; ok {
		return price, nil
	}
	listed, err := p.market.ListingDate(ctx, ticker)
	if err != nil {
		if errors.Is(err, ErrUnknownTicker) {
			return Money{}, &PriceError{Ticker: ticker, On: day, Err: err}
		}
		return Money{}, err
	}

	if src, ok := p.market.(RangePriceSource); ok {
		return p.latestInRanges(ctx, src, ticker, day, listed)
	}
	for on := day; !on.Before(listed); on = on.Add(-1) {
		if price, ok := p.memo[priceKey{ticker, on}]; ok {
			p.memo[priceKey{ticker, day}] = price
			return price, nil
		}
		if err := ctx.Err(); err != nil {
			return Money{}, err
		}
		price, ok, err := p.market.Price(ctx, ticker, on)
		if err != nil {
			return Money{}, err
		}
		if !ok {
			continue
		}
		if on != day {
			log.Debug().Str("ticker", ticker).Stringer("requested", day).Stringer("used", on).Msg("price fallback to previous trading day")
		}
		p.memo[priceKey{ticker, on}] = price
		p.memo[priceKey{ticker, day}] = price
		return price, nil
	}
	return Money{}, &PriceError{Ticker: ticker, On: day, Err: ErrNoPriceData}
}

// latestInRanges looks for the last quote on or before day, one window at a time.
// Every quote fetched is memoized. p.mu must be held.
func (p *Pricer) latestInRanges(ctx context.Context, src RangePriceSource, ticker string, day, listed Date) (Money, error) {
	for to := day; !to.Before(listed); {
		from := to.Add(1 - priceWindow)
		if from.Before(listed) {
			from = listed
		}
		quotes, err := src.Prices(ctx, ticker, NewRange(from, to))
		if err != nil {
			return Money{}, err
		}
		for _, q := range quotes {
			p.memo[priceKey{ticker, q.Day}] = q.Price
		}
		if n := len(quotes); n > 0 {
			last := quotes[n-1]
			if last.Day != day {
				log.Debug().Str("ticker", ticker).Stringer("requested", day).Stringer("used", last.Day).Msg("price fallback to previous trading day")
			}
			p.memo[priceKey{ticker, day}] = last.Price
			return last.Price, nil
		}
		to = from.Add(-1)
	}
	return Money{}, &PriceError{Ticker: ticker, On: day, Err: ErrNoPriceData}
}

// ListingDate forwards to the underlying market, so that a Pricer can validate
// transactions too.
func (p *Pricer) ListingDate(ctx context.Context, ticker string) (Date, error) {
	return p.market.ListingDate(ctx, ticker)
}
