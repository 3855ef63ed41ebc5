package market

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	portfolio "github.com/etnz/stockfolio"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS prices (
	ticker TEXT NOT NULL,
	day    TEXT NOT NULL,
	price  TEXT,
	PRIMARY KEY (ticker, day)
);
CREATE TABLE IF NOT EXISTS listings (
	ticker TEXT PRIMARY KEY,
	listed TEXT NOT NULL
);`

// Cache is a read-through SQLite cache in front of another market.
//
// Prices and listing dates are kept forever. Missing prices are cached too, except for
// today and later, where a price may still appear.
type Cache struct {
	db   *sql.DB
	next portfolio.Market
}

var (
	_ portfolio.Market           = (*Cache)(nil)
	_ portfolio.RangePriceSource = (*Cache)(nil)
)

// OpenCache opens or creates the cache database at path.
func OpenCache(path string, next portfolio.Market) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open price cache: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create price cache schema: %w", err)
	}
	return &Cache{db: db, next: next}, nil
}

// Close closes the database.
func (c *Cache) Close() error { return c.db.Close() }

// Price implements portfolio.PriceSource.
func (c *Cache) Price(ctx context.Context, ticker string, day portfolio.Date) (portfolio.Money, bool, error) {
	var price sql.NullString
	err := c.db.QueryRowContext(ctx, `SELECT price FROM prices WHERE ticker = ? AND day = ?`, ticker, day.String()).Scan(&price)
	switch {
	case err == nil:
		log.Debug().Str("ticker", ticker).Stringer("day", day).Msg("price cache hit")
		if !price.Valid {
			return portfolio.Money{}, false, nil
		}
		m, err := portfolio.ParseMoney(price.String)
		return m, err == nil, err
	case !errors.Is(err, sql.ErrNoRows):
		return portfolio.Money{}, false, fmt.Errorf("price cache lookup: %w", err)
	}

	log.Debug().Str("ticker", ticker).Stringer("day", day).Msg("price cache miss")
	m, ok, err := c.next.Price(ctx, ticker, day)
	if err != nil {
		return m, ok, err
	}
	if !ok && !day.Before(portfolio.Today()) {
		return m, ok, nil
	}
	c.store(ctx, ticker, day, m, ok)
	return m, ok, nil
}

// store records the price of a day, or its absence.
func (c *Cache) store(ctx context.Context, ticker string, day portfolio.Date, m portfolio.Money, ok bool) {
	var stored sql.NullString
	if ok {
		stored = sql.NullString{String: m.Decimal().String(), Valid: true}
	}
	if _, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO prices (ticker, day, price) VALUES (?, ?, ?)`, ticker, day.String(), stored); err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("price cache write ignored")
	}
}

// Prices implements portfolio.RangePriceSource.
//
// The range is served from the database when every one of its days is known. Otherwise
// the whole range is fetched at once from a next market implementing
// portfolio.RangePriceSource, or day by day through Price, and every day is stored
// under the same rules as Price.
func (c *Cache) Prices(ctx context.Context, ticker string, r portfolio.Range) ([]portfolio.Quote, error) {
	quotes, known, err := c.cached(ctx, ticker, r)
	if err != nil {
		return nil, err
	}
	if known == r.Span()+1 {
		log.Debug().Str("ticker", ticker).Stringer("range", r).Msg("price cache hit")
		return quotes, nil
	}

	src, ok := c.next.(portfolio.RangePriceSource)
	if !ok {
		quotes = quotes[:0]
		for day := r.From; !day.After(r.To); day = day.Add(1) {
			m, ok, err := c.Price(ctx, ticker, day)
			if err != nil {
				return nil, err
			}
			if ok {
				quotes = append(quotes, portfolio.Quote{Day: day, Price: m})
			}
		}
		return quotes, nil
	}

	log.Debug().Str("ticker", ticker).Stringer("range", r).Msg("price cache miss")
	quotes, err = src.Prices(ctx, ticker, r)
	if err != nil {
		return nil, err
	}
	today := portfolio.Today()
	i := 0
	for day := r.From; !day.After(r.To); day = day.Add(1) {
		if i < len(quotes) && quotes[i].Day == day {
			c.store(ctx, ticker, day, quotes[i].Price, true)
			i++
			continue
		}
		if day.Before(today) {
			c.store(ctx, ticker, day, portfolio.Money{}, false)
		}
	}
	return quotes, nil
}

// cached returns the cached quotes within r, and the number of days of r the cache
// knows about, quoted or not.
func (c *Cache) cached(ctx context.Context, ticker string, r portfolio.Range) ([]portfolio.Quote, int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT day, price FROM prices WHERE ticker = ? AND day >= ? AND day <= ? ORDER BY day`, ticker, r.From.String(), r.To.String())
	if err != nil {
		return nil, 0, fmt.Errorf("price cache lookup: %w", err)
	}
	defer rows.Close()
	var quotes []portfolio.Quote
	known := 0
	for rows.Next() {
		var day string
		var price sql.NullString
		if err := rows.Scan(&day, &price); err != nil {
			return nil, 0, fmt.Errorf("price cache lookup: %w", err)
		}
		known++
		if !price.Valid {
			continue
		}
		d, err := portfolio.ParseDate(day)
		if err != nil {
			return nil, 0, fmt.Errorf("price cache lookup: %w", err)
		}
		m, err := portfolio.ParseMoney(price.String)
		if err != nil {
			return nil, 0, fmt.Errorf("price cache lookup: %w", err)
		}
		quotes = append(quotes, portfolio.Quote{Day: d, Price: m})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("price cache lookup: %w", err)
	}
	return quotes, known, nil
}

// ListingDate implements portfolio.Listings. Unknown tickers are not cached.
func (c *Cache) ListingDate(ctx context.Context, ticker string) (portfolio.Date, error) {
	var listed string
	err := c.db.QueryRowContext(ctx, `SELECT listed FROM listings WHERE ticker = ?`, ticker).Scan(&listed)
	switch {
	case err == nil:
		return portfolio.ParseDate(listed)
	case !errors.Is(err, sql.ErrNoRows):
		return portfolio.Date{}, fmt.Errorf("listing cache lookup: %w", err)
	}

	day, err := c.next.ListingDate(ctx, ticker)
	if err != nil {
		return day, err
	}
	if _, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO listings (ticker, listed) VALUES (?, ?)`, ticker, day.String()); err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("listing cache write ignored")
	}
	return day, nil
}
