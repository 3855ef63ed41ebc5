package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/PaesslerAG/jsonpath"
	portfolio "github.com/etnz/stockfolio"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// DefaultEODHDURL is the EODHD API root.
const DefaultEODHDURL = "https://eodhd.com/api"

var errNotFound = errors.New("not found")

// EODHD fetches end of day prices from eodhd.com.
//
// Requests are rate limited, and a circuit breaker stops calling the API after
// repeated failures. You can get an API key at https://eodhd.com/
type EODHD struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

var (
	_ portfolio.Market           = (*EODHD)(nil)
	_ portfolio.RangePriceSource = (*EODHD)(nil)
)

// EODHDOption configures an EODHD client.
type EODHDOption func(*EODHD)

// WithBaseURL overrides the API root, mostly for tests.
func WithBaseURL(u string) EODHDOption { return func(c *EODHD) { c.baseURL = u } }

// WithHTTPClient sets the http client used for every request.
func WithHTTPClient(h *http.Client) EODHDOption { return func(c *EODHD) { c.client = h } }

// WithRate limits requests to rps per second with bursts of burst requests.
func WithRate(rps float64, burst int) EODHDOption {
	return func(c *EODHD) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewEODHD returns a client using apiKey.
func NewEODHD(apiKey string, opts ...EODHDOption) *EODHD {
	c := &EODHD{
		apiKey:  apiKey,
		baseURL: DefaultEODHDURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "eodhd",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// unknown tickers are a valid answer
			return err == nil || errors.Is(err, errNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state change")
		},
	})
	return c
}

// get calls an API endpoint and decodes the JSON payload. Numbers are decoded as
// json.Number to keep prices exact.
func (c *EODHD) get(ctx context.Context, path string, query url.Values) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	query.Set("fmt", "json")
	query.Set("api_token", c.apiKey)
	addr := c.baseURL + path + "?" + query.Encode()

	v, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		log.Debug().Str("method", req.Method).Str("host", req.URL.Host).Str("path", req.URL.Path).Int("status", resp.StatusCode).Msg("eodhd request")
		if resp.StatusCode == http.StatusNotFound {
			return nil, errNotFound
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
		}
		var payload any
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("cannot decode %v%v: %w", req.URL.Host, req.URL.Path, err)
		}
		return payload, nil
	})
	return v, err
}

// Price implements portfolio.PriceSource using the adjusted close of that day.
func (c *EODHD) Price(ctx context.Context, ticker string, day portfolio.Date) (portfolio.Money, bool, error) {
	quotes, err := c.Prices(ctx, ticker, portfolio.NewRange(day, day))
	if err != nil || len(quotes) == 0 {
		return portfolio.Money{}, false, err
	}
	return quotes[0].Price, true, nil
}

// Prices implements portfolio.RangePriceSource with a single request for the whole
// range. Unknown tickers have no quotes.
func (c *EODHD) Prices(ctx context.Context, ticker string, r portfolio.Range) ([]portfolio.Quote, error) {
	// from and to are inclusive.
	query := url.Values{"from": {r.From.String()}, "to": {r.To.String()}}
	payload, err := c.get(ctx, "/eod/"+url.PathEscape(ticker), query)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eodhd prices of %s on %s: %w", ticker, r, err)
	}

	jrecords, err := jsonpath.Get("$[*]", payload)
	if err != nil {
		return nil, fmt.Errorf("eodhd prices of %s on %s: unexpected payload: %w", ticker, r, err)
	}
	records, _ := jrecords.([]any)
	var quotes []portfolio.Quote
	for _, rec := range records {
		jdate, err := jsonpath.Get("$.date", rec)
		if err != nil {
			continue
		}
		s, _ := jdate.(string)
		day, err := portfolio.ParseDate(s)
		if err != nil || !r.Contains(day) {
			continue
		}
		jclose, err := jsonpath.Get("$.adjusted_close", rec)
		if err != nil {
			return nil, fmt.Errorf("eodhd price of %s on %s: %w", ticker, day, err)
		}
		price, err := toMoney(jclose)
		if err != nil {
			return nil, fmt.Errorf("eodhd price of %s on %s: %w", ticker, day, err)
		}
		quotes = append(quotes, portfolio.Quote{Day: day, Price: price})
	}
	slices.SortFunc(quotes, func(a, b portfolio.Quote) int { return a.Day.Compare(b.Day) })
	return quotes, nil
}

// ListingDate implements portfolio.Listings using the IPO date of the ticker.
func (c *EODHD) ListingDate(ctx context.Context, ticker string) (portfolio.Date, error) {
	payload, err := c.get(ctx, "/fundamentals/"+url.PathEscape(ticker), url.Values{"filter": {"General"}})
	if errors.Is(err, errNotFound) {
		return portfolio.Date{}, fmt.Errorf("%w: %q", portfolio.ErrUnknownTicker, ticker)
	}
	if err != nil {
		return portfolio.Date{}, fmt.Errorf("eodhd listing of %s: %w", ticker, err)
	}
	jval, err := jsonpath.Get("$.IPODate", payload)
	if err != nil {
		return portfolio.Date{}, fmt.Errorf("%w: %q has no listing date", portfolio.ErrUnknownTicker, ticker)
	}
	s, ok := jval.(string)
	if !ok || s == "" {
		return portfolio.Date{}, fmt.Errorf("%w: %q has no listing date", portfolio.ErrUnknownTicker, ticker)
	}
	day, err := portfolio.ParseDate(s)
	if err != nil {
		return portfolio.Date{}, fmt.Errorf("eodhd listing of %s: %w", ticker, err)
	}
	return day, nil
}

func toMoney(v any) (portfolio.Money, error) {
	switch x := v.(type) {
	case json.Number:
		return portfolio.ParseMoney(x.String())
	case float64:
		return portfolio.M(x), nil
	default:
		return portfolio.Money{}, fmt.Errorf("price is not a number: %v", v)
	}
}
