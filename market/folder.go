package market

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	portfolio "github.com/etnz/stockfolio"
	"github.com/rs/zerolog/log"
)

// A market folder is human readable and git friendly:
//
//	listings.jsonl  one {"ticker":"AAPL","listed":"1980-12-12"} per line
//	2022.jsonl      one {"on":"2022-01-03","AAPL":182.01,"MSFT":334.75} per trading day
//
// Prices are split in one file per year. Tickers within a line are sorted.
const (
	ListingsFile = "listings.jsonl"
	pricesGlob   = "[0-9][0-9][0-9][0-9].jsonl"
	attrOn       = "on"
)

type jlisting struct {
	Ticker string         `json:"ticker"`
	Listed portfolio.Date `json:"listed"`
}

// DecodeFolder reads a market folder. A folder without a listings file is an empty
// market.
func DecodeFolder(dir string) (*Quotes, error) {
	q := NewQuotes()

	listingsPath := filepath.Join(dir, ListingsFile)
	f, err := os.Open(listingsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open market listings %q: %w", listingsPath, err)
	}
	defer f.Close()
	if err := decodeListings(listingsPath, f, q); err != nil {
		return nil, err
	}

	filenames, err := filepath.Glob(filepath.Join(dir, pricesGlob))
	if err != nil {
		return nil, fmt.Errorf("cannot scan folder %q for market data files: %w", dir, err)
	}
	for _, filename := range filenames {
		if err := decodePricesFile(filename, q); err != nil {
			return nil, err
		}
	}
	log.Debug().Str("dir", dir).Int("tickers", len(q.listed)).Int("files", len(filenames)).Msg("market folder decoded")
	return q, nil
}

func decodeListings(filename string, r io.Reader, q *Quotes) error {
	scanner := bufio.NewScanner(r)
	for i := 1; scanner.Scan(); i++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var jl jlisting
		if err := json.Unmarshal(line, &jl); err != nil {
			return fmt.Errorf("parse error %s:%d: %w", filename, i, err)
		}
		if jl.Ticker == "" || jl.Listed.IsZero() {
			return fmt.Errorf("parse error %s:%d: ticker and listing date are required", filename, i)
		}
		if _, dup := q.listed[jl.Ticker]; dup {
			return fmt.Errorf("parse error %s:%d: ticker %q is already listed", filename, i, jl.Ticker)
		}
		q.List(jl.Ticker, jl.Listed)
	}
	return scanner.Err()
}

func decodePricesFile(filename string, q *Quotes) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot open %q for reading: %w", filename, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for i := 1; scanner.Scan(); i++ {
		if err := decodeDailyPrices(scanner.Bytes(), q); err != nil {
			return fmt.Errorf("parse error %s:%d: %w", filename, i, err)
		}
	}
	return scanner.Err()
}

// decodeDailyPrices decodes a single line of a prices file.
func decodeDailyPrices(line []byte, q *Quotes) error {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	jobj := make(map[string]json.RawMessage)
	if err := json.Unmarshal(line, &jobj); err != nil {
		return fmt.Errorf("not a correct json: %w", err)
	}
	jon, ok := jobj[attrOn]
	if !ok {
		return fmt.Errorf("missing the property %q with a date", attrOn)
	}
	var on portfolio.Date
	if err := json.Unmarshal(jon, &on); err != nil || on.IsZero() {
		return fmt.Errorf("property %q must be a valid date: %s", attrOn, jon)
	}

	for ticker, raw := range jobj {
		if ticker == attrOn {
			continue
		}
		if _, listed := q.listed[ticker]; !listed {
			return fmt.Errorf("property %q must be a listed ticker", ticker)
		}
		if len(raw) == 0 || raw[0] == '"' {
			return fmt.Errorf("property %q must be of type 'number'", ticker)
		}
		price, err := portfolio.ParseMoney(string(raw))
		if err != nil {
			return fmt.Errorf("property %q must be of type 'number': %w", ticker, err)
		}
		q.Add(ticker, on, price)
	}
	return nil
}

// EncodeFolder writes q into dir. Yearly files that no longer hold prices are removed.
func EncodeFolder(dir string, q *Quotes) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tickers := q.Tickers()

	var listings bytes.Buffer
	for _, ticker := range tickers {
		listed, _ := q.ListingDate(context.Background(), ticker)
		data, err := json.Marshal(jlisting{Ticker: ticker, Listed: listed})
		if err != nil {
			return fmt.Errorf("cannot marshal listing %q: %w", ticker, err)
		}
		listings.Write(append(data, '\n'))
	}
	if err := os.WriteFile(filepath.Join(dir, ListingsFile), listings.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cannot write market listings: %w", err)
	}

	// one buffer per yearly file
	files := make(map[string]*bytes.Buffer)
	for _, day := range q.Days() {
		var jw jsonObjectWriter
		jw.Append(attrOn, day)
		for _, ticker := range tickers {
			if price, ok, _ := q.Price(context.Background(), ticker, day); ok {
				jw.Append(ticker, price)
			}
		}
		b, err := jw.MarshalJSON()
		if err != nil {
			return err
		}
		name := filepath.Join(dir, fmt.Sprintf("%d.jsonl", day.Year()))
		buf, ok := files[name]
		if !ok {
			buf = new(bytes.Buffer)
			files[name] = buf
		}
		buf.Write(append(b, '\n'))
	}
	for name, buf := range files {
		if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("cannot write %q: %w", name, err)
		}
	}

	existing, err := filepath.Glob(filepath.Join(dir, pricesGlob))
	if err != nil {
		return err
	}
	for _, name := range existing {
		if _, ok := files[name]; ok {
			continue
		}
		log.Debug().Str("file", name).Msg("removing stale market file")
		if err := os.Remove(name); err != nil {
			return err
		}
	}
	return nil
}
