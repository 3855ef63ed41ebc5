package portfolio

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PlanSpec describes a dollar cost averaging plan.
type PlanSpec struct {
	Range      Range                      // first and last possible execution dates
	Interval   int                        // days between two executions
	Amount     Money                      // invested on each execution, before commission
	Commission Money                      // charged once per execution
	Weights    map[string]decimal.Decimal // ticker to percentage of Amount, summing to 100
}

// Validate checks the plan on its own. Errors are *PlanError.
func (s PlanSpec) Validate() error {
	if len(s.Weights) == 0 {
		return &PlanError{Err: ErrWeightsNotNormalized}
	}
	sum := decimal.Zero
	for ticker, w := range s.Weights {
		if ticker == "" || w.IsNegative() {
			return &PlanError{Err: fmt.Errorf("%w: %q weighs %s", ErrWeightsNotNormalized, ticker, w)}
		}
		sum = sum.Add(w)
	}
	if !sum.Equal(hundred) {
		return &PlanError{Err: fmt.Errorf("%w: got %s", ErrWeightsNotNormalized, sum)}
	}
	if s.Interval <= 0 {
		return &PlanError{Err: fmt.Errorf("%w: %d days", ErrInvalidInterval, s.Interval)}
	}
	if s.Range.From.IsZero() || s.Range.To.IsZero() || s.Range.To.Before(s.Range.From) {
		return &PlanError{Err: fmt.Errorf("%w: %s", ErrInvalidInterval, s.Range)}
	}
	if !s.Amount.IsPositive() {
		return &PlanError{Err: fmt.Errorf("%w: %s", ErrNonPositiveAmount, s.Amount)}
	}
	if s.Commission.IsNegative() {
		return &PlanError{Err: ErrNegativeCommission}
	}
	return nil
}

// Schedule returns the execution dates: every Interval days from Range.From up to
// Range.To included.
func (s PlanSpec) Schedule() []Date {
	var dates []Date
	for d := s.Range.From; !d.After(s.Range.To); d = d.Add(s.Interval) {
		dates = append(dates, d)
	}
	return dates
}

// BuildPlan generates the buys of a plan for a flexible portfolio.
//
// On each scheduled date, each ticker gets floor(Amount × weight / 100 / price) shares,
// priced on that date or the closest trading day before. Tickers whose quantity is zero
// are skipped. The commission is charged once per date, on the first remaining ticker in
// alphabetical order. A date before the listing of a ticker fails with ErrPriorToListing
// before any price is looked up.
//
// The generated transactions are validated against a copy of the portfolio ledger, as a
// single batch: the plan is either valid as a whole or rejected with a *PlanError. The
// portfolio is never modified.
func (p *Portfolio) BuildPlan(ctx context.Context, prices *Pricer, spec PlanSpec) ([]Transaction, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	l, err := p.Ledger()
	if err != nil {
		return nil, &PlanError{Err: err}
	}

	tickers := slices.Sorted(maps.Keys(spec.Weights))
	schedule := spec.Schedule()
	// the first date is the earliest buy of every ticker
	for _, ticker := range tickers {
		if spec.Weights[ticker].IsZero() || len(schedule) == 0 {
			continue
		}
		listed, err := prices.ListingDate(ctx, ticker)
		if err != nil {
			return nil, &PlanError{Err: err}
		}
		if schedule[0].Before(listed) {
			return nil, &PlanError{Err: fmt.Errorf("%w: %s listed on %s, plan buys on %s", ErrPriorToListing, ticker, listed, schedule[0])}
		}
	}
	var txs []Transaction
	for _, day := range schedule {
		commission := spec.Commission
		for _, ticker := range tickers {
			if spec.Weights[ticker].IsZero() {
				continue
			}
			price, err := prices.PriceAsOf(ctx, ticker, day)
			if err != nil {
				return nil, &PlanError{Err: err}
			}
			q := spec.Amount.Percent(spec.Weights[ticker]).Shares(price)
			if q.IsZero() {
				log.Debug().Stringer("date", day).Str("ticker", ticker).Stringer("price", price).Msg("plan skips ticker, allocation below one share")
				continue
			}
			txs = append(txs, NewBuy(day, ticker, q, commission))
			commission = Money{}
		}
	}

	if err := l.Clone().AppendAll(ctx, prices, txs...); err != nil {
		return nil, &PlanError{Err: err}
	}
	log.Debug().Int("portfolio", p.ID).Int("transactions", len(txs)).Stringer("range", spec.Range).Msg("plan built")
	return txs, nil
}

// PlanRecord is the trace of an applied plan, kept in the user record.
type PlanRecord struct {
	ID           uuid.UUID                  `json:"id"`
	Portfolio    int                        `json:"portfolio"`
	From         Date                       `json:"from"`
	To           Date                       `json:"to"`
	Interval     int                        `json:"interval"`
	Amount       Money                      `json:"amount"`
	Commission   Money                      `json:"commission"`
	Weights      map[string]decimal.Decimal `json:"weights"`
	Transactions int                        `json:"transactions"`
}

// NewPlanRecord creates the record of spec applied to portfolio with n transactions.
func NewPlanRecord(portfolio int, spec PlanSpec, n int) PlanRecord {
	return PlanRecord{
		ID:           uuid.New(),
		Portfolio:    portfolio,
		From:         spec.Range.From,
		To:           spec.Range.To,
		Interval:     spec.Interval,
		Amount:       spec.Amount,
		Commission:   spec.Commission,
		Weights:      maps.Clone(spec.Weights),
		Transactions: n,
	}
}
