package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// weights builds plan weights from ticker, percent pairs.
func weights(kv ...any) map[string]decimal.Decimal {
	w := make(map[string]decimal.Decimal)
	for i := 0; i < len(kv); i += 2 {
		w[kv[i].(string)] = decimal.NewFromInt(int64(kv[i+1].(int)))
	}
	return w
}

func testPlan() PlanSpec {
	return PlanSpec{
		Range:      Range{From: MustParse("2022-01-01"), To: MustParse("2022-04-01")},
		Interval:   30,
		Amount:     M(1000),
		Commission: M(5),
		Weights:    weights("AAPL", 60, "MSFT", 40),
	}
}

func TestBuildPlan(t *testing.T) {
	ctx := context.Background()
	p := flexible(t, testMarket())

	txs, err := p.BuildPlan(ctx, NewPricer(testMarket()), testPlan())
	require.NoError(t, err)

	days := []string{"2022-01-01", "2022-01-31", "2022-03-02", "2022-04-01"}
	require.Len(t, txs, 2*len(days))
	for i, day := range days {
		// 600/150 and 400/300 whole shares, the commission charged once per date
		want := []Transaction{buy(day, "AAPL", 4, 5), buy(day, "MSFT", 1, 0)}
		for j, w := range want {
			if got := txs[2*i+j]; !got.Equal(w) {
				t.Errorf("transaction %d = %v, want %v", 2*i+j, got, w)
			}
		}
	}

	l, _ := p.Ledger()
	assert.Zero(t, l.Len(), "BuildPlan modified the ledger")
}

func TestBuildPlan_SkipsFractionalAllocations(t *testing.T) {
	ctx := context.Background()
	market := testMarket()
	p := flexible(t, market)
	spec := testPlan()
	spec.Amount = M(250) // 150 for AAPL, 100 for MSFT
	spec.Range.To = spec.Range.From

	txs, err := p.BuildPlan(ctx, NewPricer(market), spec)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Equal(buy("2022-01-01", "AAPL", 1, 5)), "got %v", txs[0])

	// the commission moves to the first ticker actually bought
	spec.Amount = M(400) // 40 for AAPL, 360 for MSFT
	spec.Weights = weights("AAPL", 10, "MSFT", 90)
	txs, err = p.BuildPlan(ctx, NewPricer(market), spec)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Equal(buy("2022-01-01", "MSFT", 1, 5)), "got %v", txs[0])

	// zero weights are ignored
	spec.Weights = weights("AAPL", 100, "MSFT", 0)
	txs, err = p.BuildPlan(ctx, NewPricer(market), spec)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "AAPL", txs[0].Ticker)
}

func TestPlanSpec_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*PlanSpec)
		want   error
	}{
		{name: "valid", modify: func(*PlanSpec) {}},
		{name: "weights below 100", modify: func(s *PlanSpec) { s.Weights = weights("AAPL", 60, "MSFT", 30) }, want: ErrWeightsNotNormalized},
		{name: "weights above 100", modify: func(s *PlanSpec) { s.Weights = weights("AAPL", 60, "MSFT", 50) }, want: ErrWeightsNotNormalized},
		{name: "negative weight", modify: func(s *PlanSpec) { s.Weights = weights("AAPL", 110, "MSFT", -10) }, want: ErrWeightsNotNormalized},
		{name: "no weights", modify: func(s *PlanSpec) { s.Weights = nil }, want: ErrWeightsNotNormalized},
		{name: "zero interval", modify: func(s *PlanSpec) { s.Interval = 0 }, want: ErrInvalidInterval},
		{name: "negative interval", modify: func(s *PlanSpec) { s.Interval = -7 }, want: ErrInvalidInterval},
		{name: "reversed range", modify: func(s *PlanSpec) { s.Range = Range{From: s.Range.To, To: s.Range.From} }, want: ErrInvalidInterval},
		{name: "zero amount", modify: func(s *PlanSpec) { s.Amount = M(0) }, want: ErrNonPositiveAmount},
		{name: "negative amount", modify: func(s *PlanSpec) { s.Amount = M(-10) }, want: ErrNonPositiveAmount},
		{name: "negative commission", modify: func(s *PlanSpec) { s.Commission = M(-1) }, want: ErrNegativeCommission},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec := testPlan()
			tc.modify(&spec)
			err := spec.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
			var perr *PlanError
			if !errors.As(err, &perr) {
				t.Errorf("Validate() error is %T, want *PlanError", err)
			}
		})
	}
}

func TestPlanSpec_Schedule(t *testing.T) {
	spec := testPlan()
	spec.Interval = 45
	want := []Date{MustParse("2022-01-01"), MustParse("2022-02-15"), MustParse("2022-04-01")}
	assert.Equal(t, want, spec.Schedule())
}

func TestBuildPlan_Rejected(t *testing.T) {
	ctx := context.Background()
	market := testMarket()

	t.Run("rigid portfolio", func(t *testing.T) {
		p := &Portfolio{ID: 1, Kind: Rigid}
		_, err := p.BuildPlan(ctx, NewPricer(market), testPlan())
		assert.ErrorIs(t, err, ErrRigidPortfolio)
		var perr *PlanError
		assert.ErrorAs(t, err, &perr)
	})

	t.Run("not listed yet", func(t *testing.T) {
		p := flexible(t, market)
		spec := testPlan()
		spec.Weights = weights("AAPL", 50, "NEWCO", 50)
		_, err := p.BuildPlan(ctx, NewPricer(market), spec)
		assert.ErrorIs(t, err, ErrPriorToListing)
		var perr *PlanError
		assert.ErrorAs(t, err, &perr)
		assert.Zero(t, market.calls, "no price looked up")
	})

	t.Run("listed without prices", func(t *testing.T) {
		p := flexible(t, market)
		spec := testPlan()
		spec.Range = NewRange(MustParse("2022-07-01"), MustParse("2022-08-01"))
		spec.Weights = weights("AAPL", 50, "NEWCO", 50)
		_, err := p.BuildPlan(ctx, NewPricer(market), spec)
		assert.ErrorIs(t, err, ErrNoPriceData)
	})

	t.Run("unknown ticker", func(t *testing.T) {
		p := flexible(t, market)
		spec := testPlan()
		spec.Weights = weights("AAPL", 50, "NOPE", 50)
		_, err := p.BuildPlan(ctx, NewPricer(market), spec)
		assert.ErrorIs(t, err, ErrUnknownTicker)
	})
}

func TestNewPlanRecord(t *testing.T) {
	spec := testPlan()
	rec := NewPlanRecord(3, spec, 8)
	other := NewPlanRecord(3, spec, 8)
	assert.NotEqual(t, rec.ID, other.ID)
	assert.Equal(t, 3, rec.Portfolio)
	assert.Equal(t, spec.Range.From, rec.From)
	assert.Equal(t, 8, rec.Transactions)

	// the record keeps its own copy of the weights
	spec.Weights["AAPL"] = decimal.NewFromInt(1)
	assert.True(t, rec.Weights["AAPL"].Equal(decimal.NewFromInt(60)))
}
