package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect returns the ledger transactions in order.
func collect(l *Ledger) []Transaction {
	var txs []Transaction
	for _, tx := range l.Transactions() {
		txs = append(txs, tx)
	}
	return txs
}

func TestLedger_Position(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	require.NoError(t, ledger.AppendAll(ctx, testMarket(),
		buy("2022-01-10", "AAPL", 100, 0),
		buy("2022-01-15", "MSFT", 50, 0),
		sell("2022-02-01", "AAPL", 25, 0),
		buy("2022-02-10", "AAPL", 10, 0),
		sell("2022-03-01", "MSFT", 50, 0), // Sell all MSFT
	))

	testCases := []struct {
		name         string
		ticker       string
		date         string
		wantPosition int
	}{
		{name: "Before any transactions", ticker: "AAPL", date: "2022-01-09", wantPosition: 0},
		{name: "On the day of the first buy", ticker: "AAPL", date: "2022-01-10", wantPosition: 100},
		{name: "After first buy, before sell", ticker: "AAPL", date: "2022-01-31", wantPosition: 100},
		{name: "On the day of the sell", ticker: "AAPL", date: "2022-02-01", wantPosition: 75},
		{name: "On the day of the second buy", ticker: "AAPL", date: "2022-02-10", wantPosition: 85},
		{name: "Final position for AAPL", ticker: "AAPL", date: "2022-04-01", wantPosition: 85},
		{name: "MSFT before selling all", ticker: "MSFT", date: "2022-02-28", wantPosition: 50},
		{name: "MSFT after selling all", ticker: "MSFT", date: "2022-03-01", wantPosition: 0},
		{name: "Never traded", ticker: "NEWCO", date: "2022-04-01", wantPosition: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ledger.Position(tc.ticker, MustParse(tc.date))
			if !got.Equal(Q(tc.wantPosition)) {
				t.Errorf("Position(%s, %s) = %s, want %d", tc.ticker, tc.date, got, tc.wantPosition)
			}
		})
	}

	// a closed position is omitted from the composition
	if _, ok := ledger.CompositionAsOf(MustParse("2022-03-01"))["MSFT"]; ok {
		t.Errorf("CompositionAsOf(2022-03-01) still holds MSFT")
	}
}

func TestLedger_Examples(t *testing.T) {
	ctx := context.Background()
	market := testMarket()
	ledger := NewLedger()
	require.NoError(t, ledger.Append(ctx, market, buy("2022-01-01", "AAPL", 10, 5)))

	got := ledger.CompositionAsOf(MustParse("2022-06-01"))
	assert.True(t, got.Equal(Composition{"AAPL": Q(10)}), "got %v", got)

	version := ledger.Version()
	err := ledger.Append(ctx, market, sell("2022-02-01", "AAPL", 20, 0))
	require.ErrorIs(t, err, ErrInsufficientShares)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "AAPL", verr.Tx.Ticker)

	assert.Equal(t, version, ledger.Version())
	txs := collect(ledger)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Equal(buy("2022-01-01", "AAPL", 10, 5)))

	require.NoError(t, ledger.Append(ctx, market, sell("2022-02-01", "AAPL", 5, 3)))
	got = ledger.CompositionAsOf(MustParse("2022-03-01"))
	assert.True(t, got.Equal(Composition{"AAPL": Q(5)}), "got %v", got)
}

func TestLedger_AppendRejects(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name string
		tx   Transaction
		want error
	}{
		{name: "zero quantity", tx: buy("2022-01-10", "AAPL", 0, 0), want: ErrNonPositiveQuantity},
		{name: "negative quantity", tx: buy("2022-01-10", "AAPL", -3, 0), want: ErrNonPositiveQuantity},
		{name: "fractional quantity", tx: NewBuy(MustParse("2022-01-10"), "AAPL", Q(1.5), M(0)), want: ErrNonPositiveQuantity},
		{name: "negative commission", tx: buy("2022-01-10", "AAPL", 1, -1), want: ErrNegativeCommission},
		{name: "before listing", tx: buy("2022-05-31", "NEWCO", 1, 0), want: ErrPriorToListing},
		{name: "unknown ticker", tx: buy("2022-01-10", "NOPE", 1, 0), want: ErrUnknownTicker},
		{name: "empty ticker", tx: buy("2022-01-10", "", 1, 0), want: ErrUnknownTicker},
		{name: "missing date", tx: NewBuy(Date{}, "AAPL", Q(1), M(0)), want: ErrMalformedDate},
		{name: "sell more than held", tx: sell("2022-03-01", "AAPL", 11, 0), want: ErrInsufficientShares},
		{name: "sell before the buy", tx: sell("2022-01-05", "AAPL", 1, 0), want: ErrInsufficientShares},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := NewLedger()
			require.NoError(t, ledger.Append(ctx, testMarket(), buy("2022-01-10", "AAPL", 10, 0)))

			err := ledger.Append(ctx, testMarket(), tc.tx)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Append(%v) = %v, want %v", tc.tx, err, tc.want)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Append(%v) error is %T, want *ValidationError", tc.tx, err)
			}
			if ledger.Len() != 1 {
				t.Errorf("ledger has %d transactions after a rejected append, want 1", ledger.Len())
			}
		})
	}
}

// A sale inserted in the past must not make a later sale fail.
func TestLedger_InsertBreaksLaterSale(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	require.NoError(t, ledger.AppendAll(ctx, testMarket(),
		buy("2022-02-01", "AAPL", 10, 0),
		sell("2022-03-01", "AAPL", 5, 0),
	))
	err := ledger.Append(ctx, testMarket(), sell("2022-02-15", "AAPL", 8, 0))
	require.ErrorIs(t, err, ErrInsufficientShares)
	assert.Equal(t, 2, ledger.Len())

	// 10 - 5 - 5 is fine
	require.NoError(t, ledger.Append(ctx, testMarket(), sell("2022-02-15", "AAPL", 5, 0)))
	assert.True(t, ledger.Position("AAPL", MustParse("2022-03-01")).IsZero())
}

func TestLedger_AppendOutOfOrder(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	first := buy("2022-03-01", "AAPL", 1, 0)
	second := buy("2022-01-01", "MSFT", 2, 0)
	third := buy("2022-03-01", "MSFT", 3, 0)
	fourth := buy("2022-01-01", "AAPL", 4, 0)
	for _, tx := range []Transaction{first, second, third, fourth} {
		require.NoError(t, ledger.Append(ctx, testMarket(), tx))
	}

	// sorted by date, same day transactions in insertion order
	want := []Transaction{second, fourth, first, third}
	got := collect(ledger)
	require.Len(t, got, len(want))
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("transaction %d = %v, want %v", i, got[i], want[i])
		}
	}
	assert.Equal(t, MustParse("2022-01-01"), ledger.OldestTransactionDate())
	assert.Equal(t, MustParse("2022-03-01"), ledger.NewestTransactionDate())
	assert.Equal(t, []string{"AAPL", "MSFT"}, ledger.Tickers())
}

// A batch is appended as a whole or not at all.
func TestLedger_AppendAllAtomic(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	err := ledger.AppendAll(ctx, testMarket(),
		buy("2022-01-01", "AAPL", 10, 0),
		sell("2022-01-02", "AAPL", 5, 0),
		sell("2022-01-03", "AAPL", 6, 0),
	)
	require.ErrorIs(t, err, ErrInsufficientShares)
	assert.Zero(t, ledger.Len())
	assert.Zero(t, ledger.Version())

	// the order within the batch does not matter, only dates do
	require.NoError(t, ledger.AppendAll(ctx, testMarket(),
		sell("2022-01-02", "AAPL", 5, 0),
		buy("2022-01-01", "AAPL", 10, 0),
	))
	assert.Equal(t, 1, ledger.Version())
	assert.True(t, ledger.Position("AAPL", MustParse("2022-01-02")).Equal(Q(5)))
}

func TestLedger_CompositionMemo(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	day := MustParse("2022-06-01")
	require.NoError(t, ledger.Append(ctx, nil, buy("2022-01-01", "AAPL", 10, 0)))
	assert.True(t, ledger.CompositionAsOf(day).Equal(Composition{"AAPL": Q(10)}))

	require.NoError(t, ledger.Append(ctx, nil, buy("2022-02-01", "AAPL", 5, 0)))
	assert.True(t, ledger.CompositionAsOf(day).Equal(Composition{"AAPL": Q(15)}), "stale composition after append")
}

func TestLedger_Clone(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	require.NoError(t, ledger.Append(ctx, nil, buy("2022-01-01", "AAPL", 10, 0)))
	clone := ledger.Clone()
	require.NoError(t, clone.Append(ctx, nil, buy("2022-01-02", "AAPL", 10, 0)))
	assert.Equal(t, 1, ledger.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestLedger_Validate(t *testing.T) {
	ctx := context.Background()
	_, err := NewLedgerFrom(ctx, testMarket(), []Transaction{
		buy("2022-02-01", "AAPL", 10, 0),
		buy("2022-01-01", "AAPL", 10, 0),
	})
	assert.ErrorIs(t, err, ErrLedgerOutOfOrder)

	_, err = NewLedgerFrom(ctx, testMarket(), []Transaction{
		buy("2022-01-01", "AAPL", 10, 0),
		sell("2022-02-01", "AAPL", 11, 0),
	})
	assert.ErrorIs(t, err, ErrInsufficientShares)

	l, err := NewLedgerFrom(ctx, testMarket(), nil)
	require.NoError(t, err)
	assert.Zero(t, l.Len())
}
