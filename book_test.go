package portfolio

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestBook(t *testing.T) (*Book, *Portfolio) {
	t.Helper()
	s, u, _ := newTestStore(t)
	b, err := OpenBook(context.Background(), s, testMarket(), u.ID)
	require.NoError(t, err)
	p, err := b.User().FindPortfolio("growth")
	require.NoError(t, err)
	return b, p
}

func ledgerRows(t *testing.T, b *Book, p *Portfolio) []string {
	t.Helper()
	data, err := os.ReadFile(ledgerPath(t, b.store, b.User(), p))
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestBook_Record(t *testing.T) {
	ctx := context.Background()
	b, p := openTestBook(t)

	require.NoError(t, b.Record(ctx, p.ID, buy("2022-01-01", "AAPL", 10, 1)))
	err := b.Record(ctx, p.ID, sell("2022-02-01", "AAPL", 20, 1))
	require.ErrorIs(t, err, ErrInsufficientShares)

	// the rejected sale is neither in memory nor on disk
	txs, err := b.Transactions(p.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, []string{"AAPL,10,buy,2022-01-01,1"}, ledgerRows(t, b, p))

	c, err := b.Composition(p.ID, MustParse("2022-03-01"))
	require.NoError(t, err)
	assert.True(t, c.Equal(Composition{"AAPL": Q(10)}))

	v, err := b.Value(ctx, p.ID, MustParse("2022-03-01"))
	require.NoError(t, err)
	assert.True(t, v.Equal(M(1500)))
	cb, err := b.CostBasis(ctx, p.ID, MustParse("2022-03-01"))
	require.NoError(t, err)
	assert.True(t, cb.Equal(M(1501)))

	// a reloaded book sees the same ledger
	reloaded, err := OpenBook(ctx, b.store, testMarket(), b.User().ID)
	require.NoError(t, err)
	txs, err = reloaded.Transactions(p.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestBook_RigidPortfolio(t *testing.T) {
	ctx := context.Background()
	b, _ := openTestBook(t)
	p, err := b.CreateRigidPortfolio(ctx, "pension", []Stock{{Ticker: "AAPL", Quantity: Q(2)}})
	require.NoError(t, err)

	assert.ErrorIs(t, b.Record(ctx, p.ID, buy("2022-01-01", "AAPL", 1, 0)), ErrRigidPortfolio)
	_, err = b.Transactions(p.ID)
	assert.ErrorIs(t, err, ErrRigidPortfolio)
	_, _, err = b.ApplyPlan(ctx, p.ID, testPlan())
	assert.ErrorIs(t, err, ErrRigidPortfolio)

	perf, err := b.Performance(ctx, p.ID, Range{From: MustParse("2022-01-01"), To: MustParse("2022-01-20")})
	require.NoError(t, err)
	for _, pt := range perf.Points {
		assert.True(t, pt.Value.Equal(M(300)))
	}

	_, err = b.Composition(42, MustParse("2022-01-01"))
	assert.ErrorIs(t, err, ErrPortfolioNotFound)
}

func TestBook_ApplyPlan(t *testing.T) {
	ctx := context.Background()
	b, p := openTestBook(t)

	rec, txs, err := b.ApplyPlan(ctx, p.ID, testPlan())
	require.NoError(t, err)
	assert.Len(t, txs, 8)
	assert.Equal(t, 8, rec.Transactions)
	assert.Len(t, ledgerRows(t, b, p), 8)

	saved, err := b.store.LoadUserRecord(b.User().ID)
	require.NoError(t, err)
	require.Len(t, saved.Plans, 1)
	assert.Equal(t, rec.ID, saved.Plans[0].ID)

	c, err := b.Composition(p.ID, MustParse("2022-12-31"))
	require.NoError(t, err)
	assert.True(t, c.Equal(Composition{"AAPL": Q(16), "MSFT": Q(4)}))
}

func TestBook_ApplyPlanIsAtomic(t *testing.T) {
	ctx := context.Background()
	b, p := openTestBook(t)
	require.NoError(t, b.Record(ctx, p.ID, buy("2022-01-01", "AAPL", 1, 0)))

	spec := testPlan()
	spec.Weights = weights("AAPL", 50, "NEWCO", 50)
	_, _, err := b.ApplyPlan(ctx, p.ID, spec)
	var perr *PlanError
	require.ErrorAs(t, err, &perr)

	txs, err := b.Transactions(p.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Len(t, ledgerRows(t, b, p), 1)
	assert.Empty(t, b.User().Plans)
}

func TestBook_SetCommission(t *testing.T) {
	b, _ := openTestBook(t)
	assert.ErrorIs(t, b.SetCommission(M(-1)), ErrNegativeCommission)
	require.NoError(t, b.SetCommission(M(2.5)))

	saved, err := b.store.LoadUserRecord(b.User().ID)
	require.NoError(t, err)
	assert.True(t, saved.Commission.Equal(M(2.5)))
}

func TestBook_ConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	b, p := openTestBook(t)
	other, err := b.CreateFlexiblePortfolio("other")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := p.ID
			if i%2 == 1 {
				id = other.ID
			}
			day := MustParse("2022-01-01").Add(i)
			assert.NoError(t, b.Record(ctx, id, NewBuy(day, "AAPL", Q(1), M(0))))
		}(i)
	}
	wg.Wait()

	for _, id := range []int{p.ID, other.ID} {
		txs, err := b.Transactions(id)
		require.NoError(t, err)
		assert.Len(t, txs, 10)
	}
	assert.Len(t, ledgerRows(t, b, p), 10)

	// the files are chronological whatever the order of the appends
	_, err = OpenBook(ctx, b.store, testMarket(), b.User().ID)
	require.NoError(t, err)
}
