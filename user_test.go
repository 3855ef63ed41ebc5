package portfolio

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Portfolios(t *testing.T) {
	u := NewUser(1, "alice", M(4.95))
	rigid, err := u.AddRigid("Pension", []Stock{{Ticker: "AAPL", Quantity: Q(10)}})
	require.NoError(t, err)
	flex := u.AddFlexible("growth")

	assert.Equal(t, 1, rigid.ID)
	assert.Equal(t, 2, flex.ID)
	assert.Equal(t, "2.csv", flex.LedgerFile)

	p, err := u.Portfolio(2)
	require.NoError(t, err)
	assert.Same(t, flex, p)
	p, err = u.FindPortfolio("pension")
	require.NoError(t, err)
	assert.Same(t, rigid, p)

	_, err = u.Portfolio(3)
	assert.ErrorIs(t, err, ErrPortfolioNotFound)
	_, err = u.FindPortfolio("nope")
	assert.ErrorIs(t, err, ErrPortfolioNotFound)

	_, err = u.AddRigid("bad", []Stock{{Ticker: "AAPL", Quantity: Q(1.5)}})
	assert.ErrorIs(t, err, ErrNonPositiveQuantity)
	_, err = u.AddRigid("bad", []Stock{{Ticker: " ", Quantity: Q(1)}})
	assert.ErrorIs(t, err, ErrUnknownTicker)
	assert.Len(t, u.Portfolios, 2)
}

func TestUser_JSON(t *testing.T) {
	u := NewUser(7, "bob", M(1.25))
	_, err := u.AddRigid("pension", []Stock{
		{Ticker: "AAPL", Quantity: Q(10), Date: MustParse("2022-01-03")},
		{Ticker: "MSFT", Quantity: Q(5)},
	})
	require.NoError(t, err)
	u.AddFlexible("growth")
	u.Plans = append(u.Plans, NewPlanRecord(2, testPlan(), 8))

	data, err := json.Marshal(u)
	require.NoError(t, err)

	got := new(User)
	require.NoError(t, json.Unmarshal(data, got))
	assert.Equal(t, 7, got.ID)
	assert.Equal(t, "bob", got.Name)
	assert.True(t, got.Commission.Equal(M(1.25)))
	require.Len(t, got.Portfolios, 2)

	rigid := got.Portfolios[0]
	assert.Equal(t, Rigid, rigid.Kind)
	require.Len(t, rigid.Stocks, 2)
	assert.Equal(t, MustParse("2022-01-03"), rigid.Stocks[0].Date)
	assert.True(t, rigid.Stocks[1].Date.IsZero())
	assert.True(t, rigid.Stocks[0].Quantity.Equal(Q(10)))

	flex := got.Portfolios[1]
	assert.Equal(t, Flexible, flex.Kind)
	assert.Equal(t, "2.csv", flex.LedgerFile)

	require.Len(t, got.Plans, 1)
	assert.Equal(t, u.Plans[0].ID, got.Plans[0].ID)
	assert.True(t, got.Plans[0].Weights["AAPL"].Equal(u.Plans[0].Weights["AAPL"]))
	assert.True(t, got.Plans[0].Amount.Equal(M(1000)))

	// ids keep increasing after a reload
	assert.Equal(t, 3, got.AddFlexible("more").ID)
}

func TestUser_UnmarshalErrors(t *testing.T) {
	testCases := []struct {
		name string
		json string
	}{
		{name: "duplicate id", json: `{"id":1,"name":"a","commission":0,"rigid":[{"id":1,"name":"x","stocks":[]}],"flexible":[{"id":1,"name":"y","ledger":"1.csv"}]}`},
		{name: "flexible without ledger", json: `{"id":1,"name":"a","commission":0,"flexible":[{"id":2,"name":"y","ledger":""}]}`},
		{name: "not json", json: `{"id":`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := json.Unmarshal([]byte(tc.json), new(User)); err == nil {
				t.Errorf("Unmarshal(%s) succeeded, want error", tc.json)
			}
		})
	}

	// a stale counter is bumped past the highest id
	u := new(User)
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"a","commission":0,"nextPortfolio":1,"flexible":[{"id":4,"name":"y","ledger":"4.csv"}]}`), u))
	assert.Equal(t, 5, u.AddFlexible("z").ID)
}
