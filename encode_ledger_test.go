package portfolio

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLedger(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	require.NoError(t, ledger.AppendAll(ctx, testMarket(),
		sell("2022-02-01", "AAPL", 5, 3),
		buy("2022-01-01", "AAPL", 10, 4.95),
		buy("2022-01-01", "MSFT", 2, 0),
	))

	var buf bytes.Buffer
	require.NoError(t, EncodeLedger(&buf, ledger))
	want := "AAPL,10,buy,2022-01-01,4.95\n" +
		"MSFT,2,buy,2022-01-01,0\n" +
		"AAPL,5,sell,2022-02-01,3\n"
	assert.Equal(t, want, buf.String())

	txs, err := DecodeLedger(&buf)
	require.NoError(t, err)
	decoded, err := NewLedgerFrom(ctx, testMarket(), txs)
	require.NoError(t, err)
	got := collect(decoded)
	expected := collect(ledger)
	require.Len(t, got, len(expected))
	for i := range expected {
		if !got[i].Equal(expected[i]) {
			t.Errorf("transaction %d = %v, want %v", i, got[i], expected[i])
		}
	}
}

func TestDecodeLedger(t *testing.T) {
	txs, err := DecodeLedger(strings.NewReader("AAPL, 10, BUY, 2022-1-3, 1.50\n\nMSFT,1,sell,2022-02-01,0\n"))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Equal(NewBuy(MustParse("2022-01-03"), "AAPL", Q(10), M(1.5))), "got %v", txs[0])
	assert.Equal(t, ActionSell, txs[1].Action)

	txs, err = DecodeLedger(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestDecodeLedger_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "missing field", input: "AAPL,10,buy,2022-01-01\n", wantErr: "wrong number of fields"},
		{name: "extra field", input: "AAPL,10,buy,2022-01-01,0,x\n", wantErr: "wrong number of fields"},
		{name: "bad quantity", input: "AAPL,10,buy,2022-01-01,0\nAAPL,ten,buy,2022-01-02,0\n", wantErr: "line 2: invalid quantity"},
		{name: "bad action", input: "AAPL,10,hold,2022-01-01,0\n", wantErr: "line 1: unknown action"},
		{name: "bad date", input: "AAPL,10,buy,01/02/2022,0\n", wantErr: "line 1: malformed date"},
		{name: "bad commission", input: "AAPL,10,buy,2022-01-01,$5\n", wantErr: "line 1: invalid commission"},
		{name: "missing ticker", input: ",10,buy,2022-01-01,0\n", wantErr: "line 1: unknown ticker"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeLedger(strings.NewReader(tc.input))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("DecodeLedger(%q) = %v, want error containing %q", tc.input, err, tc.wantErr)
			}
		})
	}
}
