package portfolio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// A ledger file has one transaction per row and no header:
//
//	ticker,quantity,action,date,commission
//
// Rows are in chronological order.
const ledgerFields = 5

// DecodeLedger reads the rows of a ledger file in file order.
//
// It only checks that every row is well formed; use NewLedgerFrom to validate the
// sequence itself.
func DecodeLedger(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = ledgerFields
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var txs []Transaction
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return txs, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		tx, err := decodeRow(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		txs = append(txs, tx)
	}
}

func decodeRow(record []string) (Transaction, error) {
	var tx Transaction
	var err error
	tx.Ticker = strings.TrimSpace(record[0])
	if tx.Ticker == "" {
		return tx, ErrUnknownTicker
	}
	if tx.Quantity, err = ParseQuantity(strings.TrimSpace(record[1])); err != nil {
		return tx, fmt.Errorf("invalid quantity %q: %w", record[1], err)
	}
	if tx.Action, err = ParseAction(record[2]); err != nil {
		return tx, err
	}
	if tx.Date, err = parseISODate(strings.TrimSpace(record[3])); err != nil {
		return tx, err
	}
	if tx.Commission, err = ParseMoney(strings.TrimSpace(record[4])); err != nil {
		return tx, fmt.Errorf("invalid commission %q: %w", record[4], err)
	}
	return tx, nil
}

// EncodeTransactions writes txs as ledger rows, in the given order.
func EncodeTransactions(w io.Writer, txs ...Transaction) error {
	cw := csv.NewWriter(w)
	for _, tx := range txs {
		record := []string{
			tx.Ticker,
			tx.Quantity.String(),
			string(tx.Action),
			tx.Date.String(),
			tx.Commission.Decimal().String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeLedger writes every transaction of the ledger.
func EncodeLedger(w io.Writer, l *Ledger) error {
	return EncodeTransactions(w, l.transactions...)
}

// NewLedgerFrom builds a ledger from transactions read from storage.
//
// Unlike AppendAll it does not reorder anything: it fails with ErrLedgerOutOfOrder if
// txs are not chronological, and with a *ValidationError if any transaction is invalid
// or the replay goes negative.
func NewLedgerFrom(ctx context.Context, listings Listings, txs []Transaction) (*Ledger, error) {
	l := &Ledger{transactions: slices.Clone(txs)}
	if l.transactions == nil {
		l.transactions = make([]Transaction, 0)
	}
	if err := l.Validate(ctx, listings); err != nil {
		return nil, err
	}
	return l, nil
}
