package portfolio

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sort"

	"github.com/rs/zerolog/log"
)

// Ledger represents the list of transactions of one flexible portfolio.
//
// In a Ledger transactions are always in chronological order; transactions on the
// same day keep their insertion order.
type Ledger struct {
	transactions []Transaction
	version      int                  // bumped on every successful append
	compositions map[Date]Composition // memo, only valid for version
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{transactions: make([]Transaction, 0)}
}

// Len returns the number of transactions.
func (l *Ledger) Len() int { return len(l.transactions) }

// Version identifies the ledger content. It changes on every successful append.
func (l *Ledger) Version() int { return l.version }

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{transactions: slices.Clone(l.transactions), version: l.version}
}

// Transactions returns an iterator that yields each transaction in chronological order.
func (l *Ledger) Transactions() iter.Seq2[int, Transaction] {
	return func(yield func(int, Transaction) bool) {
		for i, tx := range l.transactions {
			if !yield(i, tx) {
				return
			}
		}
	}
}

// Until returns an iterator over the transactions dated on or before max.
func (l *Ledger) Until(max Date) iter.Seq[Transaction] {
	return func(yield func(Transaction) bool) {
		for _, tx := range l.transactions {
			if tx.Date.After(max) {
				// The ledger is sorted by date, so it's safe to return.
				return
			}
			if !yield(tx) {
				return
			}
		}
	}
}

// OldestTransactionDate returns the date of the earliest transaction in the ledger,
// or the zero Date if it is empty.
func (l *Ledger) OldestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[0].Date
}

// NewestTransactionDate returns the date of the latest transaction in the ledger,
// or the zero Date if it is empty.
func (l *Ledger) NewestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[len(l.transactions)-1].Date
}

// Tickers returns the sorted list of tickers ever traded in this ledger.
func (l *Ledger) Tickers() []string {
	set := make(map[string]struct{})
	for _, tx := range l.transactions {
		set[tx.Ticker] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Append validates tx and inserts it at its chronological position.
//
// See AppendAll for the validation rules.
func (l *Ledger) Append(ctx context.Context, listings Listings, tx Transaction) error {
	return l.AppendAll(ctx, listings, tx)
}

// AppendAll validates and inserts a batch of transactions as a whole.
//
// Every transaction must have a positive whole quantity, a non negative commission,
// a known ticker, and a date on or after the ticker listing date. The resulting
// ledger is then replayed from the start: if any ticker position becomes negative
// at any point in time the batch is rejected with ErrInsufficientShares.
//
// On failure the ledger is left unchanged and the error is a *ValidationError.
func (l *Ledger) AppendAll(ctx context.Context, listings Listings, txs ...Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	for _, tx := range txs {
		if err := checkTransaction(ctx, listings, tx); err != nil {
			return err
		}
	}

	candidate := make([]Transaction, 0, len(l.transactions)+len(txs))
	candidate = append(candidate, l.transactions...)
	candidate = append(candidate, txs...)
	stableSort(candidate)

	if err := replay(candidate); err != nil {
		return err
	}

	l.transactions = candidate
	l.version++
	l.compositions = nil
	for _, tx := range txs {
		log.Debug().Stringer("date", tx.Date).Str("action", string(tx.Action)).Str("ticker", tx.Ticker).Stringer("quantity", tx.Quantity).Msg("ledger append")
	}
	return nil
}

// checkTransaction validates a transaction on its own, against the market listings.
func checkTransaction(ctx context.Context, listings Listings, tx Transaction) error {
	if err := tx.check(); err != nil {
		return &ValidationError{Tx: tx, Err: err}
	}
	if listings == nil {
		return nil
	}
	listed, err := listings.ListingDate(ctx, tx.Ticker)
	if err != nil {
		return &ValidationError{Tx: tx, Err: err}
	}
	if tx.Date.Before(listed) {
		return &ValidationError{Tx: tx, Err: fmt.Errorf("%w: %s listed on %s", ErrPriorToListing, tx.Ticker, listed)}
	}
	return nil
}

// replay folds a chronologically sorted list of transactions and fails on the first
// transaction that makes a position negative.
func replay(txs []Transaction) error {
	running := make(map[string]Quantity)
	for _, tx := range txs {
		pos := running[tx.Ticker].Add(tx.Delta())
		if pos.IsNegative() {
			return &ValidationError{Tx: tx, Err: fmt.Errorf("%w: %s position on %s is only %s", ErrInsufficientShares, tx.Ticker, tx.Date, running[tx.Ticker])}
		}
		running[tx.Ticker] = pos
	}
	return nil
}

// Validate replays the whole ledger, checking every transaction again.
func (l *Ledger) Validate(ctx context.Context, listings Listings) error {
	for _, tx := range l.transactions {
		if err := checkTransaction(ctx, listings, tx); err != nil {
			return err
		}
	}
	if !isChronological(l.transactions) {
		return ErrLedgerOutOfOrder
	}
	return replay(l.transactions)
}

// stableSort sorts the transactions by date. The sort is stable, meaning
// transactions on the same day maintain their original relative order.
func stableSort(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})
}

func isChronological(txs []Transaction) bool {
	for i := 1; i < len(txs); i++ {
		if txs[i].Date.Before(txs[i-1].Date) {
			return false
		}
	}
	return true
}
