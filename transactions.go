package portfolio

import (
	"fmt"
	"strings"
)

// Action is the direction of a transaction.
type Action string

// Actions recorded in a ledger.
const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// ParseAction parses "buy" or "sell", case insensitive.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionBuy, ActionSell:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Transaction is a single trade in a flexible portfolio.
//
// Transactions are values: once appended to a Ledger they are never modified.
type Transaction struct {
	Ticker     string
	Action     Action
	Quantity   Quantity // Quantity is the number of shares, always positive.
	Date       Date
	Commission Money // Commission is the fee charged for this trade.
}

// NewBuy creates a new buy transaction.
func NewBuy(day Date, ticker string, quantity Quantity, commission Money) Transaction {
	return Transaction{Ticker: ticker, Action: ActionBuy, Quantity: quantity, Date: day, Commission: commission}
}

// NewSell creates a new sell transaction.
func NewSell(day Date, ticker string, quantity Quantity, commission Money) Transaction {
	return Transaction{Ticker: ticker, Action: ActionSell, Quantity: quantity, Date: day, Commission: commission}
}

// Delta returns the signed change in holdings this transaction causes.
func (t Transaction) Delta() Quantity {
	if t.Action == ActionSell {
		return t.Quantity.Neg()
	}
	return t.Quantity
}

// Equal reports whether both transactions hold the same values.
func (t Transaction) Equal(o Transaction) bool {
	return t.Ticker == o.Ticker &&
		t.Action == o.Action &&
		t.Quantity.Equal(o.Quantity) &&
		t.Date == o.Date &&
		t.Commission.Equal(o.Commission)
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s %s %s %s (commission %s)", t.Date, t.Action, t.Quantity, t.Ticker, t.Commission)
}

// check validates the fields that do not depend on the ledger or the market.
func (t Transaction) check() error {
	if t.Date.IsZero() {
		return ErrMalformedDate
	}
	if strings.TrimSpace(t.Ticker) == "" {
		return ErrUnknownTicker
	}
	if t.Action != ActionBuy && t.Action != ActionSell {
		return fmt.Errorf("unknown action %q", t.Action)
	}
	if !t.Quantity.IsPositive() || !t.Quantity.IsWhole() {
		return ErrNonPositiveQuantity
	}
	if t.Commission.IsNegative() {
		return ErrNegativeCommission
	}
	return nil
}
