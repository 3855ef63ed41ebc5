package portfolio

import (
	"errors"
	"fmt"
)

// Validation failures. The ledger is never modified when one of them is returned.
var (
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrNonPositiveQuantity = errors.New("quantity must be a positive whole number")
	ErrPriorToListing      = errors.New("date is prior to the ticker listing")
	ErrMalformedDate       = errors.New("malformed date")
	ErrUnknownTicker       = errors.New("unknown ticker")
	ErrNegativeCommission  = errors.New("commission cannot be negative")
)

// Plan failures.
var (
	ErrWeightsNotNormalized = errors.New("weights must sum to 100")
	ErrInvalidInterval      = errors.New("invalid plan interval")
	ErrNonPositiveAmount    = errors.New("plan amount must be positive")
)

// ErrNoPriceData is returned when no trading price exists on or before a date.
var ErrNoPriceData = errors.New("no price data")

// Load and store failures.
var (
	ErrLedgerDiscrepancy = errors.New("ledger does not match its portfolio")
	ErrLedgerOutOfOrder  = errors.New("ledger is not in chronological order")
	ErrUserNotFound      = errors.New("user not found")
	ErrPortfolioNotFound = errors.New("portfolio not found")
	ErrRigidPortfolio    = errors.New("portfolio composition is fixed")
)

// ValidationError reports a transaction that was rejected by the ledger.
type ValidationError struct {
	Tx  Transaction
	Err error // one of the validation sentinels
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s of %s %s on %s: %v", e.Tx.Action, e.Tx.Quantity, e.Tx.Ticker, e.Tx.Date, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PlanError reports a DCA plan that could not be built. Err may itself be a
// *ValidationError or a *PriceError raised by a generated transaction.
type PlanError struct {
	Err error
}

func (e *PlanError) Error() string { return "invalid plan: " + e.Err.Error() }

func (e *PlanError) Unwrap() error { return e.Err }

// PriceError reports a missing price.
type PriceError struct {
	Ticker string
	On     Date
	Err    error
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("price of %s on %s: %v", e.Ticker, e.On, e.Err)
}

func (e *PriceError) Unwrap() error { return e.Err }

// LoadError reports persisted data that could not be read or does not hold together.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("cannot load %q: %v", e.Path, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }
