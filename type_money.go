package portfolio

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the single currency every amount is expressed in.
const Currency = money.USD

// Money represents a monetary value in dollars.
type Money struct {
	value decimal.Decimal // as major unit value
}

// M builds a Money amount from a value in dollars.
func M[T float64 | int | int64 | decimal.Decimal](value T) Money {
	return Money{value: newDecimal(value)}
}

// ParseMoney parses a decimal string in dollars.
func ParseMoney(s string) (Money, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{value: v}, nil
}

// String returns the amount formatted in dollars, rounded to cents.
func (m Money) String() string {
	cur := *money.New(0, Currency).Currency()
	dec := m.value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(dec.IntPart())
}

// Decimal returns the exact value in dollars.
func (m Money) Decimal() decimal.Decimal { return m.value }

func (m Money) Equal(n Money) bool       { return m.value.Equal(n.value) }
func (m Money) IsZero() bool             { return m.value.IsZero() }
func (m Money) IsPositive() bool         { return m.value.IsPositive() }
func (m Money) IsNegative() bool         { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool    { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool { return m.value.GreaterThan(n.value) }
func (m Money) Add(n Money) Money        { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money        { return Money{value: m.value.Sub(n.value)} }
func (m Money) Mul(q Quantity) Money     { return Money{value: m.value.Mul(q.value)} }

// Shares returns how many whole shares at price p this amount can buy.
func (m Money) Shares(p Money) Quantity {
	if !p.IsPositive() {
		return Quantity{}
	}
	return Quantity{value: m.value.Div(p.value).Floor()}
}

// Percent returns pct percent of m.
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money{value: m.value.Mul(pct).Div(decimal.NewFromInt(100))}
}

// Float returns an inexact float value, meant for statistics only.
func (m Money) Float() float64 { return m.value.InexactFloat64() }

// MarshalJSON implements the json.Marshaler interface.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.value.String()), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (m *Money) UnmarshalJSON(b []byte) error {
	return m.value.UnmarshalJSON(b)
}
