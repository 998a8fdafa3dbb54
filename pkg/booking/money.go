package booking

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact, non-negative currency amount.
type Money struct {
	amount decimal.Decimal
}

// NewMoney validates a non-negative amount.
func NewMoney(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s is negative", ErrInvalidMoney, amount.String())
	}
	return Money{amount: amount}, nil
}

// NewPrice validates a nightly rate, which must be strictly positive.
func NewPrice(amount decimal.Decimal) (Money, error) {
	if !amount.IsPositive() {
		return Money{}, fmt.Errorf("%w: %s must be greater than zero", ErrInvalidPrice, amount.String())
	}
	return Money{amount: amount}, nil
}

// ParsePrice parses a decimal string such as "100.00" into a nightly rate.
func ParsePrice(raw string) (Money, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	return NewPrice(amount)
}

// Decimal exposes the underlying exact value.
func (money Money) Decimal() decimal.Decimal {
	return money.amount
}

// String formats the amount with at least two decimal places.
func (money Money) String() string {
	if money.amount.Equal(money.amount.Round(2)) {
		return money.amount.StringFixed(2)
	}
	return money.amount.String()
}

// Equal compares amounts numerically, so 220 equals 220.00.
func (money Money) Equal(other Money) bool {
	return money.amount.Equal(other.amount)
}

// Add returns money + other.
func (money Money) Add(other Money) Money {
	return Money{amount: money.amount.Add(other.amount)}
}

// Times multiplies by a whole quantity.
func (money Money) Times(quantity int64) Money {
	return Money{amount: money.amount.Mul(decimal.NewFromInt(quantity))}
}

// Scale multiplies by an exact rate.
func (money Money) Scale(rate decimal.Decimal) Money {
	return Money{amount: money.amount.Mul(rate)}
}

// Round rounds half away from zero to the given number of decimal places.
func (money Money) Round(places int32) Money {
	return Money{amount: money.amount.Round(places)}
}
