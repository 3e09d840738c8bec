package models

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents). Two fractional digits, no floats.
type Money int64

const moneyScale = 2

var (
	ErrAmountPrecision = errors.New("amount has more than 2 decimal places")
	ErrAmountRange     = errors.New("amount out of range")
)

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// ParseMoney reads a decimal string such as "50.00" or "12.5".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

func FromDecimal(d decimal.Decimal) (Money, error) {
	minor := d.Shift(moneyScale)
	if !minor.IsInteger() {
		return 0, ErrAmountPrecision
	}
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, ErrAmountRange
	}
	return Money(minor.IntPart()), nil
}

// Add returns m+o, or ErrAmountRange when the sum does not fit.
func (m Money) Add(o Money) (Money, error) {
	if (o > 0 && m > math.MaxInt64-o) || (o < 0 && m < math.MinInt64-o) {
		return 0, ErrAmountRange
	}
	return m + o, nil
}

func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -moneyScale) }

func (m Money) String() string { return m.Decimal().StringFixed(moneyScale) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both 50.25 and "50.25".
func (m *Money) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
