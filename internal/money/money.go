// Package money represents balances in minor currency units.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/abank/internal/apperror"
)

// Amount is a quantity of money in minor units (kopecks for RUB).
type Amount int64

const minorPerMajor = 100

var maxMajor = decimal.NewFromInt(math.MaxInt64 / minorPerMajor)

// FromMajor converts whole currency units into an Amount.
func FromMajor(units int64) Amount {
	return Amount(units * minorPerMajor)
}

// Parse reads user-entered text such as "100", "99.50" or "99,5".
// Anything that is not a positive amount with at most two decimals is rejected.
func Parse(s string) (Amount, error) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.ReplaceAll(raw, ",", ".")
	if raw == "" {
		return 0, apperror.New(apperror.KindInvalidAmount, "amount is empty")
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, apperror.New(apperror.KindInvalidAmount, "amount %q is not a number", s)
	}
	if !d.IsPositive() {
		return 0, apperror.New(apperror.KindInvalidAmount, "amount must be positive")
	}
	if !d.Equal(d.Truncate(2)) {
		return 0, apperror.New(apperror.KindInvalidAmount, "amount %q has more than two decimals", s)
	}
	if d.GreaterThan(maxMajor) {
		return 0, apperror.New(apperror.KindInvalidAmount, "amount %q is too large", s)
	}
	return Amount(d.Shift(2).IntPart()), nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

// String renders the amount with two decimals, e.g. "1500.00".
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool { return a > 0 }

// Add returns a+b, or false when the sum does not fit in an Amount.
func (a Amount) Add(b Amount) (Amount, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, false
	}
	return a + b, true
}
