package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var centsPerUnit = decimal.NewFromInt(100)

// MinorUnits converts a major-unit boundary amount to integer cents,
// truncating toward zero (12.349 -> 1234). Amounts must be positive; the
// zero-or-negative check is the caller's InvalidAmount validation.
func MinorUnits(major decimal.Decimal) int64 {
	return major.Mul(centsPerUnit).Truncate(0).IntPart()
}

// MajorUnits renders integer cents as a two-decimal major-unit value for
// the API boundary. The sign is preserved.
func MajorUnits(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(centsPerUnit)
}

// InterestSurcharge computes floor(principal × rate) in cents. The rate is
// a plain fraction (0.1 for 10%) injected from configuration.
func InterestSurcharge(principalCents int64, rate float64) (int64, error) {
	if rate < 0 {
		return 0, fmt.Errorf("InterestSurcharge: negative rate %v", rate)
	}
	surcharge := decimal.NewFromInt(principalCents).
		Mul(decimal.NewFromFloat(rate)).
		Floor()
	return surcharge.IntPart(), nil
}
