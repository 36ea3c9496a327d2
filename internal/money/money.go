// Package money centralizes fixed-point currency arithmetic. All amounts in
// the system are shopspring decimals; rounding to two places happens only when
// a figure is reported or persisted, never in intermediate math.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var Hundred = decimal.NewFromInt(100)

func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PercentOf returns pct percent of amount, unrounded.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(Hundred)
}

// ParseAmount parses a non-negative monetary amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount must not be negative: %s", s)
	}
	return d, nil
}

// ClampPercent forces pct into the [0,100] range.
func ClampPercent(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(Hundred) {
		return Hundred
	}
	return pct
}
