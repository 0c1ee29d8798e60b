// Package formulas holds the numeric helpers shared by the stock modules:
// money rounding, percent change and the small indicator set served by /summary.
package formulas

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds to 2 decimal places, half away from zero.
// NaN and Inf collapse to 0 so they never reach storage or JSON.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Change returns round2(current - previous) using decimal arithmetic.
// Non-finite inputs yield 0.
func Change(current, previous float64) float64 {
	if math.IsNaN(current) || math.IsNaN(previous) || math.IsInf(current, 0) || math.IsInf(previous, 0) {
		return 0
	}
	d := decimal.NewFromFloat(current).Sub(decimal.NewFromFloat(previous))
	return d.Round(2).InexactFloat64()
}

// PercentChange returns round2(change / base * 100).
// A zero base yields 0 rather than an error or Inf.
func PercentChange(change, base float64) float64 {
	if base == 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return 0
	}
	pct := decimal.NewFromFloat(change).
		Div(decimal.NewFromFloat(base)).
		Mul(decimal.NewFromInt(100))
	return pct.Round(2).InexactFloat64()
}
