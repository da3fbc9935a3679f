package helpers

import "github.com/shopspring/decimal"

// RoundPrice rounds to 2 decimal places, half away from zero.
func RoundPrice(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// PercentChange is (to - from) / from * 100, rounded like a price.
// A zero base yields 0.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	base := decimal.NewFromFloat(from)
	pct := decimal.NewFromFloat(to).Sub(base).Div(base).Mul(decimal.NewFromInt(100))
	f, _ := pct.Round(2).Float64()
	return f
}
