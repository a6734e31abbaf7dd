package report

import (
	"math"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percentage returns part/total*100 rounded to two places, and 0 whenever
// the total is zero or either input is not a finite number.
func Percentage(part, total float64) float64 {
	if total == 0 || !finite(part) || !finite(total) {
		return 0
	}
	return decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(total)).
		Mul(hundred).
		Round(2).
		InexactFloat64()
}

// Money rounds an amount to cents.
func Money(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Ratio is a/b rounded to two places, 0 when b is 0.
func Ratio(a, b float64) float64 {
	if b == 0 || !finite(a) || !finite(b) {
		return 0
	}
	return decimal.NewFromFloat(a).Div(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
