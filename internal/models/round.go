package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds to two decimals, half away from zero, on the decimal
// representation of v. NaN and infinities become 0.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
