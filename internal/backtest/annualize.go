package backtest

import (
	"math"

	"github.com/yourusername/stock-screener/internal/models"
)

// Nominal periods used when a series span cannot be measured.
const (
	DefaultOptimizerPeriodDays = 90
	DefaultCompoundPeriodDays  = 365
)

// PeriodDays is the calendar span of bars, or fallback when the span is not
// positive.
func PeriodDays(bars []models.Bar, fallback int) int {
	if days := models.SpanDays(bars); days > 0 {
		return days
	}
	return fallback
}

// AnnualizedReturn scales a total return (%) earned over periodDays to a
// 365-day year via the daily compounded rate. Non-positive periods yield 0.
func AnnualizedReturn(totalReturn float64, periodDays int) float64 {
	if periodDays <= 0 {
		return 0
	}
	base := 1 + totalReturn/100
	if base <= 0 {
		return -100
	}
	daily := math.Pow(base, 1/float64(periodDays))
	return (math.Pow(daily, 365) - 1) * 100
}

// CompoundReturn chains the per-trade returns (%) in order.
func CompoundReturn(trades []models.Trade) float64 {
	compound := 1.0
	for _, t := range trades {
		compound *= 1 + t.PnLRatio/100
	}
	return (compound - 1) * 100
}

// AnnualizedCompound annualises a compound return (%) over periodDays.
func AnnualizedCompound(compoundReturn float64, periodDays int) float64 {
	if periodDays <= 0 {
		return 0
	}
	base := 1 + compoundReturn/100
	if base <= 0 {
		return -100
	}
	return (math.Pow(base, 365/float64(periodDays)) - 1) * 100
}
