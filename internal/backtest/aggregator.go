package backtest

import (
	"math"

	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/strategy"
)

// SymbolOutcome is one symbol's contribution to a combination.
type SymbolOutcome struct {
	Symbol         string  `json:"symbol"`
	Trades         int     `json:"trades"`
	WinRate        float64 `json:"win_rate"`
	TotalReturn    float64 `json:"total_return"`
	AnnualReturn   float64 `json:"annual_return"`
	CompoundReturn float64 `json:"compound_return"`
	CompoundAnnual float64 `json:"compound_annual"`
	ProfitFactor   float64 `json:"profit_factor"`
	PeriodDays     int     `json:"period_days"`
}

// Outcome summarises a result for symbol over bars. ok is false when the
// run produced no trades, in which case the symbol does not contribute.
func Outcome(symbol string, bars []models.Bar, result *Result) (SymbolOutcome, bool) {
	return OutcomeWithFallback(symbol, bars, result, DefaultOptimizerPeriodDays)
}

// OutcomeWithFallback is Outcome with an explicit nominal period for series
// whose span cannot be measured.
func OutcomeWithFallback(symbol string, bars []models.Bar, result *Result, fallbackDays int) (SymbolOutcome, bool) {
	if result == nil || result.TotalTrades == 0 {
		return SymbolOutcome{}, false
	}
	if fallbackDays <= 0 {
		fallbackDays = DefaultOptimizerPeriodDays
	}
	compound := CompoundReturn(result.Trades)
	return SymbolOutcome{
		Symbol:         symbol,
		Trades:         result.TotalTrades,
		WinRate:        result.WinRate,
		TotalReturn:    result.TotalReturn,
		AnnualReturn:   AnnualizedReturn(result.TotalReturn, PeriodDays(bars, fallbackDays)),
		CompoundReturn: compound,
		CompoundAnnual: AnnualizedCompound(compound, PeriodDays(bars, DefaultCompoundPeriodDays)),
		ProfitFactor:   result.ProfitFactor,
		PeriodDays:     models.SpanDays(bars),
	}, true
}

// ComboStats aggregates one parameter combination across symbols.
type ComboStats struct {
	Key                  string          `json:"key"`
	Config               strategy.Config `json:"config"`
	AvgAnnualReturn      float64         `json:"avg_annual_return"`
	MedianAnnualReturn   float64         `json:"median_annual_return"`
	MaxAnnualReturn      float64         `json:"max_annual_return"`
	AvgCompoundAnnual    float64         `json:"avg_compound_annual"`
	MedianCompoundAnnual float64         `json:"median_compound_annual"`
	MaxCompoundAnnual    float64         `json:"max_compound_annual"`
	AvgWinRate           float64         `json:"avg_win_rate"`
	TotalTrades          int             `json:"total_trades"`
	AvgProfitFactor      float64         `json:"avg_profit_factor"`
	SampleSize           int             `json:"sample_size"`
	Symbols              []string        `json:"symbols"`
}

// Aggregate reduces outcomes for one configuration. Outcomes must come
// from runs that produced at least one trade.
func Aggregate(cfg strategy.Config, outcomes []SymbolOutcome) ComboStats {
	stats := ComboStats{
		Key:        cfg.Key(),
		Config:     cfg,
		SampleSize: len(outcomes),
		Symbols:    make([]string, 0, len(outcomes)),
	}
	if len(outcomes) == 0 {
		return stats
	}

	annual := make([]float64, 0, len(outcomes))
	compound := make([]float64, 0, len(outcomes))
	winRates := make([]float64, 0, len(outcomes))
	factors := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		annual = append(annual, finite(o.AnnualReturn))
		compound = append(compound, finite(o.CompoundAnnual))
		winRates = append(winRates, o.WinRate)
		factors = append(factors, o.ProfitFactor)
		stats.TotalTrades += o.Trades
		stats.Symbols = append(stats.Symbols, o.Symbol)
	}

	stats.AvgAnnualReturn = average(annual)
	stats.MedianAnnualReturn = median(annual)
	stats.MaxAnnualReturn = maxOf(annual)
	stats.AvgCompoundAnnual = average(compound)
	stats.MedianCompoundAnnual = median(compound)
	stats.MaxCompoundAnnual = maxOf(compound)
	stats.AvgWinRate = average(winRates)
	stats.AvgProfitFactor = average(factors)
	return stats
}

// RankValue returns the measure used for ranking.
func (c ComboStats) RankValue(compound bool) float64 {
	if compound {
		return c.AvgCompoundAnnual
	}
	return c.AvgAnnualReturn
}

// Rounded returns a presentation copy.
func (c ComboStats) Rounded() ComboStats {
	c.AvgAnnualReturn = models.Round2(c.AvgAnnualReturn)
	c.MedianAnnualReturn = models.Round2(c.MedianAnnualReturn)
	c.MaxAnnualReturn = models.Round2(c.MaxAnnualReturn)
	c.AvgCompoundAnnual = models.Round2(c.AvgCompoundAnnual)
	c.MedianCompoundAnnual = models.Round2(c.MedianCompoundAnnual)
	c.MaxCompoundAnnual = models.Round2(c.MaxCompoundAnnual)
	c.AvgWinRate = models.Round2(c.AvgWinRate)
	c.AvgProfitFactor = models.Round2(c.AvgProfitFactor)
	c.Symbols = append([]string(nil), c.Symbols...)
	return c
}

// maxAnnualPercent caps annualised figures from very short series.
const maxAnnualPercent = 1e9

func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > maxAnnualPercent:
		return maxAnnualPercent
	case v < -100:
		return -100
	default:
		return v
	}
}
