package backtest

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/yourusername/stock-screener/internal/models"
)

// Result represents backtest performance for one strategy over one series.
// Figures are full precision; call Rounded for presentation.
type Result struct {
	TotalTrades     int            `json:"total_trades"`
	WinningTrades   int            `json:"winning_trades"`
	LosingTrades    int            `json:"losing_trades"`
	WinRate         float64        `json:"win_rate"`
	TotalPnL        float64        `json:"total_pnl"`
	TotalReturn     float64        `json:"total_return"`
	StartingCapital float64        `json:"starting_capital"`
	FinalCapital    float64        `json:"final_capital"`
	AverageWin      float64        `json:"avg_win"`
	AverageLoss     float64        `json:"avg_loss"`
	ProfitFactor    float64        `json:"profit_factor"`
	MaxDrawdown     float64        `json:"max_drawdown"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
	Trades          []models.Trade `json:"trades"`
	EquityCurve     EquityCurve    `json:"-"`
}

func emptyResult(startingCapital float64) *Result {
	final := startingCapital
	if final < 0 {
		final = 0
	}
	return &Result{
		StartingCapital: startingCapital,
		FinalCapital:    final,
		Trades:          []models.Trade{},
	}
}

// calculateResult derives every aggregate from the trade log and capital.
func calculateResult(trades []models.Trade, startingCapital, finalCapital float64) *Result {
	result := emptyResult(startingCapital)
	result.FinalCapital = finalCapital
	result.Trades = trades
	result.TotalTrades = len(trades)
	if len(trades) == 0 {
		return result
	}

	var winSum, lossSum float64
	for _, t := range trades {
		result.TotalPnL += t.PnL
		if t.Won() {
			result.WinningTrades++
			winSum += t.PnL
		} else {
			result.LosingTrades++
			lossSum += t.PnL
		}
	}

	result.WinRate = calculateWinRate(result.WinningTrades, result.TotalTrades)
	result.TotalReturn = calculateTotalReturn(startingCapital, finalCapital)
	if result.WinningTrades > 0 {
		result.AverageWin = winSum / float64(result.WinningTrades)
	}
	if result.LosingTrades > 0 {
		result.AverageLoss = lossSum / float64(result.LosingTrades)
	}
	result.ProfitFactor = calculateProfitFactor(result.AverageWin, result.AverageLoss)
	return result
}

func calculateWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

func calculateTotalReturn(start, final float64) float64 {
	if start <= 0 {
		return 0
	}
	return (final - start) / start * 100
}

// calculateProfitFactor is 0 when there is no average loss to divide by.
func calculateProfitFactor(avgWin, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 0
	}
	return math.Abs(avgWin / avgLoss)
}

// Rounded returns a copy with money and percentages rounded to two decimals.
func (r *Result) Rounded() *Result {
	out := *r
	out.WinRate = models.Round2(r.WinRate)
	out.TotalPnL = models.Round2(r.TotalPnL)
	out.TotalReturn = models.Round2(r.TotalReturn)
	out.FinalCapital = models.Round2(r.FinalCapital)
	out.AverageWin = models.Round2(r.AverageWin)
	out.AverageLoss = models.Round2(r.AverageLoss)
	out.ProfitFactor = models.Round2(r.ProfitFactor)
	out.MaxDrawdown = models.Round2(r.MaxDrawdown)
	out.Trades = make([]models.Trade, len(r.Trades))
	for i, t := range r.Trades {
		t.PnL = models.Round2(t.PnL)
		t.PnLRatio = models.Round2(t.PnLRatio)
		out.Trades[i] = t
	}
	return &out
}

// ToJSON exports the rounded result to JSON
func (r *Result) ToJSON() string {
	data, _ := json.Marshal(r.Rounded())
	return string(data)
}

// ToRun converts the result into a persisted record.
func (r *Result) ToRun(key, symbol, timeframe string) *models.BacktestRun {
	rounded := r.Rounded()
	full, _ := json.Marshal(rounded)
	return &models.BacktestRun{
		StrategyKey:    key,
		Symbol:         symbol,
		Timeframe:      timeframe,
		Method:         "single",
		RunDate:        time.Now().UTC(),
		InitialCapital: r.StartingCapital,
		FinalCapital:   rounded.FinalCapital,
		TotalReturn:    rounded.TotalReturn,
		MaxDrawdown:    rounded.MaxDrawdown,
		TotalTrades:    r.TotalTrades,
		WinRate:        rounded.WinRate,
		ProfitFactor:   rounded.ProfitFactor,
		FullResults:    full,
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	return mean / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
