package backtest

import (
	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/strategy"
)

// Comparison is one row of the fixed-grid strategy comparison.
type Comparison struct {
	EntryLevel   models.Level `json:"entry_level"`
	MinScore     float64      `json:"min_score"`
	HoldDays     int          `json:"hold_days"`
	Trades       int          `json:"trades"`
	WinRate      float64      `json:"win_rate"`
	TotalReturn  float64      `json:"total_return"`
	ProfitFactor float64      `json:"profit_factor"`
	Result       *Result      `json:"-"`
}

// DefaultCompareHolds are the hold horizons tried by Compare.
func DefaultCompareHolds() []int {
	return []int{1, 3, 5, 10, 20}
}

// Compare runs every tier in table against every hold horizon with fixed
// exits. Rows with no trades are dropped; the rest are returned unordered.
// An error is returned only when the exit parameters are invalid.
func Compare(bars []models.Bar, holds []int, stopLoss, takeProfit float64, table strategy.LevelTable, cfg BacktestConfig) ([]Comparison, error) {
	rows := make([]Comparison, 0, table.Len()*len(holds))
	for _, entry := range table.Entries() {
		for _, hold := range holds {
			strat, err := strategy.NewConfig(entry.Level, entry.MinScore, hold, stopLoss, takeProfit)
			if err != nil {
				return nil, err
			}
			result := runBars(bars, strat, cfg.StartingCapital, cfg.HoldUnit)
			if result.TotalTrades == 0 {
				continue
			}
			rounded := result.Rounded()
			rows = append(rows, Comparison{
				EntryLevel:   entry.Level,
				MinScore:     entry.MinScore,
				HoldDays:     hold,
				Trades:       result.TotalTrades,
				WinRate:      rounded.WinRate,
				TotalReturn:  rounded.TotalReturn,
				ProfitFactor: rounded.ProfitFactor,
				Result:       result,
			})
		}
	}
	return rows, nil
}

// BestComparison picks the row with the highest total return.
func BestComparison(rows []Comparison) (Comparison, bool) {
	if len(rows) == 0 {
		return Comparison{}, false
	}
	best := rows[0]
	for _, r := range rows[1:] {
		if r.TotalReturn > best.TotalReturn {
			best = r
		}
	}
	return best, true
}
