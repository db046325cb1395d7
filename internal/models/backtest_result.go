package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BacktestRun represents a persisted backtest or sweep combination result
type BacktestRun struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	RunID          uuid.UUID       `db:"run_id" json:"run_id"`
	StrategyKey    string          `db:"strategy_key" json:"strategy_key"`
	Symbol         string          `db:"symbol" json:"symbol"`
	Timeframe      string          `db:"timeframe" json:"timeframe"`
	Method         string          `db:"method" json:"method"`
	RunDate        time.Time       `db:"run_date" json:"run_date"`
	InitialCapital float64         `db:"initial_capital" json:"initial_capital"`
	FinalCapital   float64         `db:"final_capital" json:"final_capital"`
	TotalReturn    float64         `db:"total_return" json:"total_return"`
	AnnualReturn   float64         `db:"annual_return" json:"annual_return"`
	MaxDrawdown    float64         `db:"max_drawdown" json:"max_drawdown"`
	TotalTrades    int             `db:"total_trades" json:"total_trades"`
	WinRate        float64         `db:"win_rate" json:"win_rate"`
	ProfitFactor   float64         `db:"profit_factor" json:"profit_factor"`
	Parameters     json.RawMessage `db:"parameters" json:"parameters"`
	FullResults    json.RawMessage `db:"full_results" json:"full_results"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
