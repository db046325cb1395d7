package models

import "time"

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitTakeProfit       ExitReason = "TAKE_PROFIT"
	ExitStopLoss         ExitReason = "STOP_LOSS"
	ExitHoldExpired      ExitReason = "HOLD_EXPIRED"
	ExitForcedCloseAtEnd ExitReason = "FORCED_CLOSE_AT_END"
)

// Trade is a closed position. PnLRatio is a percentage.
type Trade struct {
	EntryTime  time.Time  `json:"entry_time"`
	EntryPrice float64    `json:"entry_price"`
	ExitTime   time.Time  `json:"exit_time"`
	ExitPrice  float64    `json:"exit_price"`
	Shares     int64      `json:"shares"`
	PnL        float64    `json:"pnl"`
	PnLRatio   float64    `json:"pnl_ratio"`
	BarsHeld   int        `json:"bars_held"`
	ExitReason ExitReason `json:"exit_reason"`
	EntryScore float64    `json:"entry_score"`
}

// Won reports whether the trade made money. Break-even counts as a loss.
func (t Trade) Won() bool {
	return t.PnL > 0
}
