package models

import (
	"time"

	"github.com/google/uuid"
)

// Signal is the latest-bar classification of one symbol.
type Signal struct {
	Symbol     string             `json:"symbol"`
	Level      Level              `json:"level"`
	Score      float64            `json:"score"`
	Price      float64            `json:"price"`
	Timestamp  time.Time          `json:"timestamp"`
	Timeframe  string             `json:"timeframe,omitempty"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

// ScanSnapshot is a persisted scan run.
type ScanSnapshot struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ScanDate    time.Time `db:"scan_date" json:"scan_date"`
	SignalCount int       `db:"signal_count" json:"signal_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SignalRecord is one signal stored against a scan.
type SignalRecord struct {
	ScanID     uuid.UUID `db:"scan_id" json:"scan_id"`
	Symbol     string    `db:"symbol" json:"symbol"`
	Level      Level     `db:"level" json:"level"`
	Score      float64   `db:"score" json:"score"`
	Price      float64   `db:"price" json:"price"`
	SignalDate time.Time `db:"signal_date" json:"signal_date"`
}

// DailyPrice is one stored close with its score, unique per symbol and date.
type DailyPrice struct {
	Symbol    string    `db:"symbol" json:"symbol"`
	PriceDate time.Time `db:"price_date" json:"price_date"`
	Open      float64   `db:"open" json:"open"`
	High      float64   `db:"high" json:"high"`
	Low       float64   `db:"low" json:"low"`
	Close     float64   `db:"close" json:"close"`
	Volume    float64   `db:"volume" json:"volume"`
	Score     float64   `db:"score" json:"score"`
	Level     Level     `db:"level" json:"level"`
}

// TopPerformer is a symbol's price return over a window.
type TopPerformer struct {
	Symbol     string  `db:"symbol" json:"symbol"`
	FirstPrice float64 `db:"first_price" json:"first_price"`
	LastPrice  float64 `db:"last_price" json:"last_price"`
	ReturnPct  float64 `db:"return_pct" json:"return_pct"`
	AvgScore   float64 `db:"avg_score" json:"avg_score"`
}

// SignalFromBar builds a Signal from a scored bar.
func SignalFromBar(symbol string, bar Bar) Signal {
	return Signal{
		Symbol:    symbol,
		Level:     bar.Level,
		Score:     bar.ScoreValue(),
		Price:     bar.Close,
		Timestamp: bar.Timestamp,
	}
}

// SignalAlert is a signal that is new or changed level since the previous
// scan. PreviousLevel is empty for a first sighting.
type SignalAlert struct {
	Signal
	PreviousLevel Level `json:"previous_level,omitempty"`
}

// IsNew reports whether the symbol was not seen in the previous scan.
func (a SignalAlert) IsNew() bool {
	return a.PreviousLevel == ""
}

// Change describes the transition, e.g. "(BUY → STRONG_BUY)" or "(new)".
func (a SignalAlert) Change() string {
	if a.IsNew() {
		return "(new)"
	}
	return "(" + string(a.PreviousLevel) + " → " + string(a.Level) + ")"
}
