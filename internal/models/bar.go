package models

import "time"

// Bar is one OHLCV observation. Score and Level are attached by the signal
// scorer and are absent (nil / empty) on raw provider output.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Score     *float64  `json:"score,omitempty"`
	Level     Level     `json:"level,omitempty"`
}

// HasSignal reports whether a score and level are attached.
func (b Bar) HasSignal() bool {
	return b.Score != nil && b.Level != ""
}

// ScoreValue returns the attached score or 0 when absent.
func (b Bar) ScoreValue() float64 {
	if b.Score == nil {
		return 0
	}
	return *b.Score
}

// WithSignal returns a copy of b carrying the given score and level.
func (b Bar) WithSignal(score float64, level Level) Bar {
	s := score
	b.Score = &s
	b.Level = level
	return b
}

// SpanDays returns the number of calendar days between the first and last bar.
func SpanDays(bars []Bar) int {
	if len(bars) < 2 {
		return 0
	}
	return CalendarDays(bars[0].Timestamp, bars[len(bars)-1].Timestamp)
}

// CalendarDays counts whole calendar days from a to b in UTC.
func CalendarDays(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
