package backtest

import (
	"time"

	"github.com/yourusername/stock-screener/internal/models"
)

// position is the single open trade of a run.
type position struct {
	entryIndex int
	entryTime  time.Time
	entryPrice float64
	shares     int64
	entryScore float64
}

// runState is owned by exactly one run; nothing in it is shared.
type runState struct {
	startingCapital float64
	capital         float64
	peakEquity      float64
	position        *position
	trades          []models.Trade
	equityCurve     EquityCurve
}

func newRunState(startingCapital float64) *runState {
	return &runState{
		startingCapital: startingCapital,
		capital:         startingCapital,
		peakEquity:      startingCapital,
		trades:          []models.Trade{},
	}
}

func (s *runState) flat() bool {
	return s.position == nil
}

// open buys as many whole shares as capital allows. It reports false and
// stays flat when not even one share is affordable.
func (s *runState) open(i int, bar models.Bar) bool {
	if bar.Close <= 0 {
		return false
	}
	shares := int64(s.capital / bar.Close)
	if shares <= 0 {
		return false
	}
	s.capital -= float64(shares) * bar.Close
	s.position = &position{
		entryIndex: i,
		entryTime:  bar.Timestamp,
		entryPrice: bar.Close,
		shares:     shares,
		entryScore: bar.ScoreValue(),
	}
	return true
}

func (s *runState) close(bar models.Bar, held int, reason models.ExitReason) models.Trade {
	p := s.position
	s.capital += float64(p.shares) * bar.Close
	trade := models.Trade{
		EntryTime:  p.entryTime,
		EntryPrice: p.entryPrice,
		ExitTime:   bar.Timestamp,
		ExitPrice:  bar.Close,
		Shares:     p.shares,
		PnL:        (bar.Close - p.entryPrice) * float64(p.shares),
		PnLRatio:   pnlRatio(p.entryPrice, bar.Close) * 100,
		BarsHeld:   held,
		ExitReason: reason,
		EntryScore: p.entryScore,
	}
	s.trades = append(s.trades, trade)
	s.position = nil
	return trade
}

func (s *runState) equity(price float64) float64 {
	if s.position == nil {
		return s.capital
	}
	return s.capital + float64(s.position.shares)*price
}

// recordEquityPoint marks the run to market at bar close.
func (s *runState) recordEquityPoint(t time.Time, value float64) {
	if value > s.peakEquity {
		s.peakEquity = value
	}
	drawdown := 0.0
	if value < s.peakEquity && s.peakEquity > 0 {
		drawdown = (s.peakEquity - value) / s.peakEquity
	}
	s.equityCurve = append(s.equityCurve, EquityPoint{Time: t, Value: value, Drawdown: drawdown})
}

func pnlRatio(entry, price float64) float64 {
	if entry == 0 {
		return 0
	}
	return (price - entry) / entry
}
