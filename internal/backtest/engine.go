// Package backtest replays scored bar series through a single-position
// entry/exit state machine and summarises the resulting trades.
package backtest

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/strategy"
)

// dailyGapThreshold separates daily from intraday series.
const dailyGapThreshold = 20 * time.Hour

// Engine runs one validated strategy. It holds no per-run state and is safe
// for concurrent use.
type Engine struct {
	strategy strategy.Config
	config   BacktestConfig
	logger   *logrus.Logger
}

// NewEngine creates a new backtesting engine
func NewEngine(strat strategy.Config, cfg BacktestConfig, logger *logrus.Logger) (*Engine, error) {
	if err := strat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strategy: %w", err)
	}
	if cfg.StartingCapital <= 0 {
		return nil, fmt.Errorf("starting capital must be positive")
	}
	if cfg.HoldUnit == "" {
		cfg.HoldUnit = HoldAuto
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{strategy: strat, config: cfg, logger: logger}, nil
}

// Strategy returns the engine's strategy configuration
func (e *Engine) Strategy() strategy.Config {
	return e.strategy
}

// Run replays bars and logs a summary.
func (e *Engine) Run(symbol string, bars []models.Bar) *Result {
	result := runBars(bars, e.strategy, e.config.StartingCapital, e.config.HoldUnit)
	e.logger.WithFields(logrus.Fields{
		"symbol":       symbol,
		"strategy":     e.strategy.Key(),
		"bars":         len(bars),
		"trades":       result.TotalTrades,
		"total_return": result.TotalReturn,
	}).Debug("Backtest run completed")
	return result
}

// Run replays bars through cfg starting from startingCapital. Empty input or
// non-positive capital yields an empty result. Hold periods are counted in
// calendar days on daily series and in bars on intraday series.
func Run(bars []models.Bar, cfg strategy.Config, startingCapital float64) *Result {
	return runBars(bars, cfg, startingCapital, HoldAuto)
}

// RunWithUnit is Run with an explicit hold unit.
func RunWithUnit(bars []models.Bar, cfg strategy.Config, startingCapital float64, unit HoldUnit) *Result {
	return runBars(bars, cfg, startingCapital, unit)
}

func runBars(bars []models.Bar, cfg strategy.Config, startingCapital float64, unit HoldUnit) *Result {
	if len(bars) == 0 || startingCapital <= 0 {
		return emptyResult(startingCapital)
	}

	countDays := resolveHoldUnit(unit, bars) == HoldDays
	state := newRunState(startingCapital)

	for i, bar := range bars {
		if state.flat() {
			if cfg.ShouldEnter(bar) {
				state.open(i, bar)
			}
		} else {
			held := i - state.position.entryIndex
			if countDays {
				held = models.CalendarDays(state.position.entryTime, bar.Timestamp)
			}
			if reason, exit := exitReason(cfg, pnlRatio(state.position.entryPrice, bar.Close), held); exit {
				state.close(bar, held, reason)
			}
		}
		state.recordEquityPoint(bar.Timestamp, state.equity(bar.Close))
	}

	if !state.flat() {
		last := bars[len(bars)-1]
		held := len(bars) - 1 - state.position.entryIndex
		if countDays {
			held = models.CalendarDays(state.position.entryTime, last.Timestamp)
		}
		state.close(last, held, models.ExitForcedCloseAtEnd)
	}

	result := calculateResult(state.trades, startingCapital, state.capital)
	result.EquityCurve = state.equityCurve
	result.MaxDrawdown = state.equityCurve.MaxDrawdown() * 100
	result.StartDate = bars[0].Timestamp
	result.EndDate = bars[len(bars)-1].Timestamp
	return result
}

// exitReason applies take profit, then stop loss, then the hold horizon.
func exitReason(cfg strategy.Config, ratio float64, held int) (models.ExitReason, bool) {
	switch {
	case ratio >= cfg.TakeProfit:
		return models.ExitTakeProfit, true
	case ratio <= -cfg.StopLoss:
		return models.ExitStopLoss, true
	case held >= cfg.MaxHold:
		return models.ExitHoldExpired, true
	default:
		return "", false
	}
}

func resolveHoldUnit(unit HoldUnit, bars []models.Bar) HoldUnit {
	if unit == HoldDays || unit == HoldBars {
		return unit
	}
	if IsDailySeries(bars) {
		return HoldDays
	}
	return HoldBars
}

// IsDailySeries reports whether consecutive bars are at least most of a day
// apart. Single-bar series count as daily.
func IsDailySeries(bars []models.Bar) bool {
	for i := 1; i < len(bars); i++ {
		if bars[i].Timestamp.Sub(bars[i-1].Timestamp) < dailyGapThreshold {
			return false
		}
	}
	return true
}
