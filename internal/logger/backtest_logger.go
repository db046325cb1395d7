package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// BacktestLogger provides dedicated logging for backtests and sweeps.
type BacktestLogger struct {
	*logrus.Entry
}

// NewBacktestLogger creates a new backtest logger.
func NewBacktestLogger(baseLogger *logrus.Logger) *BacktestLogger {
	return &BacktestLogger{
		Entry: baseLogger.WithField("component", "backtest"),
	}
}

// LogBacktestResult logs a single-strategy run.
func (bl *BacktestLogger) LogBacktestResult(symbol, strategyKey string, trades int, winRate, totalReturn, maxDrawdown float64) {
	bl.WithFields(logrus.Fields{
		"symbol":       symbol,
		"strategy_key": strategyKey,
		"trades":       trades,
		"win_rate":     winRate,
		"total_return": totalReturn,
		"max_drawdown": maxDrawdown,
	}).Info("Backtest completed")
}

// LogComparison logs the best row of a hold/level comparison.
func (bl *BacktestLogger) LogComparison(symbol string, rows int, bestKey string, bestReturn float64) {
	bl.WithFields(logrus.Fields{
		"symbol":      symbol,
		"rows":        rows,
		"best_key":    bestKey,
		"best_return": bestReturn,
	}).Info("Comparison completed")
}

// LogSweepStarted logs the plan of an optimizer sweep.
func (bl *BacktestLogger) LogSweepStarted(symbols, combinations, workers int, rankBy string) {
	bl.WithFields(logrus.Fields{
		"symbols":      symbols,
		"combinations": combinations,
		"workers":      workers,
		"rank_by":      rankBy,
	}).Info("Optimizer sweep started")
}

// LogSymbolSkipped logs a symbol excluded from a sweep.
func (bl *BacktestLogger) LogSymbolSkipped(symbol, reason string, err error) {
	entry := bl.WithFields(logrus.Fields{
		"symbol": symbol,
		"reason": reason,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn("Symbol skipped")
}

// LogSweepCompleted logs the outcome of an optimizer sweep.
func (bl *BacktestLogger) LogSweepCompleted(tested, qualified int, target float64, partial bool, duration time.Duration) {
	entry := bl.WithFields(logrus.Fields{
		"total_tested":    tested,
		"qualified_count": qualified,
		"target":          target,
		"partial":         partial,
		"duration_ms":     duration.Milliseconds(),
	})
	if partial {
		entry.Warn("Optimizer sweep cancelled with partial results")
		return
	}
	entry.Info("Optimizer sweep completed")
}
