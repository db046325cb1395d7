package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/strategy"
)

var testStart = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

// dailySeries builds one bar per day. Bars listed in signals carry that
// level at score 7; every other bar is HOLD at score 1.
func dailySeries(closes []float64, signals map[int]models.Level) []models.Bar {
	return buildSeries(closes, signals, 24*time.Hour)
}

func buildSeries(closes []float64, signals map[int]models.Level, step time.Duration) []models.Bar {
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bar := models.Bar{Timestamp: testStart.Add(time.Duration(i) * step), Open: c, High: c, Low: c, Close: c, Volume: 1000}
		if level, ok := signals[i]; ok {
			bars[i] = bar.WithSignal(7, level)
		} else {
			bars[i] = bar.WithSignal(1, models.LevelHold)
		}
	}
	return bars
}

func buyConfig(t *testing.T, hold int, sl, tp float64) strategy.Config {
	t.Helper()
	cfg, err := strategy.NewConfig(models.LevelBuy, 5.0, hold, sl, tp)
	require.NoError(t, err)
	return cfg
}

func TestRunTakeProfit(t *testing.T) {
	bars := dailySeries([]float64{100, 100, 100, 130, 130, 130}, map[int]models.Level{0: models.LevelBuy})
	result := Run(bars, buyConfig(t, 10, 0.05, 0.10), 1000)

	require.Equal(t, 1, result.TotalTrades)
	trade := result.Trades[0]
	assert.Equal(t, models.ExitTakeProfit, trade.ExitReason)
	assert.InDelta(t, 30.0, trade.PnLRatio, 1e-9)
	assert.Equal(t, bars[3].Timestamp, trade.ExitTime)
	assert.Equal(t, 3, trade.BarsHeld)
	assert.Equal(t, 100.0, result.WinRate)
	assert.InDelta(t, 30.0, result.TotalReturn, 1e-9)
	assert.InDelta(t, 1300.0, result.FinalCapital, 1e-9)
}

func TestRunStopLoss(t *testing.T) {
	bars := dailySeries([]float64{100, 94, 94, 94}, map[int]models.Level{0: models.LevelBuy})
	result := Run(bars, buyConfig(t, 10, 0.05, 0.10), 1000)

	require.Equal(t, 1, result.TotalTrades)
	assert.Equal(t, models.ExitStopLoss, result.Trades[0].ExitReason)
	assert.Equal(t, bars[1].Timestamp, result.Trades[0].ExitTime)
	assert.Equal(t, 0.0, result.WinRate)
	assert.InDelta(t, -6.0, result.TotalReturn, 1e-9)
}

func TestRunHoldExpiresOnFifthElapsedDay(t *testing.T) {
	bars := dailySeries([]float64{100, 100, 100, 100, 100, 100, 100}, map[int]models.Level{0: models.LevelBuy})
	result := Run(bars, buyConfig(t, 5, 0.05, 0.10), 1000)

	require.Equal(t, 1, result.TotalTrades)
	assert.Equal(t, models.ExitHoldExpired, result.Trades[0].ExitReason)
	assert.Equal(t, bars[5].Timestamp, result.Trades[0].ExitTime)
	assert.Equal(t, 5, result.Trades[0].BarsHeld)
}

func TestRunForcedCloseOnLastBar(t *testing.T) {
	bars := dailySeries([]float64{100, 101, 102}, map[int]models.Level{2: models.LevelBuy})
	result := Run(bars, buyConfig(t, 5, 0.05, 0.10), 1000)

	require.Equal(t, 1, result.TotalTrades)
	trade := result.Trades[0]
	assert.Equal(t, models.ExitForcedCloseAtEnd, trade.ExitReason)
	assert.Equal(t, 0.0, trade.PnLRatio)
	assert.Equal(t, trade.EntryTime, trade.ExitTime)
	assert.Equal(t, 1, result.LosingTrades, "break-even counts as a loss")
	assert.InDelta(t, 1000.0, result.FinalCapital, 1e-9)
}

func TestRunTakeProfitBoundaryIsInclusive(t *testing.T) {
	bars := dailySeries([]float64{100, 110}, map[int]models.Level{0: models.LevelBuy})
	result := Run(bars, buyConfig(t, 1, 0.05, 0.10), 1000)

	require.Equal(t, 1, result.TotalTrades)
	assert.Equal(t, models.ExitTakeProfit, result.Trades[0].ExitReason, "take profit wins over an expiring hold")
}

func TestRunStopLossBoundaryIsInclusive(t *testing.T) {
	bars := dailySeries([]float64{100, 95, 95}, map[int]models.Level{0: models.LevelBuy})
	result := Run(bars, buyConfig(t, 10, 0.05, 0.10), 1000)

	require.Equal(t, 1, result.TotalTrades)
	assert.Equal(t, models.ExitStopLoss, result.Trades[0].ExitReason)
}

func TestRunEmptyInput(t *testing.T) {
	result := Run(nil, buyConfig(t, 5, 0.05, 0.10), 1000)
	assert.Equal(t, 0, result.TotalTrades)
	assert.Equal(t, 0.0, result.WinRate)
	assert.Equal(t, 0.0, result.TotalReturn)
	assert.Equal(t, 1000.0, result.FinalCapital)
	assert.Empty(t, result.Trades)

	result = Run(dailySeries([]float64{100}, nil), buyConfig(t, 5, 0.05, 0.10), 0)
	assert.Equal(t, 0, result.TotalTrades)
}

func TestRunSkipsEntryWhenShareUnaffordable(t *testing.T) {
	bars := dailySeries([]float64{100, 100, 100}, map[int]models.Level{0: models.LevelBuy, 1: models.LevelBuy})
	result := Run(bars, buyConfig(t, 5, 0.05, 0.10), 50)
	assert.Equal(t, 0, result.TotalTrades)
	assert.Equal(t, 50.0, result.FinalCapital)
}

func TestRunIgnoresSignalsWhileInPosition(t *testing.T) {
	signals := map[int]models.Level{0: models.LevelBuy, 1: models.LevelBuy, 2: models.LevelBuy}
	bars := dailySeries([]float64{100, 101, 102, 103}, signals)
	result := Run(bars, buyConfig(t, 10, 0.05, 0.50), 1000)

	require.Equal(t, 1, result.TotalTrades)
	assert.Equal(t, models.ExitForcedCloseAtEnd, result.Trades[0].ExitReason)
	assert.Equal(t, 100.0, result.Trades[0].EntryPrice)
}

func TestRunIntradayCountsBars(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 100}
	bars := buildSeries(closes, map[int]models.Level{0: models.LevelBuy}, 5*time.Minute)
	require.False(t, IsDailySeries(bars))

	result := Run(bars, buyConfig(t, 3, 0.05, 0.10), 1000)
	require.Equal(t, 1, result.TotalTrades)
	assert.Equal(t, models.ExitHoldExpired, result.Trades[0].ExitReason)
	assert.Equal(t, bars[3].Timestamp, result.Trades[0].ExitTime)

	forcedDays := RunWithUnit(bars, buyConfig(t, 3, 0.05, 0.10), 1000, HoldDays)
	assert.Equal(t, models.ExitForcedCloseAtEnd, forcedDays.Trades[0].ExitReason)
}

func TestIsDailySeriesOvernightGapStaysIntraday(t *testing.T) {
	bars := buildSeries([]float64{100, 100, 100}, nil, time.Hour)
	bars = append(bars, models.Bar{Timestamp: bars[2].Timestamp.Add(18 * time.Hour), Close: 100})
	bars = append(bars, models.Bar{Timestamp: bars[3].Timestamp.Add(time.Hour), Close: 100})
	assert.False(t, IsDailySeries(bars))

	daily := dailySeries([]float64{100, 101}, nil)
	daily = append(daily, models.Bar{Timestamp: daily[1].Timestamp.Add(72 * time.Hour), Close: 102})
	assert.True(t, IsDailySeries(daily))
	assert.True(t, IsDailySeries(daily[:1]))
}

func TestRunConservationAndSinglePosition(t *testing.T) {
	closes := []float64{100, 104, 97, 101, 112, 108, 95, 99, 103, 118, 90, 92, 96, 101, 107}
	signals := map[int]models.Level{}
	for i := range closes {
		if i%2 == 0 {
			signals[i] = models.LevelBuy
		}
	}
	bars := dailySeries(closes, signals)
	start := 10000.0
	result := Run(bars, buyConfig(t, 3, 0.05, 0.08), start)
	require.NotEmpty(t, result.Trades)

	expected := start
	for i, tr := range result.Trades {
		expected -= float64(tr.Shares) * tr.EntryPrice
		expected += float64(tr.Shares) * tr.ExitPrice
		if i > 0 {
			assert.True(t, result.Trades[i-1].ExitTime.Before(tr.EntryTime), "positions must not overlap")
		}
	}
	assert.InDelta(t, expected, result.FinalCapital, 1e-6)
	assert.Equal(t, result.WinningTrades+result.LosingTrades, result.TotalTrades)
}

func TestRunIsIdempotent(t *testing.T) {
	bars := dailySeries([]float64{100, 103, 99, 108, 111, 104}, map[int]models.Level{0: models.LevelBuy, 3: models.LevelBuy})
	cfg := buyConfig(t, 2, 0.03, 0.05)
	assert.Equal(t, Run(bars, cfg, 5000), Run(bars, cfg, 5000))
}

func TestProfitFactorGuard(t *testing.T) {
	bars := dailySeries([]float64{100, 120, 120, 120}, map[int]models.Level{0: models.LevelBuy, 2: models.LevelBuy})
	result := Run(bars, buyConfig(t, 5, 0.05, 0.10), 1000)
	require.Equal(t, 1, result.WinningTrades)
	require.Equal(t, 1, result.LosingTrades)
	assert.Equal(t, 0.0, result.AverageLoss)
	assert.Equal(t, 0.0, result.ProfitFactor)

	allWins := calculateResult([]models.Trade{{PnL: 10}, {PnL: 20}}, 100, 130)
	assert.Equal(t, 0.0, allWins.ProfitFactor)
	assert.Equal(t, 15.0, allWins.AverageWin)
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(strategy.Config{EntryLevel: models.LevelBuy, MinScore: 5, MaxHold: 0, StopLoss: 0.05, TakeProfit: 0.1}, DefaultBacktestConfig(), nil)
	assert.Error(t, err)

	bad := DefaultBacktestConfig()
	bad.StartingCapital = -1
	_, err = NewEngine(buyConfig(t, 5, 0.05, 0.1), bad, nil)
	assert.Error(t, err)

	engine, err := NewEngine(buyConfig(t, 5, 0.05, 0.1), DefaultBacktestConfig(), nil)
	require.NoError(t, err)
	result := engine.Run("TEST", dailySeries([]float64{100, 111}, map[int]models.Level{0: models.LevelBuy}))
	assert.Equal(t, 1, result.TotalTrades)
}
