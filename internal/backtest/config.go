package backtest

import (
	"fmt"

	"github.com/yourusername/stock-screener/internal/config"
	"github.com/yourusername/stock-screener/internal/strategy"
)

// HoldUnit selects how the holding period is counted.
type HoldUnit string

const (
	// HoldAuto counts calendar days on daily series and bars on intraday series.
	HoldAuto HoldUnit = "auto"
	HoldDays HoldUnit = "days"
	HoldBars HoldUnit = "bars"
)

// BacktestConfig holds run-level settings that are not part of a strategy.
type BacktestConfig struct {
	StartingCapital float64
	HoldUnit        HoldUnit
	StopLoss        float64
	TakeProfit      float64
	MaxHold         int
	CompareHolds    []int
	OutputDir       string
}

// DefaultBacktestConfig returns the standard settings.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		StartingCapital: strategy.DefaultCapital,
		HoldUnit:        HoldAuto,
		StopLoss:        strategy.DefaultStopLoss,
		TakeProfit:      strategy.DefaultTakeProfit,
		MaxHold:         strategy.DefaultMaxHold,
		CompareHolds:    DefaultCompareHolds(),
		OutputDir:       "./output",
	}
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.BacktestConfig) (BacktestConfig, error) {
	if cfg == nil {
		return BacktestConfig{}, fmt.Errorf("backtest config is required")
	}
	bt := DefaultBacktestConfig()
	if cfg.InitialCapital != 0 {
		bt.StartingCapital = cfg.InitialCapital
	}
	if cfg.HoldUnit != "" {
		bt.HoldUnit = HoldUnit(cfg.HoldUnit)
	}
	if cfg.StopLoss != 0 {
		bt.StopLoss = cfg.StopLoss
	}
	if cfg.TakeProfit != 0 {
		bt.TakeProfit = cfg.TakeProfit
	}
	if cfg.MaxHold != 0 {
		bt.MaxHold = cfg.MaxHold
	}
	if len(cfg.CompareHolds) > 0 {
		bt.CompareHolds = append([]int(nil), cfg.CompareHolds...)
	}
	if cfg.OutputDir != "" {
		bt.OutputDir = cfg.OutputDir
	}
	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (b BacktestConfig) Validate() error {
	if b.StartingCapital <= 0 {
		return fmt.Errorf("starting capital must be positive")
	}
	switch b.HoldUnit {
	case HoldAuto, HoldDays, HoldBars:
	default:
		return fmt.Errorf("unknown hold unit %q", b.HoldUnit)
	}
	if b.StopLoss <= 0 || b.StopLoss >= 1 {
		return fmt.Errorf("stop loss must be between 0 and 1")
	}
	if b.TakeProfit <= 0 {
		return fmt.Errorf("take profit must be positive")
	}
	if b.MaxHold <= 0 {
		return fmt.Errorf("max hold must be positive")
	}
	for _, h := range b.CompareHolds {
		if h <= 0 {
			return fmt.Errorf("compare holds must be positive")
		}
	}
	return nil
}

// StrategyFor builds the default-exit strategy for an entry tier.
func (b BacktestConfig) StrategyFor(threshold strategy.LevelThreshold) (strategy.Config, error) {
	return strategy.NewConfig(threshold.Level, threshold.MinScore, b.MaxHold, b.StopLoss, b.TakeProfit)
}
