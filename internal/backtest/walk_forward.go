package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/strategy"
)

// WalkForwardConfig configures walk-forward selection over a bar series
type WalkForwardConfig struct {
	TrainBars          int `json:"train_bars"`
	TestBars           int `json:"test_bars"`
	StepBars           int `json:"step_bars"`
	MinTradesPerWindow int `json:"min_trades_per_window"`
}

// WalkForwardWindow represents one walk-forward window
type WalkForwardWindow struct {
	WindowID    int             `json:"window_id"`
	TrainStart  time.Time       `json:"train_start"`
	TrainEnd    time.Time       `json:"train_end"`
	TestStart   time.Time       `json:"test_start"`
	TestEnd     time.Time       `json:"test_end"`
	Selected    strategy.Config `json:"selected"`
	TrainReturn float64         `json:"train_return"`
	TestReturn  float64         `json:"test_return"`
	TestTrades  int             `json:"test_trades"`
}

// WalkForwardResult represents walk-forward optimization result
type WalkForwardResult struct {
	Windows          []WalkForwardWindow `json:"windows"`
	AvgTestReturn    float64             `json:"avg_test_return"`
	ConsistencyScore float64             `json:"consistency_score"`
	OverfitScore     float64             `json:"overfit_score"`
}

// RunWalkForward picks the best configuration from gen on each training
// window and measures it on the following out-of-sample window.
func RunWalkForward(ctx context.Context, bars []models.Bar, gen strategy.Generator, cfg WalkForwardConfig, bt BacktestConfig) (WalkForwardResult, error) {
	if gen == nil {
		return WalkForwardResult{}, fmt.Errorf("generator is required")
	}
	if cfg.TrainBars <= 0 || cfg.TestBars <= 0 {
		return WalkForwardResult{}, fmt.Errorf("train and test windows must be positive")
	}
	if cfg.StepBars <= 0 {
		cfg.StepBars = cfg.TestBars
	}

	windows := []WalkForwardWindow{}
	windowID := 0
	for start := 0; start+cfg.TrainBars+cfg.TestBars <= len(bars); start += cfg.StepBars {
		if err := ctx.Err(); err != nil {
			return WalkForwardResult{}, err
		}
		train := bars[start : start+cfg.TrainBars]
		test := bars[start+cfg.TrainBars : start+cfg.TrainBars+cfg.TestBars]
		windowID++

		selected, trainResult, ok := selectBest(train, gen, cfg.MinTradesPerWindow, bt)
		if !ok {
			continue
		}
		testResult := runBars(test, selected, bt.StartingCapital, bt.HoldUnit)
		if cfg.MinTradesPerWindow > 0 && testResult.TotalTrades < cfg.MinTradesPerWindow {
			continue
		}

		windows = append(windows, WalkForwardWindow{
			WindowID:    windowID,
			TrainStart:  train[0].Timestamp,
			TrainEnd:    train[len(train)-1].Timestamp,
			TestStart:   test[0].Timestamp,
			TestEnd:     test[len(test)-1].Timestamp,
			Selected:    selected,
			TrainReturn: trainResult.TotalReturn,
			TestReturn:  testResult.TotalReturn,
			TestTrades:  testResult.TotalTrades,
		})
	}

	testReturns := make([]float64, len(windows))
	for i, w := range windows {
		testReturns[i] = w.TestReturn
	}
	return WalkForwardResult{
		Windows:          windows,
		AvgTestReturn:    average(testReturns),
		ConsistencyScore: CalculateConsistency(windows),
		OverfitScore:     calculateOverfitScore(windows),
	}, nil
}

func selectBest(train []models.Bar, gen strategy.Generator, minTrades int, bt BacktestConfig) (strategy.Config, *Result, bool) {
	var (
		best       strategy.Config
		bestResult *Result
	)
	gen.Reset()
	defer gen.Reset()
	for {
		cfg, ok := gen.Next()
		if !ok {
			break
		}
		result := runBars(train, cfg, bt.StartingCapital, bt.HoldUnit)
		if result.TotalTrades == 0 || result.TotalTrades < minTrades {
			continue
		}
		if bestResult == nil || result.TotalReturn > bestResult.TotalReturn {
			best, bestResult = cfg, result
		}
	}
	return best, bestResult, bestResult != nil
}

// CalculateConsistency calculates percentage of profitable test windows
func CalculateConsistency(windows []WalkForwardWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	profitable := 0
	for _, w := range windows {
		if w.TestReturn > 0 {
			profitable++
		}
	}
	return float64(profitable) / float64(len(windows))
}

func calculateOverfitScore(windows []WalkForwardWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	trainReturn := 0.0
	testReturn := 0.0
	for _, w := range windows {
		trainReturn += w.TrainReturn
		testReturn += w.TestReturn
	}
	if trainReturn == 0 {
		return 0
	}
	return (trainReturn - testReturn) / trainReturn
}

// ToJSON exports the walk-forward result
func (w WalkForwardResult) ToJSON() string {
	data, _ := json.Marshal(w)
	return string(data)
}
