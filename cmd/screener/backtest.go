package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/stock-screener/internal/backtest"
	"github.com/yourusername/stock-screener/internal/logger"
	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/strategy"
)

var (
	btLevel      string
	btMinScore   float64
	btHold       int
	btStopLoss   float64
	btTakeProfit float64
	btSave       bool
	btHTML       bool
	btCSV        bool
	compareHolds []int
	wfTrain      int
	wfTest       int
	wfStep       int
	wfMinTrades  int
)

func init() {
	backtestCmd.Flags().StringVar(&btLevel, "level", "BUY", "Entry level")
	backtestCmd.Flags().Float64Var(&btMinScore, "min-score", 0, "Minimum entry score (default: the level's canonical threshold)")
	backtestCmd.Flags().IntVar(&btHold, "hold", 0, "Maximum hold (default from config)")
	backtestCmd.Flags().Float64Var(&btStopLoss, "stop-loss", 0, "Stop loss fraction (default from config)")
	backtestCmd.Flags().Float64Var(&btTakeProfit, "take-profit", 0, "Take profit fraction (default from config)")
	backtestCmd.Flags().BoolVar(&btSave, "save", false, "Persist the run")
	backtestCmd.Flags().BoolVar(&btHTML, "html", false, "Write an HTML report to the output directory")
	backtestCmd.Flags().BoolVar(&btCSV, "csv", false, "Write the trade log as CSV to the output directory")

	compareCmd.Flags().IntSliceVar(&compareHolds, "holds", nil, "Hold periods to compare (default from config)")

	walkForwardCmd.Flags().IntVar(&wfTrain, "train", 120, "Training window in bars")
	walkForwardCmd.Flags().IntVar(&wfTest, "test", 40, "Test window in bars")
	walkForwardCmd.Flags().IntVar(&wfStep, "step", 0, "Step in bars (default: test window)")
	walkForwardCmd.Flags().IntVar(&wfMinTrades, "min-trades", 1, "Minimum training trades for a configuration to be selected")
}

// strategyFromFlags builds the single strategy for the backtest command.
func strategyFromFlags(bt backtest.BacktestConfig) (strategy.Config, error) {
	level, err := models.ParseLevel(btLevel)
	if err != nil {
		return strategy.Config{}, err
	}
	minScore := btMinScore
	if minScore == 0 {
		canonical, ok := strategy.CanonicalLevels().MinScore(level)
		if !ok {
			return strategy.Config{}, fmt.Errorf("level %s has no canonical threshold, set --min-score", level)
		}
		minScore = canonical
	}
	hold, sl, tp := bt.MaxHold, bt.StopLoss, bt.TakeProfit
	if btHold != 0 {
		hold = btHold
	}
	if btStopLoss != 0 {
		sl = btStopLoss
	}
	if btTakeProfit != 0 {
		tp = btTakeProfit
	}
	return strategy.NewConfig(level, minScore, hold, sl, tp)
}

var backtestCmd = &cobra.Command{
	Use:   "backtest SYMBOL",
	Short: "Backtest one entry/exit strategy on a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		symbol, err := singleSymbol(args)
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tf, err := resolveTimeframe(cfg.Scan.Timeframe)
		if err != nil {
			return err
		}
		strat, err := strategyFromFlags(a.backtest)
		if err != nil {
			return err
		}
		engine, err := backtest.NewEngine(strat, a.backtest, log)
		if err != nil {
			return err
		}
		bars, err := a.scoredBars(ctx, symbol, tf)
		if err != nil {
			return err
		}

		result := engine.Run(symbol, bars)
		logger.NewBacktestLogger(log).LogBacktestResult(symbol, strat.Key(), result.TotalTrades, result.WinRate, result.TotalReturn, result.MaxDrawdown)
		fmt.Print(backtest.GenerateConsoleReport(symbol, strat.Key(), result))

		base := filepath.Join(a.backtest.OutputDir, fmt.Sprintf("%s_%s", symbol, strings.ReplaceAll(strat.Key(), "/", "_")))
		if btHTML {
			if err := backtest.GenerateHTMLReport(symbol, strat.Key(), result, base+".html"); err != nil {
				return fmt.Errorf("failed to write HTML report: %w", err)
			}
			fmt.Printf("\nHTML report: %s.html\n", base)
		}
		if btCSV {
			if err := backtest.GenerateCSVExport(result, base+".csv"); err != nil {
				return fmt.Errorf("failed to write CSV: %w", err)
			}
			fmt.Printf("Trade log: %s.csv\n", base)
		}
		if btSave {
			repos, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			run := result.ToRun(strat.Key(), symbol, tf.Name)
			if err := repos.BacktestRuns.Create(ctx, run); err != nil {
				return fmt.Errorf("failed to save backtest run: %w", err)
			}
			fmt.Printf("Saved run %s\n", run.RunID)
		}
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare SYMBOL",
	Short: "Compare every entry level and hold period with fixed exits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		symbol, err := singleSymbol(args)
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tf, err := resolveTimeframe(cfg.Scan.Timeframe)
		if err != nil {
			return err
		}
		bars, err := a.scoredBars(ctx, symbol, tf)
		if err != nil {
			return err
		}

		holds := compareHolds
		if len(holds) == 0 {
			holds = a.backtest.CompareHolds
		}
		rows, err := backtest.Compare(bars, holds, a.backtest.StopLoss, a.backtest.TakeProfit, strategy.CanonicalLevels(), a.backtest)
		if err != nil {
			return err
		}
		if best, ok := backtest.BestComparison(rows); ok {
			key := fmt.Sprintf("%s/%.1f/hold%d", best.EntryLevel, best.MinScore, best.HoldDays)
			logger.NewBacktestLogger(log).LogComparison(symbol, len(rows), key, best.TotalReturn)
		}
		if len(rows) == 0 {
			fmt.Printf("No strategy produced a trade for %s\n", symbol)
			return nil
		}
		fmt.Print(backtest.GenerateComparisonReport(symbol, rows))
		return nil
	},
}

var walkForwardCmd = &cobra.Command{
	Use:   "walkforward SYMBOL",
	Short: "Select the best grid configuration per training window and test it out of sample",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		symbol, err := singleSymbol(args)
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tf, err := resolveTimeframe(cfg.Optimizer.Timeframe)
		if err != nil {
			return err
		}
		grid, err := cfg.OptimizerGrid()
		if err != nil {
			return err
		}
		bars, err := a.scoredBars(ctx, symbol, tf)
		if err != nil {
			return err
		}

		result, err := backtest.RunWalkForward(ctx, bars, grid, backtest.WalkForwardConfig{
			TrainBars:          wfTrain,
			TestBars:           wfTest,
			StepBars:           wfStep,
			MinTradesPerWindow: wfMinTrades,
		}, a.backtest)
		if err != nil {
			return err
		}
		if len(result.Windows) == 0 {
			fmt.Printf("%s has %d bars, too few for a %d+%d window\n", symbol, len(bars), wfTrain, wfTest)
			return nil
		}
		fmt.Println(result.ToJSON())
		return nil
	},
}
