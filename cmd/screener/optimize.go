package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/stock-screener/internal/backtest"
	"github.com/yourusername/stock-screener/internal/service"
	"github.com/yourusername/stock-screener/internal/strategy"
)

var (
	optTarget   float64
	optFallback float64
	optRankBy   string
	optRandom   int
	optSample   int
	optShuffle  bool
	optSave     bool
)

func init() {
	optimizeCmd.Flags().Float64Var(&optTarget, "target", 0, "Minimum annualized return in percent (default from config)")
	optimizeCmd.Flags().Float64Var(&optFallback, "fallback", 0, "Target applied when nothing meets --target (default from config)")
	optimizeCmd.Flags().StringVar(&optRankBy, "rank-by", "", "Ranking measure: annual or compound (default from config)")
	optimizeCmd.Flags().IntVar(&optRandom, "random", 0, "Evaluate N random grid combinations instead of the full grid")
	optimizeCmd.Flags().IntVar(&optSample, "sample", 0, "Number of symbols sampled from the universe (default from config)")
	optimizeCmd.Flags().BoolVar(&optShuffle, "random-sample", false, "Sample symbols at random (seeded) instead of taking the first ones")
	optimizeCmd.Flags().BoolVar(&optSave, "save", false, "Persist the qualifying combinations")
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Sweep strategy parameters across a symbol sample",
	Long: `Evaluate every combination of entry level, minimum score, hold period,
stop loss and take profit over a sample of the universe and list the
combinations whose mean annualized return meets the target.

Interrupting the sweep prints the combinations finished so far.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
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
		var gen strategy.Generator = grid
		if optRandom > 0 {
			sampler, err := strategy.NewRandomSampler(grid, optRandom, cfg.Optimizer.Seed)
			if err != nil {
				return err
			}
			gen = sampler
		}

		opts := service.OptimizerOptionsFromConfig(cfg.Optimizer)
		if optRankBy != "" {
			opts.RankBy = service.RankBy(optRankBy)
		}
		if optSample > 0 {
			opts.SampleSize = optSample
		}
		if optShuffle {
			opts.RandomSample = true
		}
		optimizer, err := service.NewOptimizer(a.provider, a.scorer, a.backtest, opts, log)
		if err != nil {
			return err
		}

		primary, fallback := cfg.Optimizer.TargetReturn, cfg.Optimizer.FallbackTarget
		if cmd.Flags().Changed("target") {
			primary = optTarget
		}
		if cmd.Flags().Changed("fallback") {
			fallback = optFallback
		}

		report, sweepErr := optimizer.Recommend(ctx, a.universe(ctx), gen, primary, fallback, tf)
		if report == nil {
			return sweepErr
		}
		if report.Partial {
			fmt.Printf("Interrupted: %d of %d combinations evaluated\n\n", report.TotalTested, report.Combinations)
		}
		fmt.Printf("Timeframe %s, %d/%d symbols loaded, ranked by %s\n",
			report.Timeframe, report.SymbolsLoaded, len(report.Symbols), report.RankBy)
		fmt.Print(backtest.GenerateSweepReport(report.Target, report.Results))
		if report.QualifiedCount > len(report.Results) {
			fmt.Printf("... %d more qualified\n", report.QualifiedCount-len(report.Results))
		}

		if optSave && sweepErr == nil && len(report.Results) > 0 {
			repos, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if err := repos.BacktestRuns.CreateBatch(ctx, report.ToRuns(a.backtest.StartingCapital)); err != nil {
				return fmt.Errorf("failed to save sweep: %w", err)
			}
			fmt.Printf("Saved sweep %s\n", report.RunID)
		}
		if errors.Is(sweepErr, context.Canceled) {
			return nil
		}
		return sweepErr
	},
}
