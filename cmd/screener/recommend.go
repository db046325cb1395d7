package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/service"
)

var bestHolds []int

func init() {
	bestCmd.Flags().IntSliceVar(&bestHolds, "holds", nil, "Hold periods to compare (default from config)")
}

func newAdvisor(a *app) (*service.Advisor, error) {
	return service.NewAdvisor(a.provider, a.scorer, a.backtest, log)
}

var recommendCmd = &cobra.Command{
	Use:   "recommend SYMBOL",
	Short: "Recommend the timeframe with the best historical edge for a symbol",
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

		advisor, err := newAdvisor(a)
		if err != nil {
			return err
		}
		rec, err := advisor.RecommendTimeframe(ctx, symbol, models.AllTimeframes())
		if err != nil {
			return err
		}

		fmt.Printf("%-12s %8s %8s %10s\n", "TIMEFRAME", "SCORE", "BEST %", "COMPOSITE")
		for _, o := range rec.Comparison {
			fmt.Printf("%-12s %8.2f %8.2f %10.3f\n", o.Timeframe, o.CurrentScore, o.Best.TotalReturn, o.CompositeScore)
		}
		if !rec.Found() {
			fmt.Printf("No timeframe produced a trade for %s (%d analyzed)\n", symbol, len(rec.Analyzed))
			return nil
		}
		fmt.Printf("\n%s: %s (%s), expected return %.2f%%, current %s %.2f\n",
			symbol, rec.Label, rec.Timeframe, rec.ExpectedReturn, rec.CurrentLevel, rec.CurrentScore)
		return nil
	},
}

var bestCmd = &cobra.Command{
	Use:   "best SYMBOL",
	Short: "Find the best entry level and hold period for a symbol",
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
		advisor, err := newAdvisor(a)
		if err != nil {
			return err
		}
		choice, err := advisor.BestStrategy(ctx, symbol, tf, bestHolds)
		if err != nil {
			return err
		}
		b := choice.Best
		fmt.Printf("%s best strategy on %s: %s >= %.1f, hold %d\n", symbol, tf.Name, b.EntryLevel, b.MinScore, b.HoldDays)
		fmt.Printf("  trades %d, win rate %.1f%%, return %.2f%%, profit factor %.2f\n", b.Trades, b.WinRate, b.TotalReturn, b.ProfitFactor)
		fmt.Printf("  (%d strategies traded)\n", len(choice.All))
		return nil
	},
}
