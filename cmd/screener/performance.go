package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/service"
)

var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Measure how past signals of each level performed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tf, err := resolveTimeframe(cfg.Scan.Timeframe)
		if err != nil {
			return err
		}
		analyzer, err := service.NewPerformanceAnalyzer(a.provider, a.scorer, a.backtest, cfg.Scan.Concurrency, log)
		if err != nil {
			return err
		}
		report, err := analyzer.Analyze(ctx, a.universe(ctx), tf)
		if err != nil {
			return err
		}

		fmt.Printf("Signal performance on %s (%d symbols, %s)\n\n", report.Timeframe, report.AnalyzedSymbols, report.Duration.Round(time.Millisecond))
		printStats("ALL", report.Overall)
		for _, level := range models.Levels() {
			if stats, ok := report.ByLevel[level]; ok {
				printStats(string(level), stats)
			}
		}
		return nil
	},
}

func printStats(label string, s service.TradeStats) {
	fmt.Printf("%-11s trades %5d  win %6.2f%%  avg %7.2f%%  min %7.2f%%  max %7.2f%%  pf %6.2f\n",
		label, s.TotalTrades, s.WinRate, s.AvgReturn, s.MinReturn, s.MaxReturn, s.ProfitFactor)
}
