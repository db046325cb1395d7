package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/stock-screener/internal/service"
)

var (
	scanMinScore float64
	scanSave     bool
	scanJSON     bool
)

func init() {
	scanCmd.Flags().Float64Var(&scanMinScore, "min-score", 0, "Minimum composite score (default from config)")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Persist the scan, its signals and daily prices")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the result as JSON")
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Score the universe and list buy signals",
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
		opts := service.ScanOptionsFromConfig(cfg.Scan)
		if cmd.Flags().Changed("min-score") {
			opts.MinScore = scanMinScore
		}
		scanner, err := service.NewScanner(a.provider, a.scorer, opts, log)
		if err != nil {
			return err
		}

		result, scanErr := scanner.Scan(ctx, a.universe(ctx), tf)
		if result == nil {
			return scanErr
		}

		if scanSave && len(result.Signals) > 0 {
			repos, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if err := repos.Scans.SaveScan(ctx, result.Snapshot(), result.Records(), result.DailyPrices()); err != nil {
				return fmt.Errorf("failed to save scan: %w", err)
			}
			log.WithField("scan_id", result.ID).Info("Scan saved")
		}

		if scanJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			return scanErr
		}

		fmt.Printf("Scan %s (%s): %d scanned, %d failed, %d signals >= %.1f\n",
			result.ID, result.Timeframe, result.Scanned, len(result.Failed), len(result.Signals), result.MinScore)
		fmt.Printf("%-8s %-11s %6s %10s\n", "SYMBOL", "LEVEL", "SCORE", "PRICE")
		for _, s := range result.Signals {
			fmt.Printf("%-8s %-11s %6.2f %10.2f\n", s.Symbol, s.Level, s.Score, s.Price)
		}
		counts := result.CountByLevel()
		fmt.Printf("\nSTRONG_BUY %d  BUY %d  WATCH %d\n", counts["STRONG_BUY"], counts["BUY"], counts["WATCH"])
		return scanErr
	},
}
