package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// GenerateConsoleReport formats a single run for terminal output
func GenerateConsoleReport(symbol, key string, result *Result) string {
	r := result.Rounded()
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Symbol: %s\n", symbol))
	builder.WriteString(fmt.Sprintf("Strategy: %s\n", key))
	builder.WriteString(fmt.Sprintf("Trades: %d (%d won, %d lost)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades))
	builder.WriteString(fmt.Sprintf("Win Rate: %.2f%%\n", r.WinRate))
	builder.WriteString(fmt.Sprintf("Total P&L: %.2f\n", r.TotalPnL))
	builder.WriteString(fmt.Sprintf("Total Return: %.2f%%\n", r.TotalReturn))
	builder.WriteString(fmt.Sprintf("Final Capital: %.2f\n", r.FinalCapital))
	builder.WriteString(fmt.Sprintf("Average Win: %.2f\n", r.AverageWin))
	builder.WriteString(fmt.Sprintf("Average Loss: %.2f\n", r.AverageLoss))
	builder.WriteString(fmt.Sprintf("Profit Factor: %.2f\n", r.ProfitFactor))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", r.MaxDrawdown))
	if len(r.Trades) > 0 {
		builder.WriteString("\nTrades\n")
		for _, t := range r.Trades {
			builder.WriteString(fmt.Sprintf("  %s -> %s  %.2f -> %.2f  x%d  %+.2f%%  %s\n",
				t.EntryTime.Format("2006-01-02 15:04"), t.ExitTime.Format("2006-01-02 15:04"),
				t.EntryPrice, t.ExitPrice, t.Shares, t.PnLRatio, t.ExitReason))
		}
	}
	return builder.String()
}

// GenerateComparisonReport formats comparison rows, best first
func GenerateComparisonReport(symbol string, rows []Comparison) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Strategy Comparison: %s\n", symbol))
	builder.WriteString(fmt.Sprintf("%-12s %6s %7s %9s %11s %8s\n", "LEVEL", "HOLD", "TRADES", "WIN_RATE", "RETURN", "PF"))
	for _, r := range rows {
		builder.WriteString(fmt.Sprintf("%-12s %6d %7d %8.2f%% %10.2f%% %8.2f\n",
			r.EntryLevel, r.HoldDays, r.Trades, r.WinRate, r.TotalReturn, r.ProfitFactor))
	}
	if best, ok := BestComparison(rows); ok {
		builder.WriteString(fmt.Sprintf("\nBest: %s hold %d (%.2f%%)\n", best.EntryLevel, best.HoldDays, best.TotalReturn))
	}
	return builder.String()
}

// GenerateSweepReport formats ranked combinations
func GenerateSweepReport(target float64, stats []ComboStats) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Strategies with average annual return >= %.0f%%\n", target))
	for i, s := range stats {
		r := s.Rounded()
		builder.WriteString(fmt.Sprintf("%2d. %s\n", i+1, r.Key))
		builder.WriteString(fmt.Sprintf("    annual avg %.2f%% median %.2f%% max %.2f%%\n", r.AvgAnnualReturn, r.MedianAnnualReturn, r.MaxAnnualReturn))
		builder.WriteString(fmt.Sprintf("    compound annual avg %.2f%%\n", r.AvgCompoundAnnual))
		builder.WriteString(fmt.Sprintf("    win rate %.2f%% trades %d symbols %d pf %.2f\n", r.AvgWinRate, r.TotalTrades, r.SampleSize, r.AvgProfitFactor))
	}
	return builder.String()
}

// GenerateHTMLReport creates a simple HTML report
func GenerateHTMLReport(symbol, key string, result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	r := result.Rounded()

	var rows strings.Builder
	for _, t := range r.Trades {
		rows.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%.2f</td><td>%.2f</td><td>%.2f%%</td><td>%s</td></tr>\n",
			t.EntryTime.Format("2006-01-02"), t.ExitTime.Format("2006-01-02"), t.EntryPrice, t.ExitPrice, t.PnLRatio, t.ExitReason))
	}

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Backtest Report - %s</title></head>
<body>
<h1>Backtest Report - %s</h1>
<p><strong>Strategy:</strong> %s</p>
<p><strong>Trades:</strong> %d</p>
<p><strong>Win Rate:</strong> %.2f%%</p>
<p><strong>Total Return:</strong> %.2f%%</p>
<p><strong>Final Capital:</strong> %.2f</p>
<p><strong>Profit Factor:</strong> %.2f</p>
<p><strong>Max Drawdown:</strong> %.2f%%</p>
<table>
<tr><th>Entry</th><th>Exit</th><th>Entry Price</th><th>Exit Price</th><th>P&amp;L</th><th>Reason</th></tr>
%s</table>
</body>
</html>`,
		symbol, symbol, key, r.TotalTrades, r.WinRate, r.TotalReturn, r.FinalCapital, r.ProfitFactor, r.MaxDrawdown, rows.String())

	return os.WriteFile(outputPath, []byte(html), 0o644)
}

// GenerateCSVExport exports the trade log for spreadsheets
func GenerateCSVExport(result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"entry_time", "entry_price", "exit_time", "exit_price", "shares", "pnl", "pnl_ratio", "bars_held", "exit_reason", "entry_score"}); err != nil {
		return err
	}
	for _, t := range result.Rounded().Trades {
		record := []string{
			t.EntryTime.Format(time.RFC3339),
			strconv.FormatFloat(t.EntryPrice, 'f', 4, 64),
			t.ExitTime.Format(time.RFC3339),
			strconv.FormatFloat(t.ExitPrice, 'f', 4, 64),
			strconv.FormatInt(t.Shares, 10),
			strconv.FormatFloat(t.PnL, 'f', 2, 64),
			strconv.FormatFloat(t.PnLRatio, 'f', 2, 64),
			strconv.Itoa(t.BarsHeld),
			string(t.ExitReason),
			strconv.FormatFloat(t.EntryScore, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
