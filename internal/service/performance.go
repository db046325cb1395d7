package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-screener/internal/backtest"
	"github.com/yourusername/stock-screener/internal/datasource"
	"github.com/yourusername/stock-screener/internal/metrics"
	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/signal"
	"github.com/yourusername/stock-screener/internal/strategy"
)

// TradeStats summarizes per-trade returns. Returns are percentages.
type TradeStats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	MinReturn     float64 `json:"min_return"`
	MaxReturn     float64 `json:"max_return"`
	AvgReturn     float64 `json:"avg_return"`
	TotalReturn   float64 `json:"total_return"`
	ProfitFactor  float64 `json:"profit_factor"`
}

// CalculateTradeStats aggregates trade returns. A return above zero is a
// win; everything else is a loss. With no losses the profit factor is the
// summed winning return.
func CalculateTradeStats(returns []float64) TradeStats {
	var stats TradeStats
	if len(returns) == 0 {
		return stats
	}
	var profit, loss, sum float64
	minR, maxR := math.Inf(1), math.Inf(-1)
	for _, r := range returns {
		sum += r
		minR = math.Min(minR, r)
		maxR = math.Max(maxR, r)
		if r > 0 {
			stats.WinningTrades++
			profit += r
		} else {
			stats.LosingTrades++
			loss += math.Abs(r)
		}
	}
	stats.TotalTrades = len(returns)
	stats.WinRate = models.Round2(float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100)
	stats.MinReturn = models.Round2(minR)
	stats.MaxReturn = models.Round2(maxR)
	stats.AvgReturn = models.Round2(sum / float64(len(returns)))
	stats.TotalReturn = models.Round2(sum)
	switch {
	case loss > 0:
		stats.ProfitFactor = models.Round2(profit / loss)
	case profit > 0:
		stats.ProfitFactor = models.Round2(profit)
	}
	return stats
}

// PerformanceReport is signal performance across a symbol universe.
type PerformanceReport struct {
	Timeframe       string                      `json:"timeframe"`
	Overall         TradeStats                  `json:"overall"`
	ByLevel         map[models.Level]TradeStats `json:"by_level"`
	AnalyzedSymbols int                         `json:"analyzed_symbols"`
	Duration        time.Duration               `json:"duration"`
}

// PerformanceAnalyzer backtests each entry tier with the default exits and
// aggregates the resulting trades.
type PerformanceAnalyzer struct {
	provider datasource.PriceProvider
	scorer   Scorer
	backtest backtest.BacktestConfig
	levels   strategy.LevelTable
	workers  int
	log      *logrus.Entry
}

// NewPerformanceAnalyzer creates an analyzer over the canonical level table.
func NewPerformanceAnalyzer(provider datasource.PriceProvider, scorer Scorer, bt backtest.BacktestConfig, workers int, log *logrus.Logger) (*PerformanceAnalyzer, error) {
	if provider == nil {
		return nil, fmt.Errorf("price provider is required")
	}
	if err := bt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	if scorer == nil {
		scorer = signal.NewGenerator(signal.DefaultWeights())
	}
	if workers <= 0 {
		workers = DefaultScanConcurrency
	}
	if log == nil {
		log = logrus.New()
	}
	return &PerformanceAnalyzer{
		provider: provider,
		scorer:   scorer,
		backtest: bt,
		levels:   strategy.CanonicalLevels(),
		workers:  workers,
		log:      log.WithField("component", "performance"),
	}, nil
}

// AnalyzeSymbol returns the per-trade returns of each tier for one symbol.
func (p *PerformanceAnalyzer) AnalyzeSymbol(ctx context.Context, symbol string, tf models.Timeframe) (map[models.Level][]float64, error) {
	bars, err := p.provider.FetchBars(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrEmptySeries)
	}
	scored := p.scorer.Score(bars)

	returns := make(map[models.Level][]float64, p.levels.Len())
	for _, entry := range p.levels.Entries() {
		cfg, err := p.backtest.StrategyFor(entry)
		if err != nil {
			return nil, err
		}
		result := backtest.RunWithUnit(scored, cfg, p.backtest.StartingCapital, p.backtest.HoldUnit)
		r := make([]float64, 0, len(result.Trades))
		for _, t := range result.Trades {
			r = append(r, t.PnLRatio)
		}
		returns[entry.Level] = r
	}
	return returns, nil
}

// Analyze aggregates every symbol's trades overall and per tier. Symbols
// that fail to load are skipped.
func (p *PerformanceAnalyzer) Analyze(ctx context.Context, symbols []string, tf models.Timeframe) (*PerformanceReport, error) {
	start := time.Now()
	perSymbol := make([]map[models.Level][]float64, len(symbols))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

dispatch:
	for i, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			defer func() { <-sem }()
			r, err := p.AnalyzeSymbol(ctx, sym, tf)
			if err != nil {
				if !isCancellation(err) {
					metrics.RecordFetchError(p.provider.Name())
					p.log.WithError(err).WithField("symbol", sym).Debug("Symbol skipped")
				}
				return
			}
			perSymbol[i] = r
		}(i, sym)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &PerformanceReport{
		Timeframe: tf.Name,
		ByLevel:   make(map[models.Level]TradeStats, p.levels.Len()),
	}
	var overall []float64
	byLevel := make(map[models.Level][]float64, p.levels.Len())
	for _, r := range perSymbol {
		if r == nil {
			continue
		}
		report.AnalyzedSymbols++
		for _, entry := range p.levels.Entries() {
			byLevel[entry.Level] = append(byLevel[entry.Level], r[entry.Level]...)
			overall = append(overall, r[entry.Level]...)
		}
	}
	report.Overall = CalculateTradeStats(overall)
	if report.AnalyzedSymbols > 0 {
		for _, entry := range p.levels.Entries() {
			report.ByLevel[entry.Level] = CalculateTradeStats(byLevel[entry.Level])
		}
	}
	report.Duration = time.Since(start)

	p.log.WithFields(logrus.Fields{
		"symbols":  len(symbols),
		"analyzed": report.AnalyzedSymbols,
		"trades":   report.Overall.TotalTrades,
	}).Info("Performance analysis completed")
	metrics.RecordBacktestRun("performance", "success", report.Duration.Seconds())
	return report, nil
}
