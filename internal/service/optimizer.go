// Package service composes data sources, scoring and the backtest engine
// into the screener's operations.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-screener/internal/backtest"
	"github.com/yourusername/stock-screener/internal/config"
	"github.com/yourusername/stock-screener/internal/datasource"
	"github.com/yourusername/stock-screener/internal/logger"
	"github.com/yourusername/stock-screener/internal/metrics"
	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/signal"
	"github.com/yourusername/stock-screener/internal/strategy"
)

// RankBy selects the aggregate used to filter and order sweep results.
type RankBy string

const (
	// RankAnnual ranks by mean annualized total return.
	RankAnnual RankBy = "annual"
	// RankCompound ranks by mean annualized compound return.
	RankCompound RankBy = "compound"
)

// OptimizerOptions tunes a sweep.
type OptimizerOptions struct {
	SampleSize         int
	Workers            int
	TopN               int
	RankBy             RankBy
	Seed               int64
	RandomSample       bool
	PeriodFallbackDays int
}

// DefaultOptimizerOptions returns the reference sweep settings.
func DefaultOptimizerOptions() OptimizerOptions {
	return OptimizerOptions{
		SampleSize:         30,
		Workers:            runtime.NumCPU(),
		TopN:               20,
		RankBy:             RankAnnual,
		Seed:               42,
		PeriodFallbackDays: backtest.DefaultOptimizerPeriodDays,
	}
}

// OptimizerOptionsFromConfig overlays configured values on the defaults.
func OptimizerOptionsFromConfig(cfg config.OptimizerConfig) OptimizerOptions {
	opts := DefaultOptimizerOptions()
	if cfg.SampleSize > 0 {
		opts.SampleSize = cfg.SampleSize
	}
	if cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}
	if cfg.TopN > 0 {
		opts.TopN = cfg.TopN
	}
	if cfg.RankBy != "" {
		opts.RankBy = RankBy(cfg.RankBy)
	}
	if cfg.Seed != 0 {
		opts.Seed = cfg.Seed
	}
	opts.RandomSample = cfg.RandomSample
	if cfg.PeriodFallbackDays > 0 {
		opts.PeriodFallbackDays = cfg.PeriodFallbackDays
	}
	return opts
}

func (o OptimizerOptions) withDefaults() OptimizerOptions {
	d := DefaultOptimizerOptions()
	if o.SampleSize <= 0 {
		o.SampleSize = d.SampleSize
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.TopN <= 0 {
		o.TopN = d.TopN
	}
	if o.RankBy == "" {
		o.RankBy = d.RankBy
	}
	if o.PeriodFallbackDays <= 0 {
		o.PeriodFallbackDays = d.PeriodFallbackDays
	}
	return o
}

// SweepReport is the ranked outcome of an optimizer sweep.
type SweepReport struct {
	RunID          uuid.UUID             `json:"run_id"`
	Target         float64               `json:"target"`
	RankBy         RankBy                `json:"rank_by"`
	Timeframe      string                `json:"timeframe"`
	Results        []backtest.ComboStats `json:"results"`
	TotalTested    int                   `json:"total_tested"`
	QualifiedCount int                   `json:"qualified_count"`
	Combinations   int                   `json:"combinations"`
	Symbols        []string              `json:"symbols"`
	SymbolsLoaded  int                   `json:"symbols_loaded"`
	Partial        bool                  `json:"partial"`
	Duration       time.Duration         `json:"duration"`

	topN      int
	evaluated []backtest.ComboStats
}

// WithTarget re-filters the evaluated combinations against another target
// without re-running the sweep.
func (r *SweepReport) WithTarget(target float64) *SweepReport {
	out := *r
	out.Target = target
	out.Results, out.QualifiedCount = selectQualified(r.evaluated, target, r.RankBy, r.topN)
	return &out
}

// Best returns the top-ranked qualifying combination.
func (r *SweepReport) Best() (backtest.ComboStats, bool) {
	if len(r.Results) == 0 {
		return backtest.ComboStats{}, false
	}
	return r.Results[0], true
}

// Evaluated returns every fully evaluated combination in rank order.
func (r *SweepReport) Evaluated() []backtest.ComboStats {
	return append([]backtest.ComboStats(nil), r.evaluated...)
}

// ToRuns converts qualifying combinations into persisted records.
func (r *SweepReport) ToRuns(capital float64) []*models.BacktestRun {
	now := time.Now().UTC()
	runs := make([]*models.BacktestRun, 0, len(r.Results))
	for _, stats := range r.Results {
		params, _ := json.Marshal(stats.Config.Parameters())
		full, _ := json.Marshal(stats)
		annual := stats.AvgAnnualReturn
		if r.RankBy == RankCompound {
			annual = stats.AvgCompoundAnnual
		}
		runs = append(runs, &models.BacktestRun{
			RunID:          r.RunID,
			StrategyKey:    stats.Key,
			Symbol:         "*",
			Timeframe:      r.Timeframe,
			Method:         "optimize",
			RunDate:        now,
			InitialCapital: capital,
			AnnualReturn:   annual,
			TotalTrades:    stats.TotalTrades,
			WinRate:        stats.AvgWinRate,
			ProfitFactor:   stats.AvgProfitFactor,
			Parameters:     params,
			FullResults:    full,
		})
	}
	return runs
}

// Scorer attaches composite scores and levels to a bar series.
type Scorer interface {
	Score(bars []models.Bar) []models.Bar
}

// Optimizer runs parameter sweeps on a bounded worker pool.
type Optimizer struct {
	provider datasource.PriceProvider
	scorer   Scorer
	backtest backtest.BacktestConfig
	opts     OptimizerOptions
	log      *logger.BacktestLogger
}

// NewOptimizer creates an optimizer. A nil scorer uses the default weights.
func NewOptimizer(
	provider datasource.PriceProvider,
	scorer Scorer,
	bt backtest.BacktestConfig,
	opts OptimizerOptions,
	log *logrus.Logger,
) (*Optimizer, error) {
	if provider == nil {
		return nil, fmt.Errorf("price provider is required")
	}
	if err := bt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	opts = opts.withDefaults()
	if opts.RankBy != RankAnnual && opts.RankBy != RankCompound {
		return nil, fmt.Errorf("unknown rank_by %q", opts.RankBy)
	}
	if scorer == nil {
		scorer = signal.NewGenerator(signal.DefaultWeights())
	}
	if log == nil {
		log = logrus.New()
	}
	return &Optimizer{
		provider: provider,
		scorer:   scorer,
		backtest: bt,
		opts:     opts,
		log:      logger.NewBacktestLogger(log),
	}, nil
}

// Options returns the effective sweep settings.
func (o *Optimizer) Options() OptimizerOptions {
	return o.opts
}

type scoredSeries struct {
	symbol string
	bars   []models.Bar
}

// Optimize evaluates every configuration from gen over a sample of symbols
// and returns the combinations whose ranking measure meets target.
//
// On cancellation the report holds only combinations evaluated against
// every loaded symbol, is marked Partial, and the context error is returned
// alongside it.
func (o *Optimizer) Optimize(ctx context.Context, symbols []string, gen strategy.Generator, target float64, tf models.Timeframe) (*SweepReport, error) {
	if gen == nil {
		return nil, fmt.Errorf("strategy generator is required")
	}
	start := time.Now()
	configs := strategy.Collect(gen)
	sample := SampleSymbols(symbols, o.opts.SampleSize)
	if o.opts.RandomSample {
		sample = RandomSampleSymbols(symbols, o.opts.SampleSize, o.opts.Seed)
	}

	report := &SweepReport{
		RunID:        uuid.New(),
		Target:       target,
		RankBy:       o.opts.RankBy,
		Timeframe:    tf.Name,
		Combinations: len(configs),
		Symbols:      sample,
		Results:      []backtest.ComboStats{},
		topN:         o.opts.TopN,
	}
	o.log.LogSweepStarted(len(sample), len(configs), o.opts.Workers, string(o.opts.RankBy))

	series, loaded := o.loadSeries(ctx, sample, tf)
	report.SymbolsLoaded = len(series)
	if loaded {
		report.evaluated = o.evaluate(ctx, configs, series)
	}
	sortByRank(report.evaluated, o.opts.RankBy)

	report.TotalTested = len(report.evaluated)
	report.Results, report.QualifiedCount = selectQualified(report.evaluated, target, o.opts.RankBy, o.opts.TopN)
	report.Partial = report.TotalTested < len(configs)
	report.Duration = time.Since(start)

	best := 0.0
	if b, ok := report.Best(); ok {
		best = b.RankValue(o.opts.RankBy == RankCompound)
	}
	metrics.RecordSweep(report.TotalTested, len(configs)-report.TotalTested, report.QualifiedCount, string(o.opts.RankBy), best)
	o.log.LogSweepCompleted(report.TotalTested, report.QualifiedCount, target, report.Partial, report.Duration)

	if err := ctx.Err(); err != nil && report.Partial {
		metrics.RecordBacktestRun("optimize", "cancelled", report.Duration.Seconds())
		return report, err
	}
	metrics.RecordBacktestRun("optimize", "success", report.Duration.Seconds())
	return report, nil
}

// Recommend sweeps once at the primary target and, when nothing qualifies,
// re-filters the same evaluation at the fallback target.
func (o *Optimizer) Recommend(ctx context.Context, symbols []string, gen strategy.Generator, primary, fallback float64, tf models.Timeframe) (*SweepReport, error) {
	report, err := o.Optimize(ctx, symbols, gen, primary, tf)
	if err != nil || report.QualifiedCount > 0 || fallback >= primary {
		return report, err
	}
	o.log.WithFields(logrus.Fields{
		"primary_target":  primary,
		"fallback_target": fallback,
	}).Info("No combination met the primary target, applying fallback")
	return report.WithTarget(fallback), nil
}

// loadSeries fetches and scores each symbol once on the worker pool. The
// boolean is false when cancellation left any symbol unfinished.
func (o *Optimizer) loadSeries(ctx context.Context, symbols []string, tf models.Timeframe) ([]scoredSeries, bool) {
	slots := make([]*scoredSeries, len(symbols))
	jobs := make(chan int)

	var wg sync.WaitGroup
	wg.Add(o.opts.Workers)
	for w := 0; w < o.opts.Workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				slots[i] = o.loadOne(ctx, symbols[i], tf)
			}
		}()
	}

feed:
	for i := range symbols {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		return nil, false
	}
	series := make([]scoredSeries, 0, len(symbols))
	for _, s := range slots {
		if s != nil {
			series = append(series, *s)
		}
	}
	return series, true
}

func (o *Optimizer) loadOne(ctx context.Context, symbol string, tf models.Timeframe) *scoredSeries {
	bars, err := o.provider.FetchBars(ctx, symbol, tf)
	if err != nil {
		if isCancellation(err) {
			return nil
		}
		metrics.RecordFetchError(o.provider.Name())
		o.log.LogSymbolSkipped(symbol, "fetch_failed", err)
		return nil
	}
	if len(bars) == 0 {
		o.log.LogSymbolSkipped(symbol, "no_data", nil)
		return nil
	}
	if err := datasource.ValidateBars(bars); err != nil {
		o.log.LogSymbolSkipped(symbol, "invalid_data", err)
		return nil
	}
	return &scoredSeries{symbol: symbol, bars: o.scorer.Score(bars)}
}

// evaluate runs every configuration over every series. Workers send only
// fully evaluated combinations to the single reducer.
func (o *Optimizer) evaluate(ctx context.Context, configs []strategy.Config, series []scoredSeries) []backtest.ComboStats {
	jobs := make(chan int)
	results := make(chan backtest.ComboStats, o.opts.Workers)

	var wg sync.WaitGroup
	wg.Add(o.opts.Workers)
	for w := 0; w < o.opts.Workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				if stats, ok := o.evaluateOne(ctx, configs[i], series); ok {
					results <- stats
				}
			}
		}()
	}

	go func() {
	feed:
		for i := range configs {
			select {
			case <-ctx.Done():
				break feed
			case jobs <- i:
			}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	evaluated := make([]backtest.ComboStats, 0, len(configs))
	for stats := range results {
		evaluated = append(evaluated, stats)
	}
	return evaluated
}

func (o *Optimizer) evaluateOne(ctx context.Context, cfg strategy.Config, series []scoredSeries) (backtest.ComboStats, bool) {
	outcomes := make([]backtest.SymbolOutcome, 0, len(series))
	for _, s := range series {
		if ctx.Err() != nil {
			return backtest.ComboStats{}, false
		}
		result := backtest.RunWithUnit(s.bars, cfg, o.backtest.StartingCapital, o.backtest.HoldUnit)
		if out, ok := backtest.OutcomeWithFallback(s.symbol, s.bars, result, o.opts.PeriodFallbackDays); ok {
			outcomes = append(outcomes, out)
		}
	}
	return backtest.Aggregate(cfg, outcomes), true
}

// sortByRank orders stats by the ranking measure, descending, with the key
// as a tie-breaker so output is deterministic across worker schedules.
func sortByRank(stats []backtest.ComboStats, rankBy RankBy) {
	compound := rankBy == RankCompound
	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i].RankValue(compound), stats[j].RankValue(compound)
		if a != b {
			return a > b
		}
		return stats[i].Key < stats[j].Key
	})
}

// selectQualified keeps ranked stats with at least one contributing symbol
// whose measure meets target, returning the rounded top n and the count.
func selectQualified(ranked []backtest.ComboStats, target float64, rankBy RankBy, n int) ([]backtest.ComboStats, int) {
	compound := rankBy == RankCompound
	top := []backtest.ComboStats{}
	qualified := 0
	for _, s := range ranked {
		if s.SampleSize == 0 || s.RankValue(compound) < target {
			continue
		}
		qualified++
		if n <= 0 || len(top) < n {
			top = append(top, s.Rounded())
		}
	}
	return top, qualified
}

// SampleSymbols returns the first n valid symbols in universe order.
// n <= 0 keeps every symbol.
func SampleSymbols(symbols []string, n int) []string {
	valid := datasource.FilterSymbols(symbols)
	if n <= 0 || len(valid) <= n {
		return valid
	}
	return valid[:n]
}

// RandomSampleSymbols returns up to n valid symbols chosen deterministically
// by seed, preserving universe order.
func RandomSampleSymbols(symbols []string, n int, seed int64) []string {
	valid := datasource.FilterSymbols(symbols)
	if n <= 0 || len(valid) <= n {
		return valid
	}
	picks := rand.New(rand.NewSource(seed)).Perm(len(valid))[:n]
	sort.Ints(picks)
	out := make([]string, n)
	for i, p := range picks {
		out[i] = valid[p]
	}
	return out
}
