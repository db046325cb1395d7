package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-screener/internal/config"
	"github.com/yourusername/stock-screener/internal/datasource"
	"github.com/yourusername/stock-screener/internal/logger"
	"github.com/yourusername/stock-screener/internal/metrics"
	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/signal"
)

// DefaultScanMinScore is the score a symbol must reach to be reported.
const DefaultScanMinScore = 7.5

// DefaultScanConcurrency bounds concurrent symbol fetches.
const DefaultScanConcurrency = 20

// Classifier produces the latest-bar signal for a series.
type Classifier interface {
	Current(symbol string, bars []models.Bar) (*models.Signal, error)
}

// ScanOptions tunes a scan.
type ScanOptions struct {
	MinScore    float64
	Concurrency int
}

// ScanOptionsFromConfig reads scan settings, applying defaults for unset values.
func ScanOptionsFromConfig(cfg config.ScanConfig) ScanOptions {
	return ScanOptions{MinScore: cfg.MinScore, Concurrency: cfg.Concurrency}.withDefaults()
}

func (o ScanOptions) withDefaults() ScanOptions {
	if o.MinScore <= 0 {
		o.MinScore = DefaultScanMinScore
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultScanConcurrency
	}
	return o
}

// ScanResult is the outcome of one scan over a symbol list.
type ScanResult struct {
	ID        uuid.UUID             `json:"id"`
	Timeframe string                `json:"timeframe"`
	StartedAt time.Time             `json:"started_at"`
	Duration  time.Duration         `json:"duration"`
	Scanned   int                   `json:"scanned"`
	Failed    []string              `json:"failed"`
	MinScore  float64               `json:"min_score"`
	Signals   []models.Signal       `json:"signals"`
	Bars      map[string]models.Bar `json:"-"`
}

// CountByLevel tallies reported signals per level. Every level is present.
func (r *ScanResult) CountByLevel() map[string]int {
	counts := make(map[string]int, len(models.Levels()))
	for _, l := range models.Levels() {
		counts[l.String()] = 0
	}
	for _, s := range r.Signals {
		counts[s.Level.String()]++
	}
	return counts
}

// Snapshot converts the result into its persisted header row.
func (r *ScanResult) Snapshot() *models.ScanSnapshot {
	return &models.ScanSnapshot{
		ID:          r.ID,
		ScanDate:    r.StartedAt,
		SignalCount: len(r.Signals),
		CreatedAt:   time.Now().UTC(),
	}
}

// Records converts reported signals into persisted history rows.
func (r *ScanResult) Records() []models.SignalRecord {
	records := make([]models.SignalRecord, 0, len(r.Signals))
	for _, s := range r.Signals {
		date := s.Timestamp
		if date.IsZero() {
			date = r.StartedAt
		}
		records = append(records, models.SignalRecord{
			ScanID:     r.ID,
			Symbol:     s.Symbol,
			Level:      s.Level,
			Score:      s.Score,
			Price:      s.Price,
			SignalDate: date,
		})
	}
	return records
}

// DailyPrices returns one priced row per reported signal, dated on the
// scan day so repeated scans on the same day overwrite each other.
func (r *ScanResult) DailyPrices() []models.DailyPrice {
	day := time.Date(r.StartedAt.Year(), r.StartedAt.Month(), r.StartedAt.Day(), 0, 0, 0, 0, time.UTC)
	prices := make([]models.DailyPrice, 0, len(r.Signals))
	for _, s := range r.Signals {
		p := models.DailyPrice{
			Symbol:    s.Symbol,
			PriceDate: day,
			Close:     s.Price,
			Score:     s.Score,
			Level:     s.Level,
		}
		if bar, ok := r.Bars[s.Symbol]; ok {
			p.Open, p.High, p.Low, p.Volume = bar.Open, bar.High, bar.Low, bar.Volume
		}
		prices = append(prices, p)
	}
	return prices
}

// Scanner classifies the latest bar of many symbols concurrently.
type Scanner struct {
	provider   datasource.PriceProvider
	classifier Classifier
	opts       ScanOptions
	log        *logger.ScanLogger
}

// NewScanner creates a scanner. A nil classifier uses the default weights.
func NewScanner(provider datasource.PriceProvider, classifier Classifier, opts ScanOptions, log *logrus.Logger) (*Scanner, error) {
	if provider == nil {
		return nil, fmt.Errorf("price provider is required")
	}
	if classifier == nil {
		classifier = signal.NewGenerator(signal.DefaultWeights())
	}
	if log == nil {
		log = logrus.New()
	}
	return &Scanner{
		provider:   provider,
		classifier: classifier,
		opts:       opts.withDefaults(),
		log:        logger.NewScanLogger(log),
	}, nil
}

// Options returns the effective scan settings.
func (s *Scanner) Options() ScanOptions {
	return s.opts
}

type scanItem struct {
	symbol string
	signal *models.Signal
	bar    models.Bar
	err    error
}

// Scan classifies every symbol and reports those scoring at least the
// minimum, strongest level first, then by score. Symbols that fail to load
// are listed in Failed. A cancelled scan returns what finished together
// with the context error.
func (s *Scanner) Scan(ctx context.Context, symbols []string, tf models.Timeframe) (*ScanResult, error) {
	start := time.Now()
	s.log.LogScanStarted(tf.Name, len(symbols))

	items := make([]scanItem, len(symbols))
	done := make([]bool, len(symbols))
	sem := make(chan struct{}, s.opts.Concurrency)
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
			items[i] = s.analyze(ctx, sym, tf)
			done[i] = true
		}(i, sym)
	}
	wg.Wait()

	result := &ScanResult{
		ID:        uuid.New(),
		Timeframe: tf.Name,
		StartedAt: start.UTC(),
		MinScore:  s.opts.MinScore,
		Failed:    []string{},
		Bars:      make(map[string]models.Bar),
	}
	all := make([]models.Signal, 0, len(symbols))
	for i, item := range items {
		if !done[i] {
			continue
		}
		result.Scanned++
		if item.err != nil {
			if !isCancellation(item.err) {
				result.Failed = append(result.Failed, item.symbol)
			}
			continue
		}
		all = append(all, *item.signal)
		result.Bars[item.symbol] = item.bar
	}
	result.Signals = FilterSignals(all, s.opts.MinScore)
	result.Duration = time.Since(start)

	metrics.UpdateSignalsByLevel(result.CountByLevel())
	s.log.LogScanCompleted(tf.Name, result.Scanned, len(result.Signals), len(result.Failed), result.Duration)

	if err := ctx.Err(); err != nil {
		metrics.RecordScan("cancelled", result.Duration.Seconds())
		return result, err
	}
	metrics.RecordScan("success", result.Duration.Seconds())
	return result, nil
}

// Analyze fetches one symbol and classifies its latest bar.
func (s *Scanner) Analyze(ctx context.Context, symbol string, tf models.Timeframe) (*models.Signal, error) {
	item := s.analyze(ctx, symbol, tf)
	return item.signal, item.err
}

func (s *Scanner) analyze(ctx context.Context, symbol string, tf models.Timeframe) scanItem {
	item := scanItem{symbol: symbol}
	bars, err := s.provider.FetchBars(ctx, symbol, tf)
	if err != nil {
		if !isCancellation(err) {
			metrics.RecordFetchError(s.provider.Name())
			s.log.WithError(err).WithField("symbol", symbol).Warn("Fetch failed")
		}
		item.err = err
		return item
	}
	if len(bars) == 0 {
		item.err = fmt.Errorf("%s: %w", symbol, models.ErrEmptySeries)
		return item
	}
	sig, err := s.classifier.Current(symbol, bars)
	if err != nil {
		item.err = fmt.Errorf("classify %s: %w", symbol, err)
		return item
	}
	sig.Price = models.Round2(sig.Price)
	sig.Timeframe = tf.Name
	item.signal = sig
	item.bar = bars[len(bars)-1]
	return item
}

// FilterSignals keeps signals scoring at least minScore, ordered by level
// rank, then score descending, then symbol.
func FilterSignals(signals []models.Signal, minScore float64) []models.Signal {
	out := make([]models.Signal, 0, len(signals))
	for _, s := range signals {
		if s.Score >= minScore {
			out = append(out, s)
		}
	}
	SortSignals(out)
	return out
}

// SortSignals orders signals strongest first.
func SortSignals(signals []models.Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if a.Level.Rank() != b.Level.Rank() {
			return a.Level.Rank() < b.Level.Rank()
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Symbol < b.Symbol
	})
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
