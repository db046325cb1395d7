package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-screener/internal/backtest"
	"github.com/yourusername/stock-screener/internal/datasource"
	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/signal"
	"github.com/yourusername/stock-screener/internal/strategy"
)

const (
	returnWeight = 0.7
	scoreWeight  = 0.3
)

// TimeframeOutcome is the analysis of one symbol on one timeframe.
type TimeframeOutcome struct {
	Timeframe      string                `json:"timeframe"`
	Label          string                `json:"label"`
	CurrentScore   float64               `json:"current_score"`
	CurrentLevel   models.Level          `json:"current_level"`
	Price          float64               `json:"price"`
	Results        []backtest.Comparison `json:"results"`
	Best           *backtest.Comparison  `json:"best,omitempty"`
	CompositeScore float64               `json:"composite_score"`
}

// HasResult reports whether any tier traded on this timeframe.
func (t TimeframeOutcome) HasResult() bool {
	return t.Best != nil
}

// TimeframeRecommendation picks the timeframe best suited to a symbol.
type TimeframeRecommendation struct {
	Symbol         string             `json:"symbol"`
	Timeframe      string             `json:"timeframe,omitempty"`
	Label          string             `json:"label,omitempty"`
	ExpectedReturn float64            `json:"expected_return"`
	CurrentScore   float64            `json:"current_score"`
	CurrentLevel   models.Level       `json:"current_level,omitempty"`
	Comparison     []TimeframeOutcome `json:"comparison"`
	Analyzed       []TimeframeOutcome `json:"analyzed"`
}

// Found reports whether a timeframe was recommended.
func (r *TimeframeRecommendation) Found() bool {
	return r.Timeframe != ""
}

// StrategyChoice is the best row of a per-symbol strategy comparison.
type StrategyChoice struct {
	Symbol string                `json:"symbol"`
	Best   backtest.Comparison   `json:"best"`
	All    []backtest.Comparison `json:"all"`
}

// CompositeScore blends a best return in percent with the current score
// on a 0-10 scale, normalizing each to [0, 1] first.
func CompositeScore(bestReturn, currentScore float64) float64 {
	return (bestReturn+100)/200*returnWeight + currentScore/10*scoreWeight
}

// Advisor answers per-symbol questions: which timeframe to trade and which
// hold horizon worked best.
type Advisor struct {
	provider datasource.PriceProvider
	scorer   Scorer
	backtest backtest.BacktestConfig
	levels   strategy.LevelTable
	log      *logrus.Entry
}

// NewAdvisor creates an advisor over the canonical level table.
func NewAdvisor(provider datasource.PriceProvider, scorer Scorer, bt backtest.BacktestConfig, log *logrus.Logger) (*Advisor, error) {
	if provider == nil {
		return nil, fmt.Errorf("price provider is required")
	}
	if err := bt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	if scorer == nil {
		scorer = signal.NewGenerator(signal.DefaultWeights())
	}
	if log == nil {
		log = logrus.New()
	}
	return &Advisor{
		provider: provider,
		scorer:   scorer,
		backtest: bt,
		levels:   strategy.CanonicalLevels(),
		log:      log.WithField("component", "advisor"),
	}, nil
}

func (a *Advisor) scored(ctx context.Context, symbol string, tf models.Timeframe) ([]models.Bar, error) {
	bars, err := a.provider.FetchBars(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrEmptySeries)
	}
	return a.scorer.Score(bars), nil
}

// AnalyzeTimeframe scores the latest bar and backtests every tier with the
// default exits.
func (a *Advisor) AnalyzeTimeframe(ctx context.Context, symbol string, tf models.Timeframe) (TimeframeOutcome, error) {
	bars, err := a.scored(ctx, symbol, tf)
	if err != nil {
		return TimeframeOutcome{}, err
	}
	last := bars[len(bars)-1]
	out := TimeframeOutcome{
		Timeframe:    tf.Name,
		Label:        tf.Label,
		CurrentScore: last.ScoreValue(),
		CurrentLevel: last.Level,
		Price:        models.Round2(last.Close),
	}
	rows, err := backtest.Compare(bars, []int{a.backtest.MaxHold}, a.backtest.StopLoss, a.backtest.TakeProfit, a.levels, a.backtest)
	if err != nil {
		return TimeframeOutcome{}, err
	}
	out.Results = rows
	if best, ok := backtest.BestComparison(rows); ok {
		out.Best = &best
		out.CompositeScore = CompositeScore(best.TotalReturn, out.CurrentScore)
	}
	return out, nil
}

// RecommendTimeframe analyzes symbol on each timeframe and recommends the
// one with the highest composite score. Timeframes that fail to load or
// never trade are left out of the comparison. A recommendation with no
// timeframe is returned when nothing traded.
func (a *Advisor) RecommendTimeframe(ctx context.Context, symbol string, timeframes []models.Timeframe) (*TimeframeRecommendation, error) {
	rec := &TimeframeRecommendation{
		Symbol:     symbol,
		Comparison: []TimeframeOutcome{},
		Analyzed:   []TimeframeOutcome{},
	}
	for _, tf := range timeframes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := a.AnalyzeTimeframe(ctx, symbol, tf)
		if err != nil {
			a.log.WithError(err).WithFields(logrus.Fields{
				"symbol":    symbol,
				"timeframe": tf.Name,
			}).Warn("Timeframe analysis failed")
			continue
		}
		rec.Analyzed = append(rec.Analyzed, out)
		if out.HasResult() {
			rec.Comparison = append(rec.Comparison, out)
		}
	}
	if len(rec.Analyzed) == 0 {
		return nil, fmt.Errorf("no data for %s on any timeframe", symbol)
	}
	if len(rec.Comparison) == 0 {
		return rec, nil
	}

	sort.SliceStable(rec.Comparison, func(i, j int) bool {
		return rec.Comparison[i].Best.TotalReturn > rec.Comparison[j].Best.TotalReturn
	})
	best := rec.Comparison[0]
	for _, c := range rec.Comparison[1:] {
		if c.CompositeScore > best.CompositeScore {
			best = c
		}
	}
	rec.Timeframe = best.Timeframe
	rec.Label = best.Label
	rec.ExpectedReturn = best.Best.TotalReturn
	rec.CurrentScore = best.CurrentScore
	rec.CurrentLevel = best.CurrentLevel

	a.log.WithFields(logrus.Fields{
		"symbol":          symbol,
		"timeframe":       rec.Timeframe,
		"expected_return": rec.ExpectedReturn,
		"composite":       best.CompositeScore,
	}).Info("Timeframe recommended")
	return rec, nil
}

// BestStrategy compares every tier across holds with the default exits and
// returns the row with the highest total return.
func (a *Advisor) BestStrategy(ctx context.Context, symbol string, tf models.Timeframe, holds []int) (*StrategyChoice, error) {
	if len(holds) == 0 {
		holds = a.backtest.CompareHolds
	}
	if len(holds) == 0 {
		holds = backtest.DefaultCompareHolds()
	}
	bars, err := a.scored(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	rows, err := backtest.Compare(bars, holds, a.backtest.StopLoss, a.backtest.TakeProfit, a.levels, a.backtest)
	if err != nil {
		return nil, err
	}
	best, ok := backtest.BestComparison(rows)
	if !ok {
		return nil, fmt.Errorf("no strategy traded for %s", symbol)
	}
	return &StrategyChoice{Symbol: symbol, Best: best, All: rows}, nil
}
