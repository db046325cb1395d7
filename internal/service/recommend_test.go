package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/stock-screener/internal/backtest"
	"github.com/yourusername/stock-screener/internal/models"
)

func TestCompositeScore(t *testing.T) {
	assert.InDelta(t, 0.485, CompositeScore(30, 1), 1e-9)
	assert.InDelta(t, 0.3, CompositeScore(-100, 10), 1e-9)
	assert.InDelta(t, 0.35, CompositeScore(0, 0), 1e-9)
}

func TestRecommendTimeframe(t *testing.T) {
	provider := new(MockPriceProvider)
	provider.On("FetchBars", mock.Anything, "AAA", timeframe(models.TimeframeDayTrading)).Return(flatSeries(30), nil)
	provider.On("FetchBars", mock.Anything, "AAA", timeframe(models.TimeframeShortSwing)).Return(jumpSeries(30), nil)
	provider.On("FetchBars", mock.Anything, "AAA", timeframe(models.TimeframeLongSwing)).Return([]models.Bar(nil), errors.New("timeout"))

	advisor, err := NewAdvisor(provider, entryScorer{}, backtest.DefaultBacktestConfig(), quietLogger())
	require.NoError(t, err)

	rec, err := advisor.RecommendTimeframe(context.Background(), "AAA", models.AllTimeframes())
	require.NoError(t, err)
	require.True(t, rec.Found())

	assert.Equal(t, models.TimeframeShortSwing, rec.Timeframe)
	assert.Equal(t, 30.0, rec.ExpectedReturn)
	assert.Equal(t, 1.0, rec.CurrentScore)
	assert.Equal(t, models.LevelHold, rec.CurrentLevel)
	assert.Len(t, rec.Analyzed, 2)

	require.Len(t, rec.Comparison, 2)
	assert.Equal(t, models.TimeframeShortSwing, rec.Comparison[0].Timeframe)
	assert.InDelta(t, 0.485, rec.Comparison[0].CompositeScore, 1e-9)
	assert.Equal(t, models.TimeframeDayTrading, rec.Comparison[1].Timeframe)
	assert.InDelta(t, 0.38, rec.Comparison[1].CompositeScore, 1e-9)
}

func TestRecommendTimeframeNoTrades(t *testing.T) {
	provider := new(MockPriceProvider)
	tf := shortSwing()
	provider.On("FetchBars", mock.Anything, "AAA", tf).Return(flatSeries(30), nil)

	// HOLD on every bar never opens a position.
	advisor, err := NewAdvisor(provider, holdScorer{}, backtest.DefaultBacktestConfig(), quietLogger())
	require.NoError(t, err)

	rec, err := advisor.RecommendTimeframe(context.Background(), "AAA", []models.Timeframe{tf})
	require.NoError(t, err)
	assert.False(t, rec.Found())
	assert.Empty(t, rec.Comparison)
	assert.Len(t, rec.Analyzed, 1)
}

func TestRecommendTimeframeNoData(t *testing.T) {
	provider := new(MockPriceProvider)
	tf := shortSwing()
	provider.On("FetchBars", mock.Anything, "AAA", tf).Return([]models.Bar{}, nil)

	advisor, err := NewAdvisor(provider, entryScorer{}, backtest.DefaultBacktestConfig(), quietLogger())
	require.NoError(t, err)

	_, err = advisor.RecommendTimeframe(context.Background(), "AAA", []models.Timeframe{tf})
	assert.Error(t, err)
}

func TestBestStrategy(t *testing.T) {
	provider := new(MockPriceProvider)
	tf := shortSwing()
	provider.On("FetchBars", mock.Anything, "AAA", tf).Return(jumpSeries(40), nil)

	advisor, err := NewAdvisor(provider, entryScorer{}, backtest.DefaultBacktestConfig(), quietLogger())
	require.NoError(t, err)

	choice, err := advisor.BestStrategy(context.Background(), "AAA", tf, nil)
	require.NoError(t, err)

	assert.Len(t, choice.All, 5)
	assert.Equal(t, models.LevelBuy, choice.Best.EntryLevel)
	assert.Equal(t, 3, choice.Best.HoldDays)
	assert.Equal(t, 30.0, choice.Best.TotalReturn)
}

type holdScorer struct{}

func (holdScorer) Score(bars []models.Bar) []models.Bar {
	out := make([]models.Bar, len(bars))
	for i, b := range bars {
		out[i] = b.WithSignal(1.0, models.LevelHold)
	}
	return out
}
