package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/stock-screener/internal/config"
	"github.com/yourusername/stock-screener/internal/models"
)

// fixedClassifier scores each symbol from a table, ignoring the bars.
type fixedClassifier map[string]float64

func (f fixedClassifier) Current(symbol string, bars []models.Bar) (*models.Signal, error) {
	score, ok := f[symbol]
	if !ok {
		return nil, errors.New("unscored symbol")
	}
	sig := models.SignalFromBar(symbol, bars[len(bars)-1].WithSignal(score, models.LevelForScore(score)))
	return &sig, nil
}

func TestScanFiltersAndSorts(t *testing.T) {
	provider := new(MockPriceProvider)
	tf := shortSwing()
	for _, sym := range []string{"AAA", "BBB", "CCC", "DDD", "EEE"} {
		provider.On("FetchBars", mock.Anything, sym, tf).Return(jumpSeries(10), nil)
	}
	provider.On("FetchBars", mock.Anything, "BAD", tf).Return([]models.Bar(nil), errors.New("404"))

	classifier := fixedClassifier{"AAA": 7.6, "BBB": 9.1, "CCC": 5.0, "DDD": 8.4, "EEE": 7.5}
	scanner, err := NewScanner(provider, classifier, ScanOptions{MinScore: 7.5, Concurrency: 2}, quietLogger())
	require.NoError(t, err)

	result, err := scanner.Scan(context.Background(), []string{"AAA", "BBB", "CCC", "DDD", "EEE", "BAD"}, tf)
	require.NoError(t, err)

	var order []string
	for _, s := range result.Signals {
		order = append(order, s.Symbol)
	}
	assert.Equal(t, []string{"BBB", "DDD", "AAA", "EEE"}, order)
	assert.Equal(t, 6, result.Scanned)
	assert.Equal(t, []string{"BAD"}, result.Failed)
	assert.Equal(t, models.LevelStrongBuy, result.Signals[0].Level)
	assert.Equal(t, 130.0, result.Signals[0].Price)
	assert.Equal(t, tf.Name, result.Signals[0].Timeframe)

	counts := result.CountByLevel()
	assert.Equal(t, 2, counts["STRONG_BUY"])
	assert.Equal(t, 2, counts["BUY"])
	assert.Equal(t, 0, counts["WATCH"])
	provider.AssertExpectations(t)
}

func TestScanCancelledBeforeDispatch(t *testing.T) {
	provider := new(MockPriceProvider)
	scanner, err := NewScanner(provider, fixedClassifier{}, ScanOptions{}, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := scanner.Scan(ctx, []string{"AAA", "BBB"}, shortSwing())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Zero(t, result.Scanned)
	assert.Empty(t, result.Signals)
	provider.AssertNotCalled(t, "FetchBars", mock.Anything, mock.Anything, mock.Anything)
}

func TestScanResultRecords(t *testing.T) {
	provider := new(MockPriceProvider)
	tf := shortSwing()
	provider.On("FetchBars", mock.Anything, "AAA", tf).Return(jumpSeries(5), nil)
	scanner, err := NewScanner(provider, fixedClassifier{"AAA": 8.0}, ScanOptions{}, quietLogger())
	require.NoError(t, err)

	result, err := scanner.Scan(context.Background(), []string{"AAA"}, tf)
	require.NoError(t, err)

	snap := result.Snapshot()
	assert.Equal(t, result.ID, snap.ID)
	assert.Equal(t, 1, snap.SignalCount)

	records := result.Records()
	require.Len(t, records, 1)
	assert.Equal(t, result.ID, records[0].ScanID)
	assert.Equal(t, seriesStart.AddDate(0, 0, 4), records[0].SignalDate)

	prices := result.DailyPrices()
	require.Len(t, prices, 1)
	assert.Equal(t, 130.0, prices[0].Close)
	assert.Equal(t, 1000.0, prices[0].Volume)
	assert.Zero(t, prices[0].PriceDate.Hour())
}

func TestScanOptionsDefaults(t *testing.T) {
	opts := ScanOptionsFromConfig(config.ScanConfig{})
	assert.Equal(t, DefaultScanMinScore, opts.MinScore)
	assert.Equal(t, DefaultScanConcurrency, opts.Concurrency)

	opts = ScanOptionsFromConfig(config.ScanConfig{MinScore: 6, Concurrency: 3})
	assert.Equal(t, 6.0, opts.MinScore)
	assert.Equal(t, 3, opts.Concurrency)
}

func TestFilterSignalsTieBreak(t *testing.T) {
	in := []models.Signal{
		{Symbol: "ZZZ", Level: models.LevelBuy, Score: 7.9},
		{Symbol: "AAA", Level: models.LevelBuy, Score: 7.9},
		{Symbol: "LOW", Level: models.LevelBuy, Score: 7.4},
	}
	out := FilterSignals(in, 7.5)
	require.Len(t, out, 2)
	assert.Equal(t, "AAA", out[0].Symbol)
	assert.Equal(t, "ZZZ", out[1].Symbol)
}

func TestNewScannerRequiresProvider(t *testing.T) {
	_, err := NewScanner(nil, nil, ScanOptions{}, nil)
	assert.Error(t, err)
}
