package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/yourusername/stock-screener/internal/logger"
	"github.com/yourusername/stock-screener/internal/models"
)

// MockPriceProvider mocks datasource.PriceProvider
type MockPriceProvider struct {
	mock.Mock
}

func (m *MockPriceProvider) FetchBars(ctx context.Context, symbol string, tf models.Timeframe) ([]models.Bar, error) {
	args := m.Called(ctx, symbol, tf)
	return args.Get(0).([]models.Bar), args.Error(1)
}

func (m *MockPriceProvider) Name() string {
	return "mock"
}

// entryScorer marks the first bar as a BUY at score 9 and every other bar
// as HOLD, so each run opens exactly one position at bar 0.
type entryScorer struct{}

func (entryScorer) Score(bars []models.Bar) []models.Bar {
	out := make([]models.Bar, len(bars))
	for i, b := range bars {
		if i == 0 {
			out[i] = b.WithSignal(9.0, models.LevelBuy)
			continue
		}
		out[i] = b.WithSignal(1.0, models.LevelHold)
	}
	return out
}

var seriesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// jumpSeries is n daily bars at 100 that jump to 130 from bar 3 on.
func jumpSeries(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		price := 100.0
		if i >= 3 {
			price = 130
		}
		bars[i] = models.Bar{
			Timestamp: seriesStart.AddDate(0, 0, i),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    1000,
		}
	}
	return bars
}

func quietLogger() *logrus.Logger {
	return logger.NewDiscardLogger()
}

func shortSwing() models.Timeframe {
	tf, _ := models.LookupTimeframe(models.TimeframeShortSwing)
	return tf
}

// flatSeries is n daily bars that never move from 100.
func flatSeries(n int) []models.Bar {
	bars := jumpSeries(n)
	for i := range bars {
		bars[i].Open, bars[i].High, bars[i].Low, bars[i].Close = 100, 100, 100, 100
	}
	return bars
}

func timeframe(name string) models.Timeframe {
	tf, _ := models.LookupTimeframe(name)
	return tf
}
