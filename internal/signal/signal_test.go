package signal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/stock-screener/internal/models"
)

func TestScoreRSI(t *testing.T) {
	assert.Equal(t, 0.5, ScoreRSI(math.NaN()))
	assert.Equal(t, 1.0, ScoreRSI(25))
	assert.InDelta(t, 1.0, ScoreRSI(30), 1e-9)
	assert.InDelta(t, 0.75, ScoreRSI(35), 1e-9)
	assert.InDelta(t, 0.5, ScoreRSI(50), 1e-9)
	assert.InDelta(t, 0.25, ScoreRSI(60), 1e-9)
	assert.Equal(t, 0.0, ScoreRSI(70))
}

func TestScoreMACDAndMovingAverage(t *testing.T) {
	assert.Equal(t, 0.5, ScoreMACD(math.NaN(), 1, 1))
	assert.InDelta(t, 1.0, ScoreMACD(2, 1, 1), 1e-9)
	assert.InDelta(t, 0.5, ScoreMACD(1, 2, -1), 1e-9)

	assert.InDelta(t, 1.0, ScoreMovingAverage(12, 11, 10), 1e-9)
	assert.InDelta(t, 0.8, ScoreMovingAverage(10, 11, 10), 1e-9)
	assert.Equal(t, 0.5, ScoreMovingAverage(10, math.NaN(), 10))
}

func TestScoreBollinger(t *testing.T) {
	assert.Equal(t, 0.5, ScoreBollinger(10, 10, 10))
	assert.Equal(t, 1.0, ScoreBollinger(91, 90, 110))
	assert.Equal(t, 0.8, ScoreBollinger(95, 90, 110))
	assert.Equal(t, 0.5, ScoreBollinger(100, 90, 110))
	assert.Equal(t, 0.3, ScoreBollinger(109, 90, 110))
}

func TestScoreVolume(t *testing.T) {
	assert.Equal(t, 0.5, ScoreVolume(100, 0))
	assert.Equal(t, 1.0, ScoreVolume(200, 100))
	assert.Equal(t, 0.8, ScoreVolume(130, 100))
	assert.Equal(t, 0.6, ScoreVolume(110, 100))
	assert.Equal(t, 0.4, ScoreVolume(100, 100))
}

func TestScoreMomentum(t *testing.T) {
	assert.Equal(t, 1.0, ScoreMomentum(2))
	assert.Equal(t, 0.7, ScoreMomentum(0))
	assert.Equal(t, 0.7, ScoreMomentum(-1))
	assert.Equal(t, 0.4, ScoreMomentum(8))
	assert.Equal(t, 0.2, ScoreMomentum(5), "exactly five percent is not rewarded")
	assert.Equal(t, 0.2, ScoreMomentum(-3))
}

func TestCompositeAllNeutral(t *testing.T) {
	c := Components{RSI: 0.5, MACD: 0.5, MovingAverage: 0.5, Bollinger: 0.5, Volume: 0.5, Momentum: 0.5}
	assert.Equal(t, 5.0, c.Composite(DefaultWeights()))
	assert.Equal(t, 5.0, c.Composite(Weights{}))
}

func TestGeneratorScoresEveryBar(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 80)
	for i := range bars {
		price := 100 + 5*math.Sin(float64(i)/5)
		bars[i] = models.Bar{Timestamp: start.AddDate(0, 0, i), Close: price, Volume: 1000 + float64(i)}
	}

	scored := NewGenerator(DefaultWeights()).Score(bars)
	require.Len(t, scored, len(bars))
	for _, b := range scored {
		require.True(t, b.HasSignal())
		assert.GreaterOrEqual(t, b.ScoreValue(), 0.0)
		assert.LessOrEqual(t, b.ScoreValue(), 10.0)
		assert.Equal(t, models.LevelForScore(b.ScoreValue()), b.Level)
	}
	assert.False(t, bars[0].HasSignal(), "input must not be mutated")

	sig, err := NewGenerator(DefaultWeights()).Current("AAPL", bars)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", sig.Symbol)
	assert.Equal(t, scored[len(scored)-1].ScoreValue(), sig.Score)
	assert.Contains(t, sig.Indicators, "rsi")

	_, err = NewGenerator(DefaultWeights()).Current("AAPL", nil)
	assert.Error(t, err)
}
