package signal

import (
	"math"

	"github.com/yourusername/stock-screener/internal/models"
)

// Weights are the relative contributions of each indicator to the composite
// score.
type Weights struct {
	RSI           float64 `json:"rsi" mapstructure:"rsi"`
	MACD          float64 `json:"macd" mapstructure:"macd"`
	MovingAverage float64 `json:"moving_average" mapstructure:"moving_average"`
	Bollinger     float64 `json:"bollinger_bands" mapstructure:"bollinger_bands"`
	Volume        float64 `json:"volume" mapstructure:"volume"`
	Momentum      float64 `json:"momentum" mapstructure:"momentum"`
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		RSI:           0.15,
		MACD:          0.20,
		MovingAverage: 0.20,
		Bollinger:     0.15,
		Volume:        0.15,
		Momentum:      0.15,
	}
}

func (w Weights) total() float64 {
	return w.RSI + w.MACD + w.MovingAverage + w.Bollinger + w.Volume + w.Momentum
}

// Components are the per-indicator sub-scores in [0, 1].
type Components struct {
	RSI           float64 `json:"rsi"`
	MACD          float64 `json:"macd"`
	MovingAverage float64 `json:"moving_average"`
	Bollinger     float64 `json:"bollinger_bands"`
	Volume        float64 `json:"volume"`
	Momentum      float64 `json:"momentum"`
}

// Composite returns the weighted average scaled to [0, 10], rounded to two
// decimals. A zero total weight yields the neutral 5.0.
func (c Components) Composite(w Weights) float64 {
	total := w.total()
	if total <= 0 {
		return 5.0
	}
	sum := c.RSI*w.RSI + c.MACD*w.MACD + c.MovingAverage*w.MovingAverage +
		c.Bollinger*w.Bollinger + c.Volume*w.Volume + c.Momentum*w.Momentum
	return models.Round2(sum / total * 10)
}

const neutral = 0.5

// ScoreRSI favours oversold readings.
func ScoreRSI(rsi float64) float64 {
	switch {
	case math.IsNaN(rsi):
		return neutral
	case rsi < 30:
		return 1.0
	case rsi < 50:
		return 1.0 - (rsi-30)/20
	case rsi < 70:
		return 0.5 - (rsi-50)/40
	default:
		return 0
	}
}

// ScoreMACD rewards a MACD line above its signal and a positive histogram.
func ScoreMACD(macd, signal, diff float64) float64 {
	if math.IsNaN(macd) || math.IsNaN(signal) || math.IsNaN(diff) {
		return neutral
	}
	score := neutral
	if macd > signal {
		score += 0.3
	}
	if diff > 0 {
		score += 0.2
	}
	return clamp01(score)
}

// ScoreMovingAverage rewards a golden cross and price above the short average.
func ScoreMovingAverage(price, short, long float64) float64 {
	if math.IsNaN(price) || math.IsNaN(short) || math.IsNaN(long) {
		return neutral
	}
	score := neutral
	if short > long {
		score += 0.3
	}
	if price > short {
		score += 0.2
	}
	return clamp01(score)
}

// ScoreBollinger favours prices near the lower band.
func ScoreBollinger(price, lower, upper float64) float64 {
	if math.IsNaN(price) || math.IsNaN(lower) || math.IsNaN(upper) {
		return neutral
	}
	width := upper - lower
	if width == 0 {
		return neutral
	}
	d := (price - lower) / width
	switch {
	case d < 0.2:
		return 1.0
	case d < 0.4:
		return 0.8
	case d < 0.6:
		return 0.5
	default:
		return 0.3
	}
}

// ScoreVolume rewards volume above its moving average.
func ScoreVolume(volume, volumeMA float64) float64 {
	if math.IsNaN(volume) || math.IsNaN(volumeMA) || volumeMA == 0 {
		return neutral
	}
	ratio := volume / volumeMA
	switch {
	case ratio > 1.5:
		return 1.0
	case ratio > 1.2:
		return 0.8
	case ratio > 1.0:
		return 0.6
	default:
		return 0.4
	}
}

// ScoreMomentum favours moderate positive momentum. Exactly 5% falls through
// to the lowest bucket.
func ScoreMomentum(m float64) float64 {
	switch {
	case math.IsNaN(m):
		return neutral
	case m > 0 && m < 5:
		return 1.0
	case m > -2 && m <= 0:
		return 0.7
	case m > 5:
		return 0.4
	default:
		return 0.2
	}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
