// Package signal turns OHLCV bars into per-bar composite scores and levels.
package signal

import (
	"fmt"
	"math"

	"github.com/yourusername/stock-screener/internal/indicators"
	"github.com/yourusername/stock-screener/internal/models"
)

// Indicator parameters.
const (
	RSIPeriod      = 14
	MACDFast       = 12
	MACDSlow       = 26
	MACDSignal     = 9
	MAShort        = 20
	MALong         = 50
	BBPeriod       = 20
	BBStdDev       = 2.0
	VolumeMAPeriod = 20
	MomentumPeriod = 10
)

// Frame holds every indicator series for one bar sequence.
type Frame struct {
	RSI        []float64
	MACD       []float64
	MACDSignal []float64
	MACDDiff   []float64
	MAShort    []float64
	MALong     []float64
	BBUpper    []float64
	BBMiddle   []float64
	BBLower    []float64
	VolumeMA   []float64
	Momentum   []float64
}

// ComputeFrame calculates all indicators over bars.
func ComputeFrame(bars []models.Bar) Frame {
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}
	macd := indicators.MACD(closes, MACDFast, MACDSlow, MACDSignal)
	bands := indicators.Bollinger(closes, BBPeriod, BBStdDev)
	return Frame{
		RSI:        indicators.RSI(closes, RSIPeriod),
		MACD:       macd.MACD,
		MACDSignal: macd.Signal,
		MACDDiff:   macd.Diff,
		MAShort:    indicators.SMA(closes, MAShort),
		MALong:     indicators.SMA(closes, MALong),
		BBUpper:    bands.Upper,
		BBMiddle:   bands.Middle,
		BBLower:    bands.Lower,
		VolumeMA:   indicators.SMA(volumes, VolumeMAPeriod),
		Momentum:   indicators.PercentChange(closes, MomentumPeriod),
	}
}

// Components scores bar i of the frame.
func (f Frame) Components(i int, bar models.Bar) Components {
	return Components{
		RSI:           ScoreRSI(f.RSI[i]),
		MACD:          ScoreMACD(f.MACD[i], f.MACDSignal[i], f.MACDDiff[i]),
		MovingAverage: ScoreMovingAverage(bar.Close, f.MAShort[i], f.MALong[i]),
		Bollinger:     ScoreBollinger(bar.Close, f.BBLower[i], f.BBUpper[i]),
		Volume:        ScoreVolume(bar.Volume, f.VolumeMA[i]),
		Momentum:      ScoreMomentum(f.Momentum[i]),
	}
}

// Snapshot returns the indicator values at bar i, omitting NaNs.
func (f Frame) Snapshot(i int) map[string]float64 {
	values := map[string]float64{
		"rsi":         f.RSI[i],
		"macd":        f.MACD[i],
		"macd_signal": f.MACDSignal[i],
		"ma_short":    f.MAShort[i],
		"ma_long":     f.MALong[i],
		"bb_upper":    f.BBUpper[i],
		"bb_lower":    f.BBLower[i],
		"momentum":    f.Momentum[i],
	}
	for k, v := range values {
		if math.IsNaN(v) {
			delete(values, k)
		}
	}
	return values
}

// Generator attaches composite scores and levels to bar series.
type Generator struct {
	weights Weights
}

// NewGenerator creates a generator. Zero weights fall back to the defaults.
func NewGenerator(weights Weights) *Generator {
	if weights.total() <= 0 {
		weights = DefaultWeights()
	}
	return &Generator{weights: weights}
}

// Weights returns the generator's weighting.
func (g *Generator) Weights() Weights {
	return g.weights
}

// Score returns a copy of bars with Score and Level set on every bar.
func (g *Generator) Score(bars []models.Bar) []models.Bar {
	frame := ComputeFrame(bars)
	out := make([]models.Bar, len(bars))
	for i, b := range bars {
		score := frame.Components(i, b).Composite(g.weights)
		out[i] = b.WithSignal(score, models.LevelForScore(score))
	}
	return out
}

// Current scores the series and returns the signal for its last bar.
func (g *Generator) Current(symbol string, bars []models.Bar) (*models.Signal, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for %s", symbol)
	}
	frame := ComputeFrame(bars)
	last := len(bars) - 1
	score := frame.Components(last, bars[last]).Composite(g.weights)
	sig := models.SignalFromBar(symbol, bars[last].WithSignal(score, models.LevelForScore(score)))
	sig.Indicators = frame.Snapshot(last)
	return &sig, nil
}
