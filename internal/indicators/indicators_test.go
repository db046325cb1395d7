package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, out, 5)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestRollingStdPopulation(t *testing.T) {
	out := RollingStd([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	assert.InDelta(t, 2.0, out[7], 1e-9)
}

func TestEMAWarmup(t *testing.T) {
	series := []float64{1, 1, 1, 1, 1}
	out := EMA(series, 3)
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 1.0, out[2], 1e-9)

	rising := EMA([]float64{1, 2, 3}, 1)
	assert.InDelta(t, 3.0, rising[2], 1e-9, "span 1 tracks the input")
}

func TestEWMSkipsLeadingNaN(t *testing.T) {
	out := EWM([]float64{math.NaN(), 10, 20}, 0.5, 2)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 15.0, out[2], 1e-9)
}

func TestRSIExtremes(t *testing.T) {
	up := make([]float64, 30)
	down := make([]float64, 30)
	for i := range up {
		up[i] = float64(100 + i)
		down[i] = float64(100 - i)
	}

	rsiUp := RSI(up, 14)
	assert.True(t, math.IsNaN(rsiUp[13]))
	assert.InDelta(t, 100.0, rsiUp[14], 1e-9)

	rsiDown := RSI(down, 14)
	assert.InDelta(t, 0.0, rsiDown[29], 1e-9)
}

func TestMACDConstantSeriesIsZero(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 50
	}
	res := MACD(closes, 12, 26, 9)
	assert.True(t, math.IsNaN(res.MACD[24]))
	assert.InDelta(t, 0.0, res.MACD[25], 1e-9)
	assert.True(t, math.IsNaN(res.Signal[32]))
	assert.InDelta(t, 0.0, res.Signal[33], 1e-9)
	assert.InDelta(t, 0.0, res.Diff[59], 1e-9)
}

func TestBollingerFlatSeriesCollapses(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 10
	}
	bands := Bollinger(closes, 20, 2)
	assert.InDelta(t, 10.0, bands.Upper[19], 1e-9)
	assert.InDelta(t, 10.0, bands.Lower[19], 1e-9)
	assert.True(t, math.IsNaN(bands.Middle[18]))
}

func TestPercentChange(t *testing.T) {
	out := PercentChange([]float64{100, 105, 110}, 2)
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 10.0, out[2], 1e-9)
}
