// Package indicators computes technical indicator series over closing
// prices. Every function returns a slice the same length as its input with
// NaN wherever the warm-up window has not been filled.
package indicators

import "math"

// NaNs returns a slice of n NaN values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA is the simple rolling mean over period values.
func SMA(series []float64, period int) []float64 {
	out := NaNs(len(series))
	if period < 1 {
		return out
	}
	var sum float64
	for i, v := range series {
		sum += v
		if i >= period {
			sum -= series[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// RollingStd is the population (ddof=0) standard deviation over period values.
func RollingStd(series []float64, period int) []float64 {
	out := NaNs(len(series))
	if period < 1 {
		return out
	}
	for i := period - 1; i < len(series); i++ {
		window := series[i-period+1 : i+1]
		var mean float64
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)
		var variance float64
		for _, v := range window {
			d := v - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(period))
	}
	return out
}

// EWM is a recursive exponentially weighted mean with smoothing factor alpha.
// Leading NaNs are skipped; the recursion seeds on the first real value and
// output stays NaN until minPeriods observations have been seen.
func EWM(series []float64, alpha float64, minPeriods int) []float64 {
	out := NaNs(len(series))
	var (
		prev   float64
		seeded bool
		seen   int
	)
	for i, v := range series {
		if math.IsNaN(v) {
			if seeded && seen >= minPeriods {
				out[i] = prev
			}
			continue
		}
		if !seeded {
			prev = v
			seeded = true
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		seen++
		if seen >= minPeriods {
			out[i] = prev
		}
	}
	return out
}

// EMA is EWM with alpha = 2/(span+1) and a span-length warm-up.
func EMA(series []float64, span int) []float64 {
	if span < 1 {
		return NaNs(len(series))
	}
	return EWM(series, 2.0/(float64(span)+1.0), span)
}

// RSI uses Wilder smoothing (alpha = 1/period) of gains and losses.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	if n == 0 || period < 1 {
		return NaNs(n)
	}
	gains := NaNs(n)
	losses := NaNs(n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		gains[i] = math.Max(d, 0)
		losses[i] = math.Max(-d, 0)
	}
	alpha := 1.0 / float64(period)
	avgGain := EWM(gains, alpha, period)
	avgLoss := EWM(losses, alpha, period)

	out := NaNs(n)
	for i := range out {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACDResult holds the MACD line, its signal line and their difference.
type MACDResult struct {
	MACD   []float64
	Signal []float64
	Diff   []float64
}

// MACD computes fast/slow EMA difference and its signal EMA.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	line := NaNs(len(closes))
	for i := range closes {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}
	sig := EMA(line, signal)
	diff := NaNs(len(closes))
	for i := range closes {
		if !math.IsNaN(line[i]) && !math.IsNaN(sig[i]) {
			diff[i] = line[i] - sig[i]
		}
	}
	return MACDResult{MACD: line, Signal: sig, Diff: diff}
}

// BandsResult holds Bollinger band series.
type BandsResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes a moving average with bands at k population standard
// deviations.
func Bollinger(closes []float64, period int, k float64) BandsResult {
	mid := SMA(closes, period)
	std := RollingStd(closes, period)
	upper := NaNs(len(closes))
	lower := NaNs(len(closes))
	for i := range closes {
		if math.IsNaN(mid[i]) || math.IsNaN(std[i]) {
			continue
		}
		upper[i] = mid[i] + k*std[i]
		lower[i] = mid[i] - k*std[i]
	}
	return BandsResult{Upper: upper, Middle: mid, Lower: lower}
}

// PercentChange is (x[i]/x[i-periods] - 1) * 100.
func PercentChange(series []float64, periods int) []float64 {
	out := NaNs(len(series))
	if periods < 1 {
		return out
	}
	for i := periods; i < len(series); i++ {
		base := series[i-periods]
		if base == 0 || math.IsNaN(base) || math.IsNaN(series[i]) {
			continue
		}
		out[i] = (series[i]/base - 1) * 100
	}
	return out
}
