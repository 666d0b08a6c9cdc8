package indicators

import "math"

// MACD computes the moving average convergence divergence line, its
// signal line and the histogram. All three outputs align with the
// input; entries are NaN until both the slow EMA and the signal EMA
// have warmed up.
func MACD(values []float64, fast, slow, signal int) (macd, signalLine, histogram []float64) {
	n := len(values)
	macd = nanSeries(n)
	signalLine = nanSeries(n)
	histogram = nanSeries(n)
	if fast <= 0 || slow <= 0 || signal <= 0 || n < slow {
		return macd, signalLine, histogram
	}

	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	for i := slow - 1; i < n; i++ {
		macd[i] = fastEMA[i] - slowEMA[i]
	}

	// Signal line is an EMA of the defined MACD values.
	defined := macd[slow-1:]
	sig := EMA(defined, signal)
	for i, v := range sig {
		signalLine[slow-1+i] = v
	}

	for i := 0; i < n; i++ {
		if !math.IsNaN(macd[i]) && !math.IsNaN(signalLine[i]) {
			histogram[i] = macd[i] - signalLine[i]
		}
	}
	return macd, signalLine, histogram
}
