package indicators

import "math"

// Bollinger computes Bollinger Bands: a simple moving average middle
// band with upper/lower bands stdDevMult standard deviations away.
// The first window-1 outputs of each band are NaN.
func Bollinger(values []float64, window int, stdDevMult float64) (upper, middle, lower []float64) {
	n := len(values)
	upper = nanSeries(n)
	middle = nanSeries(n)
	lower = nanSeries(n)
	if window <= 0 || n < window {
		return upper, middle, lower
	}

	for i := window - 1; i < n; i++ {
		slice := values[i-window+1 : i+1]

		var sum float64
		for _, v := range slice {
			sum += v
		}
		mean := sum / float64(window)

		var variance float64
		for _, v := range slice {
			variance += (v - mean) * (v - mean)
		}
		stdDev := math.Sqrt(variance / float64(window))

		middle[i] = mean
		upper[i] = mean + stdDevMult*stdDev
		lower[i] = mean - stdDevMult*stdDev
	}
	return upper, middle, lower
}
