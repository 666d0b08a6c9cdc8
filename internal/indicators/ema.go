// Package indicators provides pure, stateless transforms over price
// series. Every function returns output aligned with its input; values
// inside the warm-up window are NaN rather than zero so callers can
// tell "not yet defined" from "actually zero".
package indicators

import "math"

// EMA computes the exponential moving average with smoothing
// alpha = 2/(span+1), seeded with the simple average of the first span
// values. The first span-1 outputs are NaN.
func EMA(values []float64, span int) []float64 {
	out := nanSeries(len(values))
	if span <= 0 || len(values) < span {
		return out
	}

	var sum float64
	for i := 0; i < span; i++ {
		sum += values[i]
	}
	ema := sum / float64(span)
	out[span-1] = ema

	multiplier := 2.0 / float64(span+1)
	for i := span; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// Last returns the final value of a series, or NaN for an empty one.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// At returns series[len-1-back], or NaN when out of range.
func At(series []float64, back int) float64 {
	idx := len(series) - 1 - back
	if idx < 0 || idx >= len(series) {
		return math.NaN()
	}
	return series[idx]
}

// MeanLast averages the trailing n defined values of a series,
// skipping NaN warm-up entries. Returns NaN when nothing is defined.
func MeanLast(series []float64, n int) float64 {
	if n > len(series) {
		n = len(series)
	}
	var sum float64
	count := 0
	for _, v := range series[len(series)-n:] {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
