package indicators

import (
	"math"

	"signalpilot/internal/models"
)

// Stochastic computes the %K and %D stochastic oscillator lines.
// %K = 100 * (close - lowestLow) / (highestHigh - lowestLow) over
// kPeriod bars; %D is the simple average of the last dPeriod %K values.
// A flat window (zero range) yields a neutral 50.
func Stochastic(candles []models.Candle, kPeriod, dPeriod int) (k, d []float64) {
	n := len(candles)
	k = nanSeries(n)
	d = nanSeries(n)
	if kPeriod <= 0 || dPeriod <= 0 || n < kPeriod {
		return k, d
	}

	for i := kPeriod - 1; i < n; i++ {
		window := candles[i-kPeriod+1 : i+1]
		high := window[0].High
		low := window[0].Low
		for _, c := range window {
			if c.High > high {
				high = c.High
			}
			if c.Low < low {
				low = c.Low
			}
		}
		if high == low {
			k[i] = 50.0
			continue
		}
		k[i] = 100.0 * (candles[i].Close - low) / (high - low)
	}

	for i := kPeriod - 2 + dPeriod; i < n; i++ {
		var sum float64
		count := 0
		for j := i - dPeriod + 1; j <= i; j++ {
			if math.IsNaN(k[j]) {
				continue
			}
			sum += k[j]
			count++
		}
		if count == dPeriod {
			d[i] = sum / float64(dPeriod)
		}
	}
	return k, d
}
