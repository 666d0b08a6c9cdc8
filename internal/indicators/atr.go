package indicators

import "signalpilot/internal/models"

// TrueRange computes the per-bar true range: the largest of high-low,
// |high-prevClose| and |low-prevClose|. The first bar uses high-low.
func TrueRange(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		tr := c.High - c.Low
		if i > 0 {
			prevClose := candles[i-1].Close
			if hc := abs(c.High - prevClose); hc > tr {
				tr = hc
			}
			if lc := abs(c.Low - prevClose); lc > tr {
				tr = lc
			}
		}
		out[i] = tr
	}
	return out
}

// ATR computes the average true range as a rolling mean of the true
// range over period bars. The first period-1 outputs are NaN.
func ATR(candles []models.Candle, period int) []float64 {
	out := nanSeries(len(candles))
	if period <= 0 || len(candles) < period {
		return out
	}

	tr := TrueRange(candles)
	var sum float64
	for i, v := range tr {
		sum += v
		if i >= period {
			sum -= tr[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
