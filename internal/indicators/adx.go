package indicators

import "signalpilot/internal/models"

// ADX computes the average directional index plus the +DI and -DI
// directional lines, all Wilder-smoothed. ADX values stay NaN until
// 2*period bars have been seen.
func ADX(candles []models.Candle, period int) (adx, plusDI, minusDI []float64) {
	n := len(candles)
	adx = nanSeries(n)
	plusDI = nanSeries(n)
	minusDI = nanSeries(n)
	if period <= 0 || n < period+1 {
		return adx, plusDI, minusDI
	}

	tr := TrueRange(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	// Wilder smoothing of TR and the directional movements.
	var trSum, plusSum, minusSum float64
	for i := 1; i <= period; i++ {
		trSum += tr[i]
		plusSum += plusDM[i]
		minusSum += minusDM[i]
	}

	dx := nanSeries(n)
	for i := period; i < n; i++ {
		if i > period {
			trSum = trSum - trSum/float64(period) + tr[i]
			plusSum = plusSum - plusSum/float64(period) + plusDM[i]
			minusSum = minusSum - minusSum/float64(period) + minusDM[i]
		}
		if trSum == 0 {
			continue
		}
		pdi := 100.0 * plusSum / trSum
		mdi := 100.0 * minusSum / trSum
		plusDI[i] = pdi
		minusDI[i] = mdi
		if pdi+mdi > 0 {
			dx[i] = 100.0 * abs(pdi-mdi) / (pdi + mdi)
		}
	}

	// ADX is the smoothed DX.
	if n < 2*period {
		return adx, plusDI, minusDI
	}
	var dxSum float64
	for i := period; i < 2*period; i++ {
		dxSum += dx[i]
	}
	adxVal := dxSum / float64(period)
	adx[2*period-1] = adxVal
	for i := 2 * period; i < n; i++ {
		adxVal = (adxVal*float64(period-1) + dx[i]) / float64(period)
		adx[i] = adxVal
	}
	return adx, plusDI, minusDI
}
