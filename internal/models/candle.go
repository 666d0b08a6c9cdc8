package models

import "time"

// Candle represents a single OHLC price bar. Bars are immutable once
// fetched; indicator values are always derived into separate slices.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume,omitempty"`
}

// Range returns the full high-low span of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Body returns the signed close-open body of the candle.
func (c Candle) Body() float64 {
	return c.Close - c.Open
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Closes extracts the close prices from a candle series.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// HighestHigh returns the maximum high over the last n candles.
func HighestHigh(candles []Candle, n int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if n > len(candles) {
		n = len(candles)
	}
	highest := candles[len(candles)-n].High
	for _, c := range candles[len(candles)-n:] {
		if c.High > highest {
			highest = c.High
		}
	}
	return highest
}

// LowestLow returns the minimum low over the last n candles.
func LowestLow(candles []Candle, n int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if n > len(candles) {
		n = len(candles)
	}
	lowest := candles[len(candles)-n].Low
	for _, c := range candles[len(candles)-n:] {
		if c.Low < lowest {
			lowest = c.Low
		}
	}
	return lowest
}
