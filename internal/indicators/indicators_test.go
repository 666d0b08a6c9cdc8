package indicators

import (
	"math"
	"testing"
	"time"

	"signalpilot/internal/models"
)

func TestEMA(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		span      int
		wantNaN   int
		wantLast  float64
		tolerance float64
	}{
		{
			name:     "Constant series converges to constant",
			values:   repeat(1.25, 30),
			span:     10,
			wantNaN:  9,
			wantLast: 1.25,
		},
		{
			name:      "Seeded with SMA of first span values",
			values:    []float64{1, 2, 3, 4, 5},
			span:      3,
			wantNaN:   2,
			wantLast:  4.0,
			tolerance: 1e-9,
		},
		{
			name:    "Shorter than span is all NaN",
			values:  []float64{1, 2},
			span:    5,
			wantNaN: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EMA(tt.values, tt.span)
			if len(got) != len(tt.values) {
				t.Fatalf("EMA() length = %d, want %d", len(got), len(tt.values))
			}
			for i := 0; i < tt.wantNaN; i++ {
				if !math.IsNaN(got[i]) {
					t.Errorf("EMA()[%d] = %v, want NaN warm-up", i, got[i])
				}
			}
			if tt.wantNaN == len(tt.values) {
				return
			}
			if math.Abs(Last(got)-tt.wantLast) > tt.tolerance {
				t.Errorf("EMA() last = %v, want %v", Last(got), tt.wantLast)
			}
		})
	}
}

func TestEMADeterministic(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = 100 + math.Sin(float64(i)/7)*3
	}

	first := EMA(values, 20)
	second := EMA(values, 20)
	for i := range first {
		if math.IsNaN(first[i]) && math.IsNaN(second[i]) {
			continue
		}
		if first[i] != second[i] {
			t.Fatalf("EMA() not deterministic at index %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		period int
		check  func(t *testing.T, out []float64)
	}{
		{
			name:   "Monotonic rise has no losses",
			values: ramp(1.0, 0.5, 30),
			period: 14,
			check: func(t *testing.T, out []float64) {
				if Last(out) != 100.0 {
					t.Errorf("RSI() last = %v, want 100 when there are no losses", Last(out))
				}
			},
		},
		{
			name:   "Monotonic fall pins near zero",
			values: ramp(100.0, -0.5, 30),
			period: 14,
			check: func(t *testing.T, out []float64) {
				if Last(out) > 1.0 {
					t.Errorf("RSI() last = %v, want near 0 when there are no gains", Last(out))
				}
			},
		},
		{
			name:   "Output stays inside 0..100",
			values: []float64{44, 44.3, 44.1, 43.6, 44.3, 44.8, 45.1, 45.4, 45.8, 46.1, 45.9, 46.0, 45.6, 46.2, 46.2, 46.0, 46.0, 46.4, 46.2, 45.6},
			period: 14,
			check: func(t *testing.T, out []float64) {
				for i, v := range out {
					if math.IsNaN(v) {
						continue
					}
					if v < 0 || v > 100 {
						t.Errorf("RSI()[%d] = %v, out of range", i, v)
					}
				}
			},
		},
		{
			name:   "Too few values is all NaN",
			values: []float64{1, 2, 3},
			period: 14,
			check: func(t *testing.T, out []float64) {
				for i, v := range out {
					if !math.IsNaN(v) {
						t.Errorf("RSI()[%d] = %v, want NaN for short input", i, v)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RSI(tt.values, tt.period)
			if len(out) != len(tt.values) {
				t.Fatalf("RSI() length = %d, want %d", len(out), len(tt.values))
			}
			for i := 0; i < tt.period && i < len(out); i++ {
				if !math.IsNaN(out[i]) {
					t.Errorf("RSI()[%d] = %v, want NaN warm-up", i, out[i])
				}
			}
			tt.check(t, out)
		})
	}
}

func TestATR(t *testing.T) {
	candles := generateTestCandles(30, func(i int) models.Candle {
		return models.Candle{
			Open:  100,
			High:  101,
			Low:   99,
			Close: 100,
			Time:  time.Now().Add(time.Duration(i) * time.Minute),
		}
	})

	out := ATR(candles, 14)
	if len(out) != len(candles) {
		t.Fatalf("ATR() length = %d, want %d", len(out), len(candles))
	}
	for i := 0; i < 13; i++ {
		if !math.IsNaN(out[i]) {
			t.Errorf("ATR()[%d] = %v, want NaN warm-up", i, out[i])
		}
	}
	// Constant 2-point ranges with no gaps give a constant ATR of 2.
	if math.Abs(Last(out)-2.0) > 1e-9 {
		t.Errorf("ATR() last = %v, want 2.0", Last(out))
	}
}

func TestTrueRangeUsesPriorClose(t *testing.T) {
	candles := []models.Candle{
		{High: 101, Low: 99, Close: 100},
		{High: 107, Low: 106, Close: 106.5}, // gap up: TR from prior close
	}

	tr := TrueRange(candles)
	if tr[0] != 2.0 {
		t.Errorf("TrueRange()[0] = %v, want plain range 2.0", tr[0])
	}
	if tr[1] != 7.0 {
		t.Errorf("TrueRange()[1] = %v, want 7.0 including the gap", tr[1])
	}
}

func TestMACD(t *testing.T) {
	values := make([]float64, 120)
	for i := range values {
		values[i] = 100 + float64(i)*0.2
	}

	macd, signal, hist := MACD(values, 12, 26, 9)
	if len(macd) != len(values) || len(signal) != len(values) || len(hist) != len(values) {
		t.Fatalf("MACD() series lengths differ from input")
	}

	// In a steady uptrend the fast EMA sits above the slow one.
	if Last(macd) <= 0 {
		t.Errorf("MACD() last = %v, want positive in an uptrend", Last(macd))
	}
	if got := Last(macd) - Last(signal); math.Abs(got-Last(hist)) > 1e-9 {
		t.Errorf("MACD() histogram = %v, want macd-signal = %v", Last(hist), got)
	}
}

func TestStochastic(t *testing.T) {
	t.Run("Flat window maps to midline", func(t *testing.T) {
		candles := generateTestCandles(30, func(i int) models.Candle {
			return models.Candle{High: 100, Low: 100, Close: 100}
		})
		k, _ := Stochastic(candles, 14, 3)
		if Last(k) != 50.0 {
			t.Errorf("Stochastic() %%K = %v, want 50 for a flat window", Last(k))
		}
	})

	t.Run("Close at window high is 100", func(t *testing.T) {
		candles := generateTestCandles(30, func(i int) models.Candle {
			price := 100 + float64(i)
			return models.Candle{High: price + 1, Low: price - 1, Close: price + 1}
		})
		k, _ := Stochastic(candles, 14, 3)
		if Last(k) != 100.0 {
			t.Errorf("Stochastic() %%K = %v, want 100 closing on the high", Last(k))
		}
	})
}

func TestBollinger(t *testing.T) {
	values := repeat(50.0, 40)
	upper, middle, lower := Bollinger(values, 20, 2.0)

	if Last(middle) != 50.0 {
		t.Errorf("Bollinger() middle = %v, want 50", Last(middle))
	}
	// Zero variance collapses the bands onto the middle.
	if Last(upper) != 50.0 || Last(lower) != 50.0 {
		t.Errorf("Bollinger() bands = %v/%v, want collapsed onto 50", Last(upper), Last(lower))
	}
}

func TestADXBounds(t *testing.T) {
	candles := generateTestCandles(80, func(i int) models.Candle {
		price := 100 + float64(i)*0.5
		return models.Candle{High: price + 1, Low: price - 1, Close: price}
	})

	adx, plusDI, minusDI := ADX(candles, 14)
	v := Last(adx)
	if math.IsNaN(v) || v < 0 || v > 100 {
		t.Errorf("ADX() last = %v, want inside 0..100", v)
	}
	// A clean uptrend keeps +DI above -DI.
	if Last(plusDI) <= Last(minusDI) {
		t.Errorf("ADX() +DI %v <= -DI %v in an uptrend", Last(plusDI), Last(minusDI))
	}
}

func TestMeanLastSkipsNaN(t *testing.T) {
	series := []float64{math.NaN(), math.NaN(), 2, 4}
	if got := MeanLast(series, 4); got != 3.0 {
		t.Errorf("MeanLast() = %v, want 3.0 ignoring NaN", got)
	}
}

func generateTestCandles(n int, generator func(int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = generator(i)
	}
	return candles
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}
