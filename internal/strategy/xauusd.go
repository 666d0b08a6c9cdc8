package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"signalpilot/config"
	"signalpilot/internal/indicators"
	"signalpilot/internal/models"
)

// XAUUSDReversal trades mean reversion at key levels in gold.
//
// Setup: RSI in an extreme zone (<25 or >75) with price within 0.5% of
// EMA200. Deliberately ultra-selective: at least four of its
// confirmations (MACD momentum, elevated ATR, reversal candle pattern,
// stochastic extreme, Bollinger extreme, volume spike) must pass or no
// candidate is produced at all.
type XAUUSDReversal struct {
	emaPeriod        int
	rsiPeriod        int
	rsiOversold      float64
	rsiOverbought    float64
	macdFast         int
	macdSlow         int
	macdSignal       int
	atrPeriod        int
	atrThreshold     float64
	emaDistanceMax   float64
	slATRMultiplier  float64
	tpATRMultiplier  float64
	minConfirmations int
	volumeThreshold  float64
	expiry           time.Duration
}

func NewXAUUSDReversal() *XAUUSDReversal {
	return &XAUUSDReversal{
		emaPeriod:        200,
		rsiPeriod:        14,
		rsiOversold:      25,
		rsiOverbought:    75,
		macdFast:         12,
		macdSlow:         26,
		macdSignal:       9,
		atrPeriod:        14,
		atrThreshold:     1.2,
		emaDistanceMax:   0.005,
		slATRMultiplier:  2.0,
		tpATRMultiplier:  4.0,
		minConfirmations: 4,
		volumeThreshold:  1.2,
		expiry:           60 * time.Minute,
	}
}

func (s *XAUUSDReversal) Name() string { return "xauusd_reversal" }

func (s *XAUUSDReversal) MinBars() int { return s.emaPeriod }

func (s *XAUUSDReversal) Detect(candles []models.Candle, cfg config.SymbolConfig) *models.CandidateSignal {
	if len(candles) < s.MinBars() {
		return nil
	}

	closes := models.Closes(candles)
	ema200 := indicators.EMA(closes, s.emaPeriod)
	rsi := indicators.RSI(closes, s.rsiPeriod)
	atr := indicators.ATR(candles, s.atrPeriod)
	_, _, macdHist := indicators.MACD(closes, s.macdFast, s.macdSlow, s.macdSignal)
	bbUpper, _, bbLower := indicators.Bollinger(closes, 20, 2.0)
	stochK, _ := indicators.Stochastic(candles, 14, 3)

	last := candles[len(candles)-1]
	price := last.Close
	emaNow := indicators.Last(ema200)
	rsiNow := indicators.Last(rsi)
	atrNow := indicators.Last(atr)
	atrMean := indicators.MeanLast(atr, 20)

	if math.IsNaN(emaNow) || math.IsNaN(rsiNow) || math.IsNaN(atrNow) || emaNow <= 0 || atrNow <= 0 {
		return nil
	}

	rsiOversold := rsiNow < s.rsiOversold
	rsiOverbought := rsiNow > s.rsiOverbought
	if !rsiOversold && !rsiOverbought {
		return nil
	}

	emaDistance := math.Abs(price-emaNow) / emaNow
	if emaDistance > s.emaDistanceMax {
		return nil
	}

	direction := models.Buy
	if rsiOverbought {
		direction = models.Sell
	}

	var confirmations []models.Confirmation

	histNow := indicators.Last(macdHist)
	histPrev := indicators.At(macdHist, 1)
	var macdOK bool
	if direction == models.Buy {
		macdOK = histNow > histPrev && histNow > -0.5
	} else {
		macdOK = histNow < histPrev && histNow < 0.5
	}
	if math.IsNaN(histNow) || math.IsNaN(histPrev) {
		macdOK = false
	}
	confirmations = append(confirmations, models.Confirmation{
		Name:        "MACD_MOMENTUM",
		Passed:      macdOK,
		Value:       histNow,
		Weight:      1.0,
		Description: fmt.Sprintf("MACD momentum favorable for %s: %.4f", direction, histNow),
	})

	volatilityRatio := 0.0
	if !math.IsNaN(atrMean) && atrMean > 0 {
		volatilityRatio = atrNow / atrMean
	}
	atrHigh := volatilityRatio > s.atrThreshold
	confirmations = append(confirmations, models.Confirmation{
		Name:        "ATR_HIGH",
		Passed:      atrHigh,
		Value:       volatilityRatio,
		Weight:      1.0,
		Description: fmt.Sprintf("ATR elevated: %.2f vs %.2f", atrNow, atrMean),
	})

	patternOK, patternStrength, patternDesc := reversalPattern(last, direction)
	confirmations = append(confirmations, models.Confirmation{
		Name:        "REVERSAL_PATTERN",
		Passed:      patternOK,
		Value:       patternStrength,
		Weight:      0.8,
		Description: patternDesc,
	})

	stochNow := indicators.Last(stochK)
	var stochOK bool
	if direction == models.Buy {
		stochOK = stochNow < 30
	} else {
		stochOK = stochNow > 70
	}
	if math.IsNaN(stochNow) {
		stochOK = false
	}
	confirmations = append(confirmations, models.Confirmation{
		Name:        "STOCHASTIC_EXTREME",
		Passed:      stochOK,
		Value:       stochNow,
		Weight:      0.8,
		Description: fmt.Sprintf("Stochastic extreme for %s: %.1f", direction, stochNow),
	})

	bbU := indicators.Last(bbUpper)
	bbL := indicators.Last(bbLower)
	bbPosition := 0.5
	if !math.IsNaN(bbU) && !math.IsNaN(bbL) && bbU > bbL {
		bbPosition = (price - bbL) / (bbU - bbL)
	}
	var bbOK bool
	if direction == models.Buy {
		bbOK = bbPosition < 0.2
	} else {
		bbOK = bbPosition > 0.8
	}
	confirmations = append(confirmations, models.Confirmation{
		Name:        "BB_EXTREME",
		Passed:      bbOK,
		Value:       bbPosition,
		Weight:      0.6,
		Description: fmt.Sprintf("Bollinger position extreme: %.2f", bbPosition),
	})

	if last.Volume > 0 {
		var volSum int64
		n := 20
		if n > len(candles) {
			n = len(candles)
		}
		for _, c := range candles[len(candles)-n:] {
			volSum += c.Volume
		}
		volMean := float64(volSum) / float64(n)
		volRatio := 0.0
		if volMean > 0 {
			volRatio = float64(last.Volume) / volMean
		}
		confirmations = append(confirmations, models.Confirmation{
			Name:        "VOLUME_HIGH",
			Passed:      volRatio > s.volumeThreshold,
			Value:       volRatio,
			Weight:      0.6,
			Description: fmt.Sprintf("Volume elevated: %d vs %.0f", last.Volume, volMean),
		})
	}

	passed := 0
	for _, c := range confirmations {
		if c.Passed {
			passed++
		}
	}
	if passed < s.minConfirmations {
		return nil
	}

	// Stops are wider for gold; the EMA200 side bounds the stop so a
	// reversal that fails straight through the level exits quickly.
	slDistance := atrNow * s.slATRMultiplier
	tpDistance := atrNow * s.tpATRMultiplier
	var stop, target float64
	if direction == models.Buy {
		stop = math.Max(emaNow*0.998, price-slDistance)
		target = price + tpDistance
	} else {
		stop = math.Min(emaNow*1.002, price+slDistance)
		target = price - tpDistance
	}

	rsiExtremeness := math.Abs(rsiNow-50) / 50
	emaProximity := 1.0 - emaDistance/s.emaDistanceMax
	confirmationRatio := float64(passed) / float64(len(confirmations))
	volatilityFactor := math.Min(1.0, volatilityRatio)
	strength := rsiExtremeness*0.3 + emaProximity*0.25 + confirmationRatio*0.3 + volatilityFactor*0.15

	// Level precision and wick shape feed the gold confidence scorer.
	recentHigh := models.HighestHigh(candles, 20)
	recentLow := models.LowestLow(candles, 20)
	levelDistance := math.Abs(price - recentHigh)
	if d := math.Abs(price - recentLow); d < levelDistance {
		levelDistance = d
	}
	wickRatio := directionalWickRatio(last, direction)
	rangeRatio := 0.0
	if atrNow > 0 {
		rangeRatio = last.Range() / atrNow
	}

	context := map[string]float64{
		"rsi":              rsiNow,
		"atr":              atrNow,
		"atr_mean":         atrMean,
		"volatility_ratio": volatilityRatio,
		"ema200":           emaNow,
		"ema_distance":     emaDistance,
		"bb_position":      bbPosition,
		"macd_histogram":   histNow,
		"stochastic":       stochNow,
		"level_distance":   levelDistance,
		"wick_ratio":       wickRatio,
		"range_ratio":      rangeRatio,
	}

	return &models.CandidateSignal{
		ID:            uuid.NewString(),
		Symbol:        cfg.Symbol,
		Strategy:      s.Name(),
		Direction:     direction,
		Entry:         price,
		Stop:          stop,
		Target:        target,
		Rationale:     fmt.Sprintf("XAUUSD reversal: %s, RSI %.1f at EMA200, %d/%d confirmations", direction, rsiNow, passed, len(confirmations)),
		Expires:       time.Now().UTC().Add(s.expiry),
		SetupStrength: strength,
		Confirmations: confirmations,
		Context:       context,
	}
}

// reversalPattern checks the last candle for a hammer (buys) or
// shooting star (sells): small body, long shadow on the rejection side.
func reversalPattern(c models.Candle, direction models.Direction) (bool, float64, string) {
	totalRange := c.Range()
	if totalRange <= 0 {
		return false, 0, "No range on last candle"
	}

	body := math.Abs(c.Body())
	upperShadow := c.High - math.Max(c.Open, c.Close)
	lowerShadow := math.Min(c.Open, c.Close) - c.Low

	if direction == models.Buy {
		isHammer := lowerShadow > body*2 && upperShadow < body*0.5 && body/totalRange < 0.3
		if isHammer {
			return true, 0.8, "Hammer pattern"
		}
		return false, 0, "No hammer pattern"
	}

	isShootingStar := upperShadow > body*2 && lowerShadow < body*0.5 && body/totalRange < 0.3
	if isShootingStar {
		return true, 0.8, "Shooting star pattern"
	}
	return false, 0, "No shooting star pattern"
}

// directionalWickRatio returns the rejection-side wick as a share of
// the candle range: lower wick for buys, upper wick for sells.
func directionalWickRatio(c models.Candle, direction models.Direction) float64 {
	totalRange := c.Range()
	if totalRange <= 0 {
		return 0
	}
	if direction == models.Buy {
		return (math.Min(c.Open, c.Close) - c.Low) / totalRange
	}
	return (c.High - math.Max(c.Open, c.Close)) / totalRange
}
