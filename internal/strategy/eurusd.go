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

// EURUSDBreakout trades range breakouts in trend direction.
//
// Setup: close breaks the prior 15-bar high with EMA50 above EMA200
// (or the mirror for sells). Confirmations: RSI in the operative
// 35-75 band, ATR above 0.9x its 20-bar mean, and no strong pullback
// from the recent extreme. Stop/target are ATR multiples.
type EURUSDBreakout struct {
	emaFast         int
	emaSlow         int
	breakoutPeriods int
	rsiPeriod       int
	rsiMin          float64
	rsiMax          float64
	atrPeriod       int
	atrMultiplier   float64
	slATRMultiplier float64
	tpATRMultiplier float64
	pullbackTol     float64
	expiry          time.Duration
}

func NewEURUSDBreakout() *EURUSDBreakout {
	return &EURUSDBreakout{
		emaFast:         50,
		emaSlow:         200,
		breakoutPeriods: 15,
		rsiPeriod:       14,
		rsiMin:          35,
		rsiMax:          75,
		atrPeriod:       14,
		atrMultiplier:   0.9,
		slATRMultiplier: 1.2,
		tpATRMultiplier: 2.4,
		pullbackTol:     0.002,
		expiry:          30 * time.Minute,
	}
}

func (s *EURUSDBreakout) Name() string { return "eurusd_breakout" }

func (s *EURUSDBreakout) MinBars() int { return s.emaSlow }

func (s *EURUSDBreakout) Detect(candles []models.Candle, cfg config.SymbolConfig) *models.CandidateSignal {
	if len(candles) < s.MinBars() {
		return nil
	}

	closes := models.Closes(candles)
	ema50 := indicators.EMA(closes, s.emaFast)
	ema200 := indicators.EMA(closes, s.emaSlow)
	rsi := indicators.RSI(closes, s.rsiPeriod)
	atr := indicators.ATR(candles, s.atrPeriod)

	price := closes[len(closes)-1]
	emaFast := indicators.Last(ema50)
	emaSlow := indicators.Last(ema200)
	rsiNow := indicators.Last(rsi)
	atrNow := indicators.Last(atr)
	atrMean := indicators.MeanLast(atr, 20)

	if math.IsNaN(emaFast) || math.IsNaN(emaSlow) || math.IsNaN(atrNow) || atrNow <= 0 {
		return nil
	}

	// Breakout levels exclude the current bar: the close must exceed
	// the extreme of the preceding bars, not its own high.
	prior := candles[:len(candles)-1]
	rangeHigh := models.HighestHigh(prior, s.breakoutPeriods)
	rangeLow := models.LowestLow(prior, s.breakoutPeriods)

	breakoutUp := price > rangeHigh && emaFast > emaSlow
	breakoutDown := price < rangeLow && emaFast < emaSlow
	if !breakoutUp && !breakoutDown {
		return nil
	}

	direction := models.Buy
	if breakoutDown {
		direction = models.Sell
	}

	var confirmations []models.Confirmation

	rsiOK := !math.IsNaN(rsiNow) && rsiNow >= s.rsiMin && rsiNow <= s.rsiMax
	confirmations = append(confirmations, models.Confirmation{
		Name:        "RSI_OPERATIVE",
		Passed:      rsiOK,
		Value:       rsiNow,
		Weight:      1.0,
		Description: fmt.Sprintf("RSI in operative band (%.0f-%.0f): %.1f", s.rsiMin, s.rsiMax, rsiNow),
	})

	volatilityRatio := 0.0
	if !math.IsNaN(atrMean) && atrMean > 0 {
		volatilityRatio = atrNow / atrMean
	}
	atrHigh := volatilityRatio > s.atrMultiplier
	confirmations = append(confirmations, models.Confirmation{
		Name:        "ATR_HIGH",
		Passed:      atrHigh,
		Value:       volatilityRatio,
		Weight:      0.8,
		Description: fmt.Sprintf("ATR above mean: %.5f vs %.5f", atrNow, atrMean),
	})

	var noPullback bool
	if direction == models.Buy {
		recentHigh := models.HighestHigh(candles, 10)
		noPullback = price >= recentHigh*(1-s.pullbackTol)
	} else {
		recentLow := models.LowestLow(candles, 10)
		noPullback = price <= recentLow*(1+s.pullbackTol)
	}
	confirmations = append(confirmations, models.Confirmation{
		Name:        "NO_PULLBACK",
		Passed:      noPullback,
		Value:       boolValue(noPullback),
		Weight:      0.6,
		Description: fmt.Sprintf("No strong pullback after %s breakout", direction),
	})

	slDistance := atrNow * s.slATRMultiplier
	tpDistance := atrNow * s.tpATRMultiplier
	var stop, target float64
	if direction == models.Buy {
		stop = price - slDistance
		target = price + tpDistance
	} else {
		stop = price + slDistance
		target = price - tpDistance
	}

	passed := 0
	for _, c := range confirmations {
		if c.Passed {
			passed++
		}
	}
	emaSeparation := 0.0
	if emaSlow > 0 {
		emaSeparation = math.Abs(emaFast-emaSlow) / emaSlow
	}
	confirmationRatio := float64(passed) / float64(len(confirmations))
	strength := confirmationRatio*0.7 + math.Min(emaSeparation*100, 1.0)*0.3

	// Readings the confidence scorer consumes later.
	recentHigh20 := models.HighestHigh(candles, 20)
	context := map[string]float64{
		"rsi":               rsiNow,
		"atr":               atrNow,
		"atr_mean":          atrMean,
		"volatility_ratio":  volatilityRatio,
		"ema_separation":    emaSeparation,
		"ema50_slope":       indicators.Last(ema50) - indicators.At(ema50, 3),
		"breakout_distance": math.Abs(price-recentHigh20) / atrNow,
	}

	return &models.CandidateSignal{
		ID:            uuid.NewString(),
		Symbol:        cfg.Symbol,
		Strategy:      s.Name(),
		Direction:     direction,
		Entry:         price,
		Stop:          stop,
		Target:        target,
		Rationale:     fmt.Sprintf("EURUSD breakout: %s, %d/%d confirmations, R:R %.1f", direction, passed, len(confirmations), tpDistance/slDistance),
		Expires:       time.Now().UTC().Add(s.expiry),
		SetupStrength: strength,
		Confirmations: confirmations,
		Context:       context,
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
