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

// BTCEURMomentum trades EMA12/EMA26 crossovers on the last bar.
//
// Setup: the fast EMA crosses the slow one on the current bar, with
// RSI not already at the exhaustion extreme for that side.
// Confirmations: EMA separation above 0.3x ATR, RSI strength, and
// ATR-to-price volatility above 0.2%. Stop/target are percent
// distances, which suits crypto's round-number behavior better than
// ATR multiples.
type BTCEURMomentum struct {
	emaFast         int
	emaSlow         int
	rsiPeriod       int
	atrPeriod       int
	separationMin   float64
	rsiStrengthMin  float64
	volatilityMin   float64
	slPct           float64
	tpPct           float64
	expiry          time.Duration
	minBars         int
}

func NewBTCEURMomentum() *BTCEURMomentum {
	return &BTCEURMomentum{
		emaFast:        12,
		emaSlow:        26,
		rsiPeriod:      14,
		atrPeriod:      14,
		separationMin:  0.3,
		rsiStrengthMin: 12,
		volatilityMin:  0.002,
		slPct:          0.02,
		tpPct:          0.04,
		expiry:         30 * time.Minute,
		minBars:        60,
	}
}

func (s *BTCEURMomentum) Name() string { return "btceur_momentum" }

func (s *BTCEURMomentum) MinBars() int { return s.minBars }

func (s *BTCEURMomentum) Detect(candles []models.Candle, cfg config.SymbolConfig) *models.CandidateSignal {
	if len(candles) < s.MinBars() {
		return nil
	}

	closes := models.Closes(candles)
	emaFast := indicators.EMA(closes, s.emaFast)
	emaSlow := indicators.EMA(closes, s.emaSlow)
	rsi := indicators.RSI(closes, s.rsiPeriod)
	atr := indicators.ATR(candles, s.atrPeriod)

	price := closes[len(closes)-1]
	fastNow := indicators.Last(emaFast)
	slowNow := indicators.Last(emaSlow)
	fastPrev := indicators.At(emaFast, 1)
	slowPrev := indicators.At(emaSlow, 1)
	rsiNow := indicators.Last(rsi)
	atrNow := indicators.Last(atr)

	if math.IsNaN(fastNow) || math.IsNaN(slowNow) || math.IsNaN(fastPrev) || math.IsNaN(slowPrev) ||
		math.IsNaN(rsiNow) || math.IsNaN(atrNow) || atrNow <= 0 || price <= 0 {
		return nil
	}

	crossUp := fastNow > slowNow && fastPrev <= slowPrev
	crossDown := fastNow < slowNow && fastPrev >= slowPrev
	if !crossUp && !crossDown {
		return nil
	}

	// Skip crosses into an already-exhausted side.
	if crossUp && rsiNow > 75 {
		return nil
	}
	if crossDown && rsiNow < 25 {
		return nil
	}

	direction := models.Buy
	if crossDown {
		direction = models.Sell
	}

	separation := math.Abs(fastNow-slowNow) / atrNow
	rsiStrength := math.Abs(rsiNow - 50)
	volatilityRatio := atrNow / price

	confirmations := []models.Confirmation{
		{
			Name:        "EMA_SEPARATION",
			Passed:      separation > s.separationMin,
			Value:       separation,
			Weight:      1.0,
			Description: fmt.Sprintf("EMA separation: %.2fx ATR", separation),
		},
		{
			Name:        "RSI_STRENGTH",
			Passed:      rsiStrength > s.rsiStrengthMin,
			Value:       rsiNow,
			Weight:      0.8,
			Description: fmt.Sprintf("RSI strength: %.1f (distance from 50: %.1f)", rsiNow, rsiStrength),
		},
		{
			Name:        "VOLATILITY",
			Passed:      volatilityRatio > s.volatilityMin,
			Value:       volatilityRatio,
			Weight:      0.6,
			Description: fmt.Sprintf("ATR/price volatility: %.4f", volatilityRatio),
		},
	}

	var stop, target float64
	if direction == models.Buy {
		stop = price * (1 - s.slPct)
		target = price * (1 + s.tpPct)
	} else {
		stop = price * (1 + s.slPct)
		target = price * (1 - s.tpPct)
	}

	passed := 0
	for _, c := range confirmations {
		if c.Passed {
			passed++
		}
	}
	strength := float64(passed) / float64(len(confirmations))

	context := map[string]float64{
		"rsi":              rsiNow,
		"atr":              atrNow,
		"ema_separation":   separation,
		"volatility_ratio": volatilityRatio,
	}

	return &models.CandidateSignal{
		ID:            uuid.NewString(),
		Symbol:        cfg.Symbol,
		Strategy:      s.Name(),
		Direction:     direction,
		Entry:         price,
		Stop:          stop,
		Target:        target,
		Rationale:     fmt.Sprintf("BTCEUR momentum: EMA%d/%d cross %s, %d/%d confirmations", s.emaFast, s.emaSlow, direction, passed, len(confirmations)),
		Expires:       time.Now().UTC().Add(s.expiry),
		SetupStrength: strength,
		Confirmations: confirmations,
		Context:       context,
	}
}
