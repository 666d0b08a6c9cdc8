// Package confidence turns a detected candidate into a discrete
// confidence tier. Scoring is deterministic and side-effect free:
// identical inputs always produce the identical result.
//
// Each instrument keeps its own factor table and point total. The
// tables were tuned per instrument and are intentionally not
// normalised to a common scale.
package confidence

import (
	"fmt"
	"math"

	"signalpilot/config"
	"signalpilot/internal/models"
)

var pointTiers = map[int]models.Tier{
	0: models.TierLow,
	1: models.TierMedium,
	2: models.TierMediumHigh,
	3: models.TierHigh,
}

// Scorer maps candidates to confidence results using per-symbol tables.
type Scorer struct {
	symbols map[string]config.SymbolConfig
}

// NewScorer creates a scorer over the resolved instrument table.
func NewScorer(symbols map[string]config.SymbolConfig) *Scorer {
	return &Scorer{symbols: symbols}
}

// Score evaluates the candidate's confidence. Missing or NaN context
// readings score their factor as failed, never as an error; the result
// is still computed from the remaining factors.
func (s *Scorer) Score(sig *models.CandidateSignal) models.ConfidenceResult {
	var factors []models.ConfidenceFactor
	switch sig.Symbol {
	case "EURUSD":
		factors = eurusdFactors(sig)
	case "XAUUSD":
		factors = xauusdFactors(sig)
	case "BTCEUR":
		factors = btceurFactors(sig)
	default:
		// Unconfigured instruments get a flat medium rating.
		return models.ConfidenceResult{
			Tier:          models.TierMedium,
			Points:        1,
			MaxPoints:     1,
			WeightedScore: s.weightedScore(sig),
			Factors: []models.ConfidenceFactor{{
				Name:        "UNCONFIGURED",
				Passed:      true,
				Description: "Symbol not configured for confidence scoring",
			}},
		}
	}

	points := 0
	for _, f := range factors {
		if f.Passed {
			points++
		}
	}

	tier, ok := pointTiers[points]
	if !ok {
		tier = models.TierLow
	}

	return models.ConfidenceResult{
		Tier:          tier,
		Points:        points,
		MaxPoints:     len(factors),
		WeightedScore: s.weightedScore(sig),
		Factors:       factors,
	}
}

// ShouldShow reports whether the decision clears the per-symbol display
// gates: the discrete tier and the weighted confirmation score. Pure
// function of the inputs.
func (s *Scorer) ShouldShow(result models.ConfidenceResult, cfg config.SymbolConfig) bool {
	return result.Tier.AtLeast(cfg.ShowTier) && result.WeightedScore >= cfg.ShowThreshold
}

// ShouldAutoExecute reports whether the signal may be sent to the
// broker without a human: HIGH tier only, and only when the instrument
// has auto-execution enabled.
func (s *Scorer) ShouldAutoExecute(result models.ConfidenceResult, cfg config.SymbolConfig) bool {
	return result.Tier == models.TierHigh && cfg.AutoExecute
}

// weightedScore folds the detector's confirmations into a 0-1 score:
// the setup itself contributes setupWeight, the weighted share of
// passing confirmations contributes the remainder.
func (s *Scorer) weightedScore(sig *models.CandidateSignal) float64 {
	cfg, ok := s.symbols[sig.Symbol]
	setupWeight := 0.4
	if ok {
		setupWeight = cfg.SetupWeight
	}

	var totalWeight, passedWeight float64
	for _, c := range sig.Confirmations {
		w := c.Weight
		if w == 0 {
			w = 1.0
		}
		totalWeight += w
		if c.Passed {
			passedWeight += w
		}
	}
	confirmationScore := 0.0
	if totalWeight > 0 {
		confirmationScore = passedWeight / totalWeight
	}
	return setupWeight + (1-setupWeight)*confirmationScore
}

// EURUSD factors after a breakout: breakout distance, EMA50 slope
// strength, RSI strength.
func eurusdFactors(sig *models.CandidateSignal) []models.ConfidenceFactor {
	var factors []models.ConfidenceFactor

	dist, distOK := contextValue(sig, "breakout_distance")
	factors = append(factors, models.ConfidenceFactor{
		Name:        "BREAKOUT_DISTANCE",
		Passed:      distOK && dist > 0.5,
		Value:       dist,
		Description: fmt.Sprintf("Breakout distance: %.2fx ATR", dist),
	})

	slope, slopeOK := contextValue(sig, "ema50_slope")
	atrNow, atrOK := contextValue(sig, "atr")
	threshold := 0.0001
	if atrOK {
		threshold = atrNow * 0.1
	}
	factors = append(factors, models.ConfidenceFactor{
		Name:        "EMA50_SLOPE",
		Passed:      slopeOK && math.Abs(slope) > threshold,
		Value:       slope,
		Description: fmt.Sprintf("EMA50 slope: %.5f vs threshold %.5f", slope, threshold),
	})

	factors = append(factors, rsiStrengthFactor(sig, 10))
	return factors
}

// XAUUSD factors after a reversal: level precision, wick size,
// relative candle range.
func xauusdFactors(sig *models.CandidateSignal) []models.ConfidenceFactor {
	var factors []models.ConfidenceFactor

	levelDist, levelOK := contextValue(sig, "level_distance")
	factors = append(factors, models.ConfidenceFactor{
		Name:        "LEVEL_PRECISION",
		Passed:      levelOK && levelDist < 5.0,
		Value:       levelDist,
		Description: fmt.Sprintf("Distance to nearest level: %.1f points", levelDist),
	})

	wick, wickOK := contextValue(sig, "wick_ratio")
	factors = append(factors, models.ConfidenceFactor{
		Name:        "WICK_STRENGTH",
		Passed:      wickOK && wick > 0.45,
		Value:       wick,
		Description: fmt.Sprintf("Rejection wick ratio: %.2f", wick),
	})

	rangeRatio, rangeOK := contextValue(sig, "range_ratio")
	factors = append(factors, models.ConfidenceFactor{
		Name:        "RANGE_STRENGTH",
		Passed:      rangeOK && rangeRatio > 1.0,
		Value:       rangeRatio,
		Description: fmt.Sprintf("Candle range: %.2fx ATR", rangeRatio),
	})
	return factors
}

// BTCEUR factors after an EMA cross: EMA separation, RSI strength,
// volatility.
func btceurFactors(sig *models.CandidateSignal) []models.ConfidenceFactor {
	var factors []models.ConfidenceFactor

	sep, sepOK := contextValue(sig, "ema_separation")
	factors = append(factors, models.ConfidenceFactor{
		Name:        "EMA_SEPARATION",
		Passed:      sepOK && sep > 0.3,
		Value:       sep,
		Description: fmt.Sprintf("EMA separation: %.2fx ATR", sep),
	})

	factors = append(factors, rsiStrengthFactor(sig, 12))

	vol, volOK := contextValue(sig, "volatility_ratio")
	factors = append(factors, models.ConfidenceFactor{
		Name:        "VOLATILITY",
		Passed:      volOK && vol > 0.002,
		Value:       vol,
		Description: fmt.Sprintf("ATR/price volatility: %.4f", vol),
	})
	return factors
}

func rsiStrengthFactor(sig *models.CandidateSignal, minStrength float64) models.ConfidenceFactor {
	rsi, ok := contextValue(sig, "rsi")
	strength := math.Abs(rsi - 50)
	return models.ConfidenceFactor{
		Name:        "RSI_STRENGTH",
		Passed:      ok && strength > minStrength,
		Value:       rsi,
		Description: fmt.Sprintf("RSI %.1f (distance from 50: %.1f)", rsi, strength),
	}
}

func contextValue(sig *models.CandidateSignal, key string) (float64, bool) {
	if sig.Context == nil {
		return math.NaN(), false
	}
	v, ok := sig.Context[key]
	if !ok || math.IsNaN(v) {
		return math.NaN(), false
	}
	return v, true
}
