package models

import (
	"math"
	"time"
)

// Direction is the side of a trading signal.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Confirmation is one sub-check evaluated while detecting a setup.
// All confirmations are recorded, passed or not, so scoring and
// diagnostics can see partial credit.
type Confirmation struct {
	Name        string  `json:"name"`
	Passed      bool    `json:"passed"`
	Value       float64 `json:"value"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// CandidateSignal is a detected directional setup before scoring and
// filtering. It is created fresh per evaluation and never persisted.
type CandidateSignal struct {
	ID            string         `json:"id"`
	Symbol        string         `json:"symbol"`
	Strategy      string         `json:"strategy"`
	Direction     Direction      `json:"direction"`
	Entry         float64        `json:"entry"`
	Stop          float64        `json:"stop"`
	Target        float64        `json:"target"`
	Rationale     string         `json:"rationale"`
	Expires       time.Time      `json:"expires"`
	SetupStrength float64        `json:"setup_strength"`
	Confirmations []Confirmation `json:"confirmations"`

	// Context carries auxiliary market readings (RSI, ATR ratio, EMA
	// separation and the like) consumed by the confidence scorer. Core
	// fields never live here.
	Context map[string]float64 `json:"context,omitempty"`
}

// RiskDistance returns the absolute entry-to-stop distance.
func (s *CandidateSignal) RiskDistance() float64 {
	return math.Abs(s.Entry - s.Stop)
}

// RewardDistance returns the absolute entry-to-target distance.
func (s *CandidateSignal) RewardDistance() float64 {
	return math.Abs(s.Target - s.Entry)
}

// RewardRisk returns the reward:risk ratio, or 0 for a zero-distance stop.
func (s *CandidateSignal) RewardRisk() float64 {
	risk := s.RiskDistance()
	if risk == 0 {
		return 0
	}
	return s.RewardDistance() / risk
}

// LevelsConsistent reports whether stop and target sit on the correct
// sides of the entry for the signal's direction: stop < entry < target
// for BUY, stop > entry > target for SELL. Zero-distance stops fail.
func (s *CandidateSignal) LevelsConsistent() bool {
	switch s.Direction {
	case Buy:
		return s.Stop < s.Entry && s.Entry < s.Target
	case Sell:
		return s.Stop > s.Entry && s.Entry > s.Target
	default:
		return false
	}
}

// PassedConfirmations counts the confirmations that passed.
func (s *CandidateSignal) PassedConfirmations() int {
	passed := 0
	for _, c := range s.Confirmations {
		if c.Passed {
			passed++
		}
	}
	return passed
}
