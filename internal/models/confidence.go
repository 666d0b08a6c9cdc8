package models

// Tier is a discrete confidence level for a signal.
type Tier string

const (
	TierVeryLow    Tier = "VERY_LOW"
	TierLow        Tier = "LOW"
	TierMedium     Tier = "MEDIUM"
	TierMediumHigh Tier = "MEDIUM-HIGH"
	TierHigh       Tier = "HIGH"
)

var tierRanks = map[Tier]int{
	TierVeryLow:    0,
	TierLow:        1,
	TierMedium:     2,
	TierMediumHigh: 3,
	TierHigh:       4,
}

// Rank returns the ordinal position of the tier for comparisons.
// Unknown tiers rank lowest.
func (t Tier) Rank() int {
	return tierRanks[t]
}

// AtLeast reports whether t is the same tier as other or higher.
func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

// ConfidenceFactor is one scored factor in a confidence breakdown.
type ConfidenceFactor struct {
	Name        string  `json:"name"`
	Passed      bool    `json:"passed"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// ConfidenceResult is the deterministic outcome of scoring a candidate.
// Points are instrument-specific (different instruments use different
// factor sets and totals); WeightedScore folds the detector's
// confirmations into a 0-1 value used for the show threshold.
type ConfidenceResult struct {
	Tier          Tier               `json:"tier"`
	Points        int                `json:"points"`
	MaxPoints     int                `json:"max_points"`
	WeightedScore float64            `json:"weighted_score"`
	Factors       []ConfidenceFactor `json:"factors"`
}
