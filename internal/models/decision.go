package models

import "time"

// RejectionKind classifies why a candidate did not become a signal.
// Everything here is a structured outcome, not an error: only upstream
// data/execution failures propagate as Go errors.
type RejectionKind string

const (
	RejectNone               RejectionKind = ""
	RejectConfigError        RejectionKind = "CONFIG_ERROR"
	RejectDataInsufficient   RejectionKind = "DATA_INSUFFICIENT"
	RejectSetupNotFound      RejectionKind = "SETUP_NOT_FOUND"
	RejectConfirmationFailed RejectionKind = "CONFIRMATION_FAILED"
	RejectDuplicateCooldown  RejectionKind = "DUPLICATE_OR_COOLDOWN"
	RejectRisk               RejectionKind = "RISK_REJECTED"
)

// RiskParameters holds the sizing outcome for an approved candidate.
type RiskParameters struct {
	SuggestedLot   float64 `json:"suggested_lot"`
	RiskAmount     float64 `json:"risk_amount"`
	RewardRisk     float64 `json:"reward_risk"`
	MaxLoss        float64 `json:"max_loss"`
	ExpectedProfit float64 `json:"expected_profit"`
	RiskPct        float64 `json:"risk_pct"`
}

// RiskAssessment is the risk manager's verdict on a candidate. Warnings
// carry soft issues (clamped lot, aspirational R:R) that do not block.
type RiskAssessment struct {
	Approved   bool           `json:"approved"`
	Reason     string         `json:"reason,omitempty"`
	Parameters RiskParameters `json:"parameters"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// Decision is the final output of one evaluate() call. Rejected
// decisions keep the stage's kind and reason for diagnostics; accepted
// ones carry the enriched signal plus confidence and risk parameters.
type Decision struct {
	Symbol          string           `json:"symbol"`
	Accepted        bool             `json:"accepted"`
	Signal          *CandidateSignal `json:"signal,omitempty"`
	Confidence      ConfidenceResult `json:"confidence"`
	Risk            RiskAssessment   `json:"risk"`
	AutoExecute     bool             `json:"auto_execute"`
	RejectionKind   RejectionKind    `json:"rejection_kind,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	EvaluatedAt     time.Time        `json:"evaluated_at"`
}

// Rejected builds a rejection decision for the given stage.
func Rejected(symbol string, kind RejectionKind, reason string) Decision {
	return Decision{
		Symbol:          symbol,
		Accepted:        false,
		RejectionKind:   kind,
		RejectionReason: reason,
		EvaluatedAt:     time.Now().UTC(),
	}
}
