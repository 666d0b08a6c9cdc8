// Package risk sizes positions and enforces trade ceilings. Sizing is
// fixed-fractional: risk a configured percentage of the account on the
// stop distance, then floor the lot to the broker's step and clamp it
// into the instrument's bounds.
package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"signalpilot/config"
	"signalpilot/internal/models"
)

// Manager evaluates risk for candidate signals and tracks how many
// trades have been taken today and in the current half-day period.
// Periods reset at 00:00 and 12:00 UTC; resets are lazy, applied on
// the next call that observes a boundary crossing.
type Manager struct {
	mu sync.Mutex

	symbols        map[string]config.SymbolConfig
	maxDailyTotal  int
	maxPeriodTotal int

	dailyBySymbol map[string]int
	dailyTotal    int
	periodTotal   int
	day           time.Time
	period        time.Time

	now    func() time.Time
	logger zerolog.Logger
}

// NewManager creates a risk manager over the instrument table.
// maxDailyTotal caps accepted trades per UTC day across all symbols,
// maxPeriodTotal caps them per half-day period.
func NewManager(symbols map[string]config.SymbolConfig, maxDailyTotal, maxPeriodTotal int) *Manager {
	return &Manager{
		symbols:        symbols,
		maxDailyTotal:  maxDailyTotal,
		maxPeriodTotal: maxPeriodTotal,
		dailyBySymbol:  make(map[string]int),
		now:            func() time.Time { return time.Now().UTC() },
		logger:         log.With().Str("component", "risk").Logger(),
	}
}

// Assess validates the candidate against risk limits and, when it
// passes, computes the suggested position size. The assessment never
// mutates trade counters; call RegisterTrade after the signal is
// actually accepted.
func (m *Manager) Assess(sig *models.CandidateSignal, balance float64) models.RiskAssessment {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()

	reject := func(reason string) models.RiskAssessment {
		m.logger.Warn().
			Str("symbol", sig.Symbol).
			Str("direction", string(sig.Direction)).
			Str("reason", reason).
			Msg("Signal rejected by risk manager")
		return models.RiskAssessment{Approved: false, Reason: reason}
	}

	if sig.Entry == sig.Stop {
		return reject("invalid entry or stop: zero risk distance")
	}
	if balance <= 0 {
		return reject(fmt.Sprintf("invalid account balance: %.2f", balance))
	}

	cfg, ok := m.symbols[sig.Symbol]
	if !ok {
		return reject(fmt.Sprintf("no risk configuration for symbol %s", sig.Symbol))
	}

	rr := sig.RewardRisk()
	if rr < cfg.MinRewardRisk {
		return reject(fmt.Sprintf("poor reward:risk ratio: %.2f < %.2f", rr, cfg.MinRewardRisk))
	}

	riskPct := cfg.RiskPct
	if riskPct > cfg.MaxRiskPct {
		return reject(fmt.Sprintf("configured risk %.2f%% exceeds ceiling %.2f%%", riskPct, cfg.MaxRiskPct))
	}

	if m.dailyBySymbol[sig.Symbol] >= cfg.MaxDailyTrades {
		return reject(fmt.Sprintf("daily trade limit reached for %s: %d", sig.Symbol, cfg.MaxDailyTrades))
	}
	if m.dailyTotal >= m.maxDailyTotal {
		return reject(fmt.Sprintf("daily trade limit reached: %d", m.maxDailyTotal))
	}
	if m.periodTotal >= m.maxPeriodTotal {
		return reject(fmt.Sprintf("period limit reached: %d", m.maxPeriodTotal))
	}

	riskAmount := balance * riskPct / 100
	riskPoints := math.Abs(sig.Entry-sig.Stop) / cfg.Point
	if riskPoints <= 0 {
		return reject("invalid entry or stop: zero risk distance")
	}

	lot := riskAmount / (riskPoints * cfg.ContractSize * cfg.Point)
	var warnings []string

	if cfg.LotStep > 0 {
		// Small epsilon so float noise in the stop distance cannot
		// push an exact multiple down a whole step.
		lot = math.Floor(lot/cfg.LotStep+1e-9) * cfg.LotStep
	}
	if lot < cfg.MinLot {
		warnings = append(warnings, fmt.Sprintf("computed lot %.4f below minimum, raised to %.2f", lot, cfg.MinLot))
		lot = cfg.MinLot
	}
	if lot > cfg.MaxLot {
		warnings = append(warnings, fmt.Sprintf("computed lot %.4f above maximum, capped at %.2f", lot, cfg.MaxLot))
		lot = cfg.MaxLot
	}

	// After clamping, recompute the money actually at risk.
	maxLoss := lot * riskPoints * cfg.ContractSize * cfg.Point
	actualRiskPct := maxLoss / balance * 100
	rewardPoints := sig.RewardDistance() / cfg.Point
	expectedProfit := lot * rewardPoints * cfg.ContractSize * cfg.Point

	if rr < 2.0 {
		warnings = append(warnings, fmt.Sprintf("reward:risk %.2f is below 2.0", rr))
	}
	if actualRiskPct > 1.0 {
		warnings = append(warnings, fmt.Sprintf("actual risk %.2f%% exceeds 1%% of balance", actualRiskPct))
	}

	m.logger.Info().
		Str("symbol", sig.Symbol).
		Float64("lot", lot).
		Float64("risk_amount", maxLoss).
		Float64("risk_pct", actualRiskPct).
		Float64("reward_risk", rr).
		Msg("Signal approved by risk manager")

	return models.RiskAssessment{
		Approved: true,
		Parameters: models.RiskParameters{
			SuggestedLot:   lot,
			RiskAmount:     riskAmount,
			RewardRisk:     rr,
			MaxLoss:        maxLoss,
			ExpectedProfit: expectedProfit,
			RiskPct:        actualRiskPct,
		},
		Warnings: warnings,
	}
}

// RegisterTrade counts an accepted trade against the daily and period
// ceilings. The ceilings are re-validated under the same lock as the
// increment: concurrent evaluations of different symbols share these
// counters, and the check inside Assess can go stale before the
// accepting goroutine gets here. A failed reservation returns an error
// naming the ceiling and leaves all counters untouched.
func (m *Manager) RegisterTrade(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()

	if cfg, ok := m.symbols[symbol]; ok && m.dailyBySymbol[symbol] >= cfg.MaxDailyTrades {
		return fmt.Errorf("daily trade limit reached for %s: %d", symbol, cfg.MaxDailyTrades)
	}
	if m.dailyTotal >= m.maxDailyTotal {
		return fmt.Errorf("daily trade limit reached: %d", m.maxDailyTotal)
	}
	if m.periodTotal >= m.maxPeriodTotal {
		return fmt.Errorf("period limit reached: %d", m.maxPeriodTotal)
	}

	m.dailyBySymbol[symbol]++
	m.dailyTotal++
	m.periodTotal++

	m.logger.Debug().
		Str("symbol", symbol).
		Int("symbol_daily", m.dailyBySymbol[symbol]).
		Int("daily_total", m.dailyTotal).
		Int("period_total", m.periodTotal).
		Msg("Trade registered")
	return nil
}

// Counters reports the current daily and period totals.
func (m *Manager) Counters() (daily, period int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	return m.dailyTotal, m.periodTotal
}

// rollover resets counters when the clock has crossed a day or
// half-day boundary. Baselines come from the active clock on first
// use, not from construction time, so a clock installed via SetClock
// governs them from the start. Callers must hold m.mu.
func (m *Manager) rollover() {
	now := m.now()
	if m.day.IsZero() {
		m.day = dayStart(now)
		m.period = periodStart(now)
		return
	}
	if day := dayStart(now); day.After(m.day) {
		m.day = day
		m.dailyTotal = 0
		m.dailyBySymbol = make(map[string]int)
		m.logger.Info().Time("day", day).Msg("Daily trade counters reset")
	}
	if period := periodStart(now); period.After(m.period) {
		m.period = period
		m.periodTotal = 0
		m.logger.Info().Time("period", period).Msg("Period trade counter reset")
	}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func periodStart(t time.Time) time.Time {
	hour := 0
	if t.Hour() >= 12 {
		hour = 12
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.UTC)
}

// SetClock overrides the wall clock, for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
