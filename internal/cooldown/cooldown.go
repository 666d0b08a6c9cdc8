// Package cooldown suppresses near-repeat signals. State is tracked
// per (symbol, direction) and per (symbol, price zone); a zone is a
// coarse price bucket so that "same level, different noise" signals
// are treated as one recurring opportunity.
//
// State lives in memory for the life of the process and is pruned by
// age. Expiry is lazy: there is no background timer, a cooling entry
// simply stops blocking once enough wall-clock time has elapsed at the
// next query.
package cooldown

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

type lastSignal struct {
	at     time.Time
	entry  float64
	stop   float64
	target float64
	zone   string
	tier   models.Tier
}

// Filter is the stateful cooldown/duplicate gate. Register is its only
// mutator and must be called exactly once per accepted signal, after
// every other filter has passed.
type Filter struct {
	mu         sync.Mutex
	symbols    map[string]config.SymbolConfig
	directions map[string]map[models.Direction]lastSignal
	zones      map[string]map[string]map[models.Direction]time.Time
	now        func() time.Time
	logger     zerolog.Logger
}

// NewFilter creates a filter over the resolved instrument table.
func NewFilter(symbols map[string]config.SymbolConfig) *Filter {
	return &Filter{
		symbols:    symbols,
		directions: make(map[string]map[models.Direction]lastSignal),
		zones:      make(map[string]map[string]map[models.Direction]time.Time),
		now:        func() time.Time { return time.Now().UTC() },
		logger:     log.With().Str("component", "cooldown").Logger(),
	}
}

// CanSignal checks whether the candidate may be emitted. Checks run in
// a fixed order and the first failure returns immediately with a
// specific human-readable reason; reasons are never aggregated.
func (f *Filter) CanSignal(sig *models.CandidateSignal) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg, ok := f.symbols[sig.Symbol]
	if !ok {
		// Unconfigured symbols are never throttled here; risk checks
		// will reject them anyway.
		return true, ""
	}

	now := f.now()
	byDir := f.directions[sig.Symbol]

	// 1. General symbol cooldown, any direction.
	for _, last := range byDir {
		since := now.Sub(last.at)
		if since < cfg.GeneralCooldown {
			return false, fmt.Sprintf("symbol cooldown active: %.0fs < %.0fs",
				since.Seconds(), cfg.GeneralCooldown.Seconds())
		}
	}

	// 2. Same-direction cooldown.
	if last, ok := byDir[sig.Direction]; ok {
		since := now.Sub(last.at)
		if since < cfg.DirectionCooldown {
			return false, fmt.Sprintf("direction cooldown active: %s %s, %.0fs < %.0fs",
				sig.Symbol, sig.Direction, since.Seconds(), cfg.DirectionCooldown.Seconds())
		}
	}

	// 3. Zone cooldown. The zone bucket cools for twice the direction
	// cooldown; price proximity to the previous signal (same zone by
	// tolerance, either direction) cools for half of it.
	zone := f.zone(cfg, sig.Entry)
	if zoneDirs, ok := f.zones[sig.Symbol][zone]; ok {
		if at, ok := zoneDirs[sig.Direction]; ok {
			since := now.Sub(at)
			zoneCooldown := 2 * cfg.DirectionCooldown
			if since < zoneCooldown {
				return false, fmt.Sprintf("zone cooldown active: %s %s, %.0fs < %.0fs",
					zone, sig.Direction, since.Seconds(), zoneCooldown.Seconds())
			}
		}
	}
	for _, last := range byDir {
		if math.Abs(sig.Entry-last.entry) <= cfg.SameZoneTolerance {
			since := now.Sub(last.at)
			sameZoneCooldown := cfg.DirectionCooldown / 2
			if since < sameZoneCooldown {
				return false, fmt.Sprintf("zone cooldown active: recent signal near %s, %.0fs < %.0fs",
					zone, since.Seconds(), sameZoneCooldown.Seconds())
			}
		}
	}

	// 4. Minimum price movement versus the last same-direction signal.
	// Distinct from the zone check: this catches micro-noise
	// re-triggers regardless of bucket boundaries.
	if last, ok := byDir[sig.Direction]; ok && last.entry > 0 {
		moved := math.Abs(sig.Entry - last.entry)
		if moved < cfg.MinMovement {
			return false, fmt.Sprintf("insufficient price movement: %.5f < %.5f since last %s signal",
				moved, cfg.MinMovement, sig.Direction)
		}
	}

	// 5. Fingerprint similarity: same direction with entry, stop and
	// target all within tolerance earns an extended cooldown.
	if last, ok := byDir[sig.Direction]; ok && f.similar(cfg, sig, last) {
		since := now.Sub(last.at)
		extended := time.Duration(cfg.SimilarityFactor) * cfg.GeneralCooldown
		if since < extended {
			return false, fmt.Sprintf("similar signal within %.5f tolerance: %.0fs < %.0fs",
				cfg.SimilarityTol, since.Seconds(), extended.Seconds())
		}
	}

	return true, ""
}

// Register records an accepted signal. It must never be called
// speculatively: the engine calls it only after every gate has passed.
func (f *Filter) Register(sig *models.CandidateSignal, tier models.Tier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(sig, tier, f.now())
}

// Restore replays a journaled signal into cooldown state with its
// original timestamp, so a process restart does not re-emit a signal
// whose cooldown window is still open. Entries older than the state
// already held for that direction are ignored.
func (f *Filter) Restore(sig *models.CandidateSignal, tier models.Tier, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if last, ok := f.directions[sig.Symbol][sig.Direction]; ok && last.at.After(at) {
		return
	}
	f.record(sig, tier, at)
}

// record writes the direction and zone state. Callers must hold f.mu.
func (f *Filter) record(sig *models.CandidateSignal, tier models.Tier, now time.Time) {
	cfg, ok := f.symbols[sig.Symbol]
	if !ok {
		return
	}

	zone := f.zone(cfg, sig.Entry)

	if f.directions[sig.Symbol] == nil {
		f.directions[sig.Symbol] = make(map[models.Direction]lastSignal)
	}
	f.directions[sig.Symbol][sig.Direction] = lastSignal{
		at:     now,
		entry:  sig.Entry,
		stop:   sig.Stop,
		target: sig.Target,
		zone:   zone,
		tier:   tier,
	}

	if f.zones[sig.Symbol] == nil {
		f.zones[sig.Symbol] = make(map[string]map[models.Direction]time.Time)
	}
	if f.zones[sig.Symbol][zone] == nil {
		f.zones[sig.Symbol][zone] = make(map[models.Direction]time.Time)
	}
	f.zones[sig.Symbol][zone][sig.Direction] = now

	f.logger.Info().
		Str("symbol", sig.Symbol).
		Str("direction", string(sig.Direction)).
		Float64("entry", sig.Entry).
		Str("zone", zone).
		Str("tier", string(tier)).
		Time("at", now).
		Msg("Signal registered in cooldown state")
}

// Cleanup removes entries older than maxAge, bounding memory growth
// over long runs. Returns the number of entries removed.
func (f *Filter) Cleanup(maxAge time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := f.now().Add(-maxAge)
	removed := 0

	for symbol, byDir := range f.directions {
		for dir, last := range byDir {
			if last.at.Before(cutoff) {
				delete(byDir, dir)
				removed++
			}
		}
		if len(byDir) == 0 {
			delete(f.directions, symbol)
		}
	}

	for symbol, zones := range f.zones {
		for zone, byDir := range zones {
			for dir, at := range byDir {
				if at.Before(cutoff) {
					delete(byDir, dir)
					removed++
				}
			}
			if len(byDir) == 0 {
				delete(zones, zone)
			}
		}
		if len(zones) == 0 {
			delete(f.zones, symbol)
		}
	}

	f.logger.Debug().Int("removed", removed).Msg("Cooldown cleanup completed")
	return removed
}

// TrackedSymbols returns how many symbols currently hold cooldown state.
func (f *Filter) TrackedSymbols() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.directions)
}

// zone buckets a price into the instrument's zone grid.
func (f *Filter) zone(cfg config.SymbolConfig, price float64) string {
	if cfg.ZoneSize <= 0 {
		return fmt.Sprintf("%s_%.5f", cfg.Symbol, price)
	}
	level := math.Round(price/cfg.ZoneSize) * cfg.ZoneSize
	return fmt.Sprintf("%s_%g", cfg.Symbol, level)
}

func (f *Filter) similar(cfg config.SymbolConfig, sig *models.CandidateSignal, last lastSignal) bool {
	tol := cfg.SimilarityTol
	return math.Abs(sig.Entry-last.entry) <= tol &&
		math.Abs(sig.Stop-last.stop) <= tol &&
		math.Abs(sig.Target-last.target) <= tol
}

// SetClock overrides the wall clock, for tests.
func (f *Filter) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}
