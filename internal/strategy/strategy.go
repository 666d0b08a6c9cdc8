// Package strategy contains the setup detectors. A detector looks at
// the last bar of a price series and decides whether a directional
// opportunity exists, recording every confirmation it evaluated so the
// scorer can see partial credit. Detectors are stateless across calls.
package strategy

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"signalpilot/config"
	"signalpilot/internal/models"
)

// Detector detects a trading setup on the supplied series.
// Implementations return nil when no setup exists, when the series is
// shorter than MinBars, or when the computed levels are inconsistent;
// they never return an error to the caller.
type Detector interface {
	Name() string
	MinBars() int
	Detect(candles []models.Candle, cfg config.SymbolConfig) *models.CandidateSignal
}

// Registry resolves strategy names to detector implementations at
// configuration time. There is no runtime replacement of detection
// functions; symbols select a strategy by name.
type Registry struct {
	detectors map[string]Detector
	logger    zerolog.Logger
}

// NewRegistry creates a registry with the built-in detectors installed.
func NewRegistry() *Registry {
	r := &Registry{
		detectors: make(map[string]Detector),
		logger:    log.With().Str("component", "strategy").Logger(),
	}
	r.Register(NewEURUSDBreakout())
	r.Register(NewXAUUSDReversal())
	r.Register(NewBTCEURMomentum())
	return r
}

// Register installs a detector under its name, replacing any previous
// detector with the same name.
func (r *Registry) Register(d Detector) {
	r.detectors[d.Name()] = d
}

// Lookup returns the detector registered under name.
func (r *Registry) Lookup(name string) (Detector, error) {
	d, ok := r.detectors[name]
	if !ok {
		return nil, fmt.Errorf("no detector registered for strategy %q", name)
	}
	return d, nil
}

// Detect runs the named detector. Panics inside a detector are treated
// as "no setup" and logged: one flaky computation must not halt the
// scan for other symbols. Candidates with inconsistent levels are
// discarded here as a final guard.
func (r *Registry) Detect(name string, candles []models.Candle, cfg config.SymbolConfig) (sig *models.CandidateSignal) {
	d, err := r.Lookup(name)
	if err != nil {
		r.logger.Error().Err(err).Str("symbol", cfg.Symbol).Msg("Strategy lookup failed")
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn().
				Str("strategy", name).
				Str("symbol", cfg.Symbol).
				Interface("panic", rec).
				Msg("Detector panicked, treating as no setup")
			sig = nil
		}
	}()

	sig = d.Detect(candles, cfg)
	if sig != nil && !sig.LevelsConsistent() {
		r.logger.Warn().
			Str("strategy", name).
			Str("symbol", cfg.Symbol).
			Float64("entry", sig.Entry).
			Float64("stop", sig.Stop).
			Float64("target", sig.Target).
			Msg("Discarding candidate with inconsistent levels")
		return nil
	}
	return sig
}
