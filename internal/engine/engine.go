// Package engine runs the evaluation pipeline: detect a setup, score
// its confidence, pass the cooldown filter, then the risk manager.
// Stages run in that fixed order and the first failure wins; a
// rejection is a normal structured outcome, not an error.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"signalpilot/config"
	"signalpilot/internal/confidence"
	"signalpilot/internal/cooldown"
	"signalpilot/internal/journal"
	"signalpilot/internal/models"
	"signalpilot/internal/risk"
	"signalpilot/internal/strategy"
)

// Stats counts evaluation outcomes since startup.
type Stats struct {
	Evaluated  int
	Accepted   int
	Rejected   int
	Rejections map[models.RejectionKind]int
}

// Engine evaluates candle series into decisions. Evaluations for the
// same symbol are serialized; different symbols may run concurrently.
type Engine struct {
	symbols  map[string]config.SymbolConfig
	registry *strategy.Registry
	scorer   *confidence.Scorer
	filter   *cooldown.Filter
	risk     *risk.Manager
	recorder journal.Recorder

	mu         sync.Mutex
	symbolLock map[string]*sync.Mutex
	stats      Stats

	logger zerolog.Logger
}

// New wires the pipeline stages together. recorder may be journal.Noop.
func New(
	symbols map[string]config.SymbolConfig,
	registry *strategy.Registry,
	scorer *confidence.Scorer,
	filter *cooldown.Filter,
	riskManager *risk.Manager,
	recorder journal.Recorder,
) *Engine {
	return &Engine{
		symbols:    symbols,
		registry:   registry,
		scorer:     scorer,
		filter:     filter,
		risk:       riskManager,
		recorder:   recorder,
		symbolLock: make(map[string]*sync.Mutex),
		stats:      Stats{Rejections: make(map[models.RejectionKind]int)},
		logger:     log.With().Str("component", "engine").Logger(),
	}
}

// Evaluate runs the full pipeline for one symbol over a candle series
// (oldest first). Shared state is mutated only when the signal is
// accepted, so a rejected evaluation leaves cooldowns and trade
// counters untouched. The error return is reserved for upstream
// problems surfaced by the caller; pipeline verdicts come back as a
// Decision.
func (e *Engine) Evaluate(ctx context.Context, symbol string, candles []models.Candle, balance float64) (models.Decision, error) {
	lock := e.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	cfg, ok := e.symbols[symbol]
	if !ok {
		return e.finish(models.Rejected(symbol, models.RejectConfigError,
			fmt.Sprintf("no configuration for symbol %s", symbol))), nil
	}

	detector, err := e.registry.Lookup(cfg.Strategy)
	if err != nil {
		return e.finish(models.Rejected(symbol, models.RejectConfigError, err.Error())), nil
	}

	if len(candles) < detector.MinBars() {
		return e.finish(models.Rejected(symbol, models.RejectDataInsufficient,
			fmt.Sprintf("need %d candles, have %d", detector.MinBars(), len(candles)))), nil
	}

	sig := e.registry.Detect(cfg.Strategy, candles, cfg)
	if sig == nil {
		return e.finish(models.Rejected(symbol, models.RejectSetupNotFound, "no setup detected")), nil
	}
	if !sig.Expires.IsZero() && time.Now().UTC().After(sig.Expires) {
		return e.finish(models.Rejected(symbol, models.RejectSetupNotFound, "setup expired")), nil
	}

	conf := e.scorer.Score(sig)
	if !e.scorer.ShouldShow(conf, cfg) {
		return e.finish(models.Decision{
			Symbol:          symbol,
			Signal:          sig,
			Confidence:      conf,
			RejectionKind:   models.RejectConfirmationFailed,
			RejectionReason: fmt.Sprintf("confidence %s (score %.2f) below threshold %.2f", conf.Tier, conf.WeightedScore, cfg.ShowThreshold),
			EvaluatedAt:     time.Now().UTC(),
		}), nil
	}

	if ok, reason := e.filter.CanSignal(sig); !ok {
		return e.finish(models.Decision{
			Symbol:          symbol,
			Signal:          sig,
			Confidence:      conf,
			RejectionKind:   models.RejectDuplicateCooldown,
			RejectionReason: reason,
			EvaluatedAt:     time.Now().UTC(),
		}), nil
	}

	assessment := e.risk.Assess(sig, balance)
	if !assessment.Approved {
		return e.finish(models.Decision{
			Symbol:          symbol,
			Signal:          sig,
			Confidence:      conf,
			Risk:            assessment,
			RejectionKind:   models.RejectRisk,
			RejectionReason: assessment.Reason,
			EvaluatedAt:     time.Now().UTC(),
		}), nil
	}

	// Reserve the trade-count slot before anything else moves. The
	// ceilings are shared across symbols, so a concurrent evaluation
	// may have consumed the last slot since Assess checked it; a failed
	// reservation rejects without touching cooldown state.
	if err := e.risk.RegisterTrade(symbol); err != nil {
		return e.finish(models.Decision{
			Symbol:          symbol,
			Signal:          sig,
			Confidence:      conf,
			RejectionKind:   models.RejectRisk,
			RejectionReason: err.Error(),
			EvaluatedAt:     time.Now().UTC(),
		}), nil
	}

	decision := models.Decision{
		Symbol:      symbol,
		Accepted:    true,
		Signal:      sig,
		Confidence:  conf,
		Risk:        assessment,
		AutoExecute: e.scorer.ShouldAutoExecute(conf, cfg),
		EvaluatedAt: time.Now().UTC(),
	}

	e.filter.Register(sig, conf.Tier)

	if err := e.recorder.RecordSignal(ctx, decision); err != nil {
		// Journal failures must not retract an accepted signal.
		e.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to journal accepted signal")
	}

	e.logger.Info().
		Str("symbol", symbol).
		Str("direction", string(sig.Direction)).
		Str("strategy", sig.Strategy).
		Str("tier", string(conf.Tier)).
		Float64("score", conf.WeightedScore).
		Float64("lot", assessment.Parameters.SuggestedLot).
		Bool("auto", decision.AutoExecute).
		Msg("Signal accepted")

	return e.finish(decision), nil
}

// Stats returns a snapshot of the outcome counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := Stats{
		Evaluated:  e.stats.Evaluated,
		Accepted:   e.stats.Accepted,
		Rejected:   e.stats.Rejected,
		Rejections: make(map[models.RejectionKind]int, len(e.stats.Rejections)),
	}
	for k, v := range e.stats.Rejections {
		out.Rejections[k] = v
	}
	return out
}

func (e *Engine) finish(d models.Decision) models.Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.Evaluated++
	if d.Accepted {
		e.stats.Accepted++
	} else {
		e.stats.Rejected++
		e.stats.Rejections[d.RejectionKind]++
		e.logger.Debug().
			Str("symbol", d.Symbol).
			Str("kind", string(d.RejectionKind)).
			Str("reason", d.RejectionReason).
			Msg("Signal rejected")
	}
	return d
}

func (e *Engine) lockFor(symbol string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.symbolLock[symbol]
	if !ok {
		lock = &sync.Mutex{}
		e.symbolLock[symbol] = lock
	}
	return lock
}
