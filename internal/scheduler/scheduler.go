// Package scheduler drives periodic market scans and housekeeping.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"signalpilot/config"
	"signalpilot/internal/broker"
	"signalpilot/internal/cooldown"
	"signalpilot/internal/engine"
	"signalpilot/internal/marketdata"
	"signalpilot/internal/models"
	"signalpilot/internal/notifier"
)

// Scheduler scans every configured symbol on a fixed interval and
// prunes stale cooldown state nightly. One scan evaluates all symbols
// concurrently; overlapping runs of the same job are skipped.
type Scheduler struct {
	cfg      *config.Config
	source   marketdata.Source
	engine   *engine.Engine
	filter   *cooldown.Filter
	notify   notifier.Notifier
	executor broker.Executor

	cron *cron.Cron

	mu       sync.Mutex
	scanning bool
	lastWarn map[string]time.Time

	logger zerolog.Logger
}

// New assembles the scheduler. executor may be nil when auto-execution
// is disabled everywhere.
func New(
	cfg *config.Config,
	source marketdata.Source,
	eng *engine.Engine,
	filter *cooldown.Filter,
	notify notifier.Notifier,
	executor broker.Executor,
) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		source:   source,
		engine:   eng,
		filter:   filter,
		notify:   notify,
		executor: executor,
		cron:     cron.New(),
		lastWarn: make(map[string]time.Time),
		logger:   log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the cron jobs and launches them. The scan interval
// comes from configuration; cleanup runs once a day at 03:00 UTC.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.cfg.ScanInterval)
	if _, err := s.cron.AddFunc(spec, func() { s.Scan(ctx) }); err != nil {
		return fmt.Errorf("scheduling scan job: %w", err)
	}

	if _, err := s.cron.AddFunc("0 3 * * *", func() {
		removed := s.filter.Cleanup(s.cfg.CooldownMaxAge)
		s.logger.Info().Int("removed", removed).Msg("Nightly cooldown cleanup")
	}); err != nil {
		return fmt.Errorf("scheduling cleanup job: %w", err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("interval", s.cfg.ScanInterval.String()).
		Int("symbols", len(s.cfg.Symbols)).
		Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// Scan evaluates every configured symbol once. It is exported so the
// main loop can run an immediate scan at startup.
func (s *Scheduler) Scan(ctx context.Context) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous scan still running, skipping")
		return
	}
	s.scanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	balance := s.balance(ctx)

	var wg sync.WaitGroup
	for _, symCfg := range s.cfg.Symbols {
		wg.Add(1)
		go func(symCfg config.SymbolConfig) {
			defer wg.Done()
			s.scanSymbol(ctx, symCfg, balance)
		}(symCfg)
	}
	wg.Wait()

	stats := s.engine.Stats()
	s.logger.Debug().
		Int("evaluated", stats.Evaluated).
		Int("accepted", stats.Accepted).
		Int("rejected", stats.Rejected).
		Msg("Scan completed")
}

func (s *Scheduler) scanSymbol(ctx context.Context, symCfg config.SymbolConfig, balance float64) {
	candles, err := s.source.Candles(ctx, symCfg.Symbol, s.cfg.Timeframe, s.cfg.CandleCount)
	if err != nil {
		s.warnUpstream(symCfg.Symbol, err)
		return
	}

	decision, err := s.engine.Evaluate(ctx, symCfg.Symbol, candles, balance)
	if err != nil {
		s.warnUpstream(symCfg.Symbol, err)
		return
	}

	if !decision.Accepted {
		return
	}

	s.notify.NotifySignal(decision)

	if decision.AutoExecute && s.executor != nil {
		s.execute(ctx, decision)
	}
}

func (s *Scheduler) execute(ctx context.Context, d models.Decision) {
	order := broker.Order{
		Symbol:    d.Symbol,
		Direction: d.Signal.Direction,
		Lot:       d.Risk.Parameters.SuggestedLot,
		Entry:     d.Signal.Entry,
		Stop:      d.Signal.Stop,
		Target:    d.Signal.Target,
		Comment:   d.Signal.Strategy,
	}

	result, err := s.executor.PlaceOrder(ctx, order)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", d.Symbol).Msg("Auto-execution failed")
		return
	}

	s.logger.Info().
		Str("symbol", d.Symbol).
		Str("ticket", result.Ticket).
		Float64("filled", result.Filled).
		Msg("Order auto-executed")
}

// balance asks the broker for the live balance, falling back to the
// configured static balance when no broker is reachable.
func (s *Scheduler) balance(ctx context.Context) float64 {
	if s.executor == nil {
		return s.cfg.AccountBalance
	}
	balance, err := s.executor.AccountBalance(ctx)
	if err != nil || balance <= 0 {
		s.logger.Warn().Err(err).Float64("fallback", s.cfg.AccountBalance).Msg("Using configured account balance")
		return s.cfg.AccountBalance
	}
	return balance
}

// warnUpstream logs upstream failures at most once per five minutes per
// symbol so a dead feed does not flood the log on every scan.
func (s *Scheduler) warnUpstream(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastWarn[symbol]; ok && time.Since(last) < 5*time.Minute {
		return
	}
	s.lastWarn[symbol] = time.Now()

	evt := s.logger.Warn().Err(err).Str("symbol", symbol)
	if errors.Is(err, marketdata.ErrUnknownSymbol) {
		evt = s.logger.Error().Err(err).Str("symbol", symbol)
	}
	evt.Msg("Symbol scan failed")
}
