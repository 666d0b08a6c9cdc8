package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"signalpilot/config"
	"signalpilot/internal/broker"
	"signalpilot/internal/confidence"
	"signalpilot/internal/cooldown"
	"signalpilot/internal/engine"
	"signalpilot/internal/journal"
	"signalpilot/internal/marketdata"
	"signalpilot/internal/models"
	"signalpilot/internal/notifier"
	"signalpilot/internal/risk"
	"signalpilot/internal/scheduler"
	"signalpilot/internal/strategy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	log.Info().
		Int("symbols", len(cfg.Symbols)).
		Str("timeframe", cfg.Timeframe).
		Str("interval", cfg.ScanInterval.String()).
		Msg("Starting signal pipeline")

	if cfg.MarketDataURL == "" {
		log.Fatal().Msg("TERMINAL_URL is required")
	}

	source := marketdata.NewClient(marketdata.ClientOptions{
		BaseURL:        cfg.MarketDataURL,
		APIKey:         cfg.MarketDataKey,
		RequestTimeout: cfg.RequestTimeout,
	})

	var recorder journal.Recorder = journal.Noop{}
	if cfg.DatabaseDSN != "" {
		pg, err := journal.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pg.Close()
		recorder = pg
	} else {
		log.Warn().Msg("DATABASE_DSN not set, accepted signals will not be journaled")
	}

	symbols := cfg.SymbolTable()

	var notify notifier.Notifier = notifier.Noop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notifier.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, symbols)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create telegram notifier")
		}
		notify = tg
	} else {
		log.Warn().Msg("Telegram not configured, signal notifications disabled")
	}

	var executor broker.Executor
	if cfg.BrokerURL != "" {
		executor = broker.NewClient(broker.ClientOptions{
			BaseURL:        cfg.BrokerURL,
			RequestTimeout: cfg.RequestTimeout,
		})
	} else {
		log.Info().Msg("BROKER_URL not set, using paper execution")
		executor = broker.NewPaper(cfg.AccountBalance)
	}

	filter := cooldown.NewFilter(symbols)
	riskManager := risk.NewManager(symbols, cfg.MaxDailyTradesTotal, cfg.MaxPeriodTrades)
	eng := engine.New(symbols, strategy.NewRegistry(), confidence.NewScorer(symbols), filter, riskManager, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Replay recent journaled signals so cooldown windows survive a
	// restart instead of re-emitting immediately.
	for name := range symbols {
		entries, err := recorder.RecentSignals(ctx, name, 5)
		if err != nil {
			log.Warn().Err(err).Str("symbol", name).Msg("Could not replay journaled signals")
			continue
		}
		for _, e := range entries {
			filter.Restore(&models.CandidateSignal{
				Symbol:    e.Symbol,
				Direction: models.Direction(e.Direction),
				Entry:     e.Entry,
				Stop:      e.Stop,
				Target:    e.Target,
			}, models.Tier(e.Tier), e.RecordedAt)
		}
	}

	sched := scheduler.New(cfg, source, eng, filter, notify, executor)
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Initial scan so the first signal does not wait a full interval.
	go sched.Scan(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Info().Str("signal", sig.String()).Msg("Shutting down")
	cancel()
	sched.Stop()

	stats := eng.Stats()
	log.Info().
		Int("evaluated", stats.Evaluated).
		Int("accepted", stats.Accepted).
		Int("rejected", stats.Rejected).
		Msg("Final evaluation counters")
}
