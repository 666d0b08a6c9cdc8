// Package config loads all runtime configuration from the environment
// once at startup. Every per-instrument tunable lives in one
// SymbolConfig table consumed uniformly by the detectors, scorer,
// cooldown filter and risk manager; none of those read the environment
// themselves.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"signalpilot/internal/models"
)

// SymbolConfig holds the full tuning table for one instrument.
type SymbolConfig struct {
	Symbol   string
	Strategy string

	// Instrument metadata for lot sizing.
	Point        float64
	ContractSize float64
	MinLot       float64
	MaxLot       float64
	LotStep      float64

	// Cooldown / duplicate suppression.
	GeneralCooldown   time.Duration
	DirectionCooldown time.Duration
	ZoneSize          float64 // coarse price bucket width
	SameZoneTolerance float64 // price distance treated as the same zone
	MinMovement       float64 // minimum price movement vs last signal
	SimilarityTol     float64 // fingerprint tolerance, absolute price
	SimilarityFactor  int     // extended cooldown multiplier for near-identical signals

	// Risk limits.
	RiskPct        float64 // percent of balance risked per trade
	MaxRiskPct     float64 // hard ceiling; requested risk above this rejects
	MinRewardRisk  float64
	MaxDailyTrades int

	// Confidence gating.
	SetupWeight   float64
	ShowThreshold float64
	ShowTier      models.Tier
	AutoExecute   bool
}

// Config is the resolved application configuration.
type Config struct {
	LogLevel     string
	Symbols      []SymbolConfig
	Timeframe    string
	CandleCount  int
	ScanInterval time.Duration

	AccountBalance      float64
	MaxDailyTradesTotal int
	MaxPeriodTrades     int
	CooldownMaxAge      time.Duration

	MarketDataURL  string
	MarketDataKey  string
	BrokerURL      string
	RequestTimeout time.Duration

	TelegramToken  string
	TelegramChatID int64
	DatabaseDSN    string
}

// Load initializes configuration from environment variables, reading a
// .env file first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		LogLevel:            getEnvWithDefault("LOG_LEVEL", "info"),
		Timeframe:           getEnvWithDefault("TIMEFRAME", "M5"),
		CandleCount:         getEnvIntWithDefault("CANDLE_COUNT", 250),
		ScanInterval:        time.Duration(getEnvIntWithDefault("SCAN_INTERVAL", 90)) * time.Second,
		AccountBalance:      getEnvFloatWithDefault("ACCOUNT_BALANCE", 10000.0),
		MaxDailyTradesTotal: getEnvIntWithDefault("MAX_TRADES_PER_DAY", 5),
		MaxPeriodTrades:     getEnvIntWithDefault("MAX_TRADES_PER_PERIOD", 5),
		CooldownMaxAge:      time.Duration(getEnvIntWithDefault("COOLDOWN_MAX_AGE_HOURS", 24)) * time.Hour,
		MarketDataURL:       os.Getenv("TERMINAL_URL"),
		MarketDataKey:       os.Getenv("TERMINAL_API_KEY"),
		BrokerURL:           os.Getenv("BROKER_URL"),
		RequestTimeout:      time.Duration(getEnvIntWithDefault("REQUEST_TIMEOUT", 30)) * time.Second,
		TelegramToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:      int64(getEnvIntWithDefault("TELEGRAM_CHAT_ID", 0)),
		DatabaseDSN:         os.Getenv("DATABASE_DSN"),
	}

	symbols := strings.Split(getEnvWithDefault("SYMBOLS", "EURUSD,XAUUSD,BTCEUR"), ",")
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		sc, err := symbolDefaults(s)
		if err != nil {
			return nil, err
		}
		cfg.Symbols = append(cfg.Symbols, applySymbolOverrides(sc))
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols configured")
	}

	return cfg, nil
}

// Symbol returns the configuration for one instrument.
func (c *Config) Symbol(name string) (SymbolConfig, bool) {
	name = strings.ToUpper(name)
	for _, s := range c.Symbols {
		if s.Symbol == name {
			return s, true
		}
	}
	return SymbolConfig{}, false
}

// SymbolTable returns the instrument configurations keyed by symbol.
func (c *Config) SymbolTable() map[string]SymbolConfig {
	table := make(map[string]SymbolConfig, len(c.Symbols))
	for _, s := range c.Symbols {
		table[s.Symbol] = s
	}
	return table
}

// symbolDefaults returns the tuned per-instrument table. The numbers
// are instrument-specific on purpose: gold runs wider cooldowns and a
// tighter risk ceiling than EUR/USD, crypto the reverse.
func symbolDefaults(symbol string) (SymbolConfig, error) {
	switch symbol {
	case "EURUSD":
		return SymbolConfig{
			Symbol:            "EURUSD",
			Strategy:          "eurusd_breakout",
			Point:             0.0001,
			ContractSize:      100000,
			MinLot:            0.01,
			MaxLot:            0.5,
			LotStep:           0.01,
			GeneralCooldown:   600 * time.Second,
			DirectionCooldown: 900 * time.Second,
			ZoneSize:          0.0050,
			SameZoneTolerance: 0.0020,
			MinMovement:       0.0008,
			SimilarityTol:     0.0001,
			SimilarityFactor:  4,
			RiskPct:           0.5,
			MaxRiskPct:        1.0,
			MinRewardRisk:     1.5,
			MaxDailyTrades:    3,
			SetupWeight:       0.4,
			ShowThreshold:     0.50,
			ShowTier:          models.TierMediumHigh,
			AutoExecute:       false,
		}, nil
	case "XAUUSD":
		return SymbolConfig{
			Symbol:            "XAUUSD",
			Strategy:          "xauusd_reversal",
			Point:             0.01,
			ContractSize:      100,
			MinLot:            0.01,
			MaxLot:            0.3,
			LotStep:           0.01,
			GeneralCooldown:   1200 * time.Second,
			DirectionCooldown: 1800 * time.Second,
			ZoneSize:          50.0,
			SameZoneTolerance: 15.0,
			MinMovement:       15.0,
			SimilarityTol:     0.01,
			SimilarityFactor:  8,
			RiskPct:           0.5,
			MaxRiskPct:        0.8,
			MinRewardRisk:     1.5,
			MaxDailyTrades:    3,
			SetupWeight:       0.5,
			ShowThreshold:     0.60,
			ShowTier:          models.TierMediumHigh,
			AutoExecute:       false,
		}, nil
	case "BTCEUR":
		return SymbolConfig{
			Symbol:            "BTCEUR",
			Strategy:          "btceur_momentum",
			Point:             1.0,
			ContractSize:      1,
			MinLot:            0.01,
			MaxLot:            0.2,
			LotStep:           0.01,
			GeneralCooldown:   600 * time.Second,
			DirectionCooldown: 900 * time.Second,
			ZoneSize:          1000.0,
			SameZoneTolerance: 500.0,
			MinMovement:       200.0,
			SimilarityTol:     1.0,
			SimilarityFactor:  4,
			RiskPct:           0.5,
			MaxRiskPct:        1.5,
			MinRewardRisk:     1.5,
			MaxDailyTrades:    3,
			SetupWeight:       0.4,
			ShowThreshold:     0.45,
			ShowTier:          models.TierMediumHigh,
			AutoExecute:       false,
		}, nil
	default:
		return SymbolConfig{}, fmt.Errorf("symbol %s has no instrument configuration", symbol)
	}
}

// applySymbolOverrides lets operators tune individual instruments via
// environment variables like EURUSD_COOLDOWN or XAUUSD_RISK_PCT.
func applySymbolOverrides(sc SymbolConfig) SymbolConfig {
	prefix := sc.Symbol + "_"
	sc.GeneralCooldown = time.Duration(getEnvIntWithDefault(prefix+"COOLDOWN", int(sc.GeneralCooldown.Seconds()))) * time.Second
	sc.DirectionCooldown = time.Duration(getEnvIntWithDefault(prefix+"DIRECTION_COOLDOWN", int(sc.DirectionCooldown.Seconds()))) * time.Second
	sc.RiskPct = getEnvFloatWithDefault(prefix+"RISK_PCT", sc.RiskPct)
	sc.MaxRiskPct = getEnvFloatWithDefault(prefix+"MAX_RISK_PCT", sc.MaxRiskPct)
	sc.MinRewardRisk = getEnvFloatWithDefault(prefix+"MIN_RR_RATIO", sc.MinRewardRisk)
	sc.MaxDailyTrades = getEnvIntWithDefault(prefix+"MAX_DAILY_TRADES", sc.MaxDailyTrades)
	sc.MaxLot = getEnvFloatWithDefault(prefix+"MAX_LOT", sc.MaxLot)
	sc.MinMovement = getEnvFloatWithDefault(prefix+"MIN_MOVEMENT", sc.MinMovement)
	sc.AutoExecute = getEnvBoolWithDefault(prefix+"AUTO_EXECUTE", sc.AutoExecute)
	return sc
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
