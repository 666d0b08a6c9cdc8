package config

import (
	"testing"
	"time"

	"signalpilot/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SYMBOLS", "EURUSD,XAUUSD,BTCEUR")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Symbols) != 3 {
		t.Fatalf("Load() symbols = %d, want 3", len(cfg.Symbols))
	}
	if cfg.Timeframe != "M5" {
		t.Errorf("Load() timeframe = %q, want M5", cfg.Timeframe)
	}
	if cfg.ScanInterval != 90*time.Second {
		t.Errorf("Load() scan interval = %v, want 90s", cfg.ScanInterval)
	}

	eurusd, ok := cfg.Symbol("EURUSD")
	if !ok {
		t.Fatal("Symbol(EURUSD) not found")
	}
	if eurusd.GeneralCooldown != 600*time.Second {
		t.Errorf("EURUSD general cooldown = %v, want 600s", eurusd.GeneralCooldown)
	}
	if eurusd.DirectionCooldown != 900*time.Second {
		t.Errorf("EURUSD direction cooldown = %v, want 900s", eurusd.DirectionCooldown)
	}
	if eurusd.ShowTier != models.TierMediumHigh {
		t.Errorf("EURUSD show tier = %s, want MEDIUM-HIGH", eurusd.ShowTier)
	}

	gold, _ := cfg.Symbol("XAUUSD")
	if gold.GeneralCooldown != 1200*time.Second {
		t.Errorf("XAUUSD general cooldown = %v, want 1200s", gold.GeneralCooldown)
	}
	if gold.MaxRiskPct != 0.8 {
		t.Errorf("XAUUSD max risk = %v, want 0.8", gold.MaxRiskPct)
	}
}

func TestLoadSymbolOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "EURUSD")
	t.Setenv("EURUSD_COOLDOWN", "300")
	t.Setenv("EURUSD_RISK_PCT", "0.25")
	t.Setenv("EURUSD_AUTO_EXECUTE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	eurusd, _ := cfg.Symbol("EURUSD")
	if eurusd.GeneralCooldown != 300*time.Second {
		t.Errorf("override cooldown = %v, want 300s", eurusd.GeneralCooldown)
	}
	if eurusd.RiskPct != 0.25 {
		t.Errorf("override risk pct = %v, want 0.25", eurusd.RiskPct)
	}
	if !eurusd.AutoExecute {
		t.Error("override auto execute not applied")
	}
}

func TestLoadUnknownSymbol(t *testing.T) {
	t.Setenv("SYMBOLS", "EURUSD,USDJPY")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a symbol without instrument configuration")
	}
}

func TestSymbolLookupIsCaseInsensitive(t *testing.T) {
	t.Setenv("SYMBOLS", "eurusd")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := cfg.Symbol("eurusd"); !ok {
		t.Error("Symbol(eurusd) lowercase lookup failed")
	}

	table := cfg.SymbolTable()
	if _, ok := table["EURUSD"]; !ok {
		t.Error("SymbolTable() missing EURUSD key")
	}
}
