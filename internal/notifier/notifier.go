// Package notifier delivers accepted signals to Telegram. Delivery is
// fire-and-forget: a failed send is logged and never fails the
// evaluation that produced the signal.
package notifier

import (
	"fmt"
	"math"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"signalpilot/config"
	"signalpilot/internal/models"
)

// Notifier announces accepted decisions.
type Notifier interface {
	NotifySignal(d models.Decision)
}

// Telegram sends signal cards to a fixed chat.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	symbols map[string]config.SymbolConfig
	logger  zerolog.Logger
}

// NewTelegram creates the notifier and verifies the bot token. The
// symbol table supplies per-instrument price precision for the cards.
func NewTelegram(token string, chatID int64, symbols map[string]config.SymbolConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &Telegram{
		bot:     bot,
		chatID:  chatID,
		symbols: symbols,
		logger:  log.With().Str("component", "notifier").Logger(),
	}, nil
}

// NotifySignal sends the signal card. Rejections are ignored.
func (t *Telegram) NotifySignal(d models.Decision) {
	if !d.Accepted || d.Signal == nil {
		return
	}

	digits := 5
	if cfg, ok := t.symbols[d.Symbol]; ok {
		digits = PriceDigits(cfg.Point)
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatSignal(d, digits))
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error().Err(err).Str("symbol", d.Symbol).Msg("Failed to send signal notification")
		return
	}

	t.logger.Info().Str("symbol", d.Symbol).Msg("Signal notification sent")
}

// PriceDigits derives display precision from an instrument's point
// size: 0.0001 renders 4 decimals, 0.01 renders 2, a 1.0 point renders
// whole prices. Non-positive points fall back to 5.
func PriceDigits(point float64) int {
	if point <= 0 {
		return 5
	}
	digits := int(math.Round(-math.Log10(point)))
	if digits < 0 {
		digits = 0
	}
	if digits > 5 {
		digits = 5
	}
	return digits
}

// FormatSignal renders a plain-text signal card with the given price
// precision.
func FormatSignal(d models.Decision, digits int) string {
	sig := d.Signal
	var b strings.Builder

	arrow := "📈"
	if sig.Direction == models.Sell {
		arrow = "📉"
	}

	fmt.Fprintf(&b, "%s %s %s (%s)\n", arrow, sig.Symbol, sig.Direction, sig.Strategy)
	fmt.Fprintf(&b, "Entry: %.*f\n", digits, sig.Entry)
	fmt.Fprintf(&b, "Stop: %.*f\n", digits, sig.Stop)
	fmt.Fprintf(&b, "Target: %.*f\n", digits, sig.Target)
	fmt.Fprintf(&b, "Lot: %.2f | R:R %.2f | Risk %.2f%%\n",
		d.Risk.Parameters.SuggestedLot, d.Risk.Parameters.RewardRisk, d.Risk.Parameters.RiskPct)
	fmt.Fprintf(&b, "Confidence: %s (score %.2f)\n", d.Confidence.Tier, d.Confidence.WeightedScore)

	if sig.Rationale != "" {
		fmt.Fprintf(&b, "Why: %s\n", sig.Rationale)
	}
	for _, w := range d.Risk.Warnings {
		fmt.Fprintf(&b, "⚠️ %s\n", w)
	}
	if d.AutoExecute {
		b.WriteString("🤖 Auto-execution enabled\n")
	}
	if !sig.Expires.IsZero() {
		fmt.Fprintf(&b, "Valid until %s\n", sig.Expires.UTC().Format("15:04 MST"))
	}

	return b.String()
}

// Noop discards notifications. Used when no Telegram token is configured.
type Noop struct{}

func (Noop) NotifySignal(d models.Decision) {}
