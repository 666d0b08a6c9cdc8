// Package journal persists accepted signals for later review.
package journal

import (
	"context"
	"time"

	"signalpilot/internal/models"
)

// Recorder persists evaluation outcomes. Implementations must be safe
// for concurrent use; the engine records from per-symbol goroutines.
type Recorder interface {
	RecordSignal(ctx context.Context, d models.Decision) error
	RecentSignals(ctx context.Context, symbol string, limit int) ([]Entry, error)
	Close() error
}

// Entry is a journaled accepted signal.
type Entry struct {
	ID         string
	Symbol     string
	Strategy   string
	Direction  string
	Entry      float64
	Stop       float64
	Target     float64
	Lot        float64
	Tier       string
	Score      float64
	AutoTrade  bool
	RecordedAt time.Time
}

// Noop discards everything. Used when no database is configured.
type Noop struct{}

func (Noop) RecordSignal(ctx context.Context, d models.Decision) error { return nil }

func (Noop) RecentSignals(ctx context.Context, symbol string, limit int) ([]Entry, error) {
	return nil, nil
}

func (Noop) Close() error { return nil }
