package journal

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"signalpilot/internal/models"
)

// Postgres journals accepted signals into a PostgreSQL table.
type Postgres struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewPostgres opens the connection, verifies it and creates the table
// if it does not exist.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &Postgres{
		db:     db,
		logger: log.With().Str("component", "journal").Logger(),
	}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accepted_signals (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			strategy TEXT NOT NULL,
			direction TEXT NOT NULL,
			entry DOUBLE PRECISION NOT NULL,
			stop DOUBLE PRECISION NOT NULL,
			target DOUBLE PRECISION NOT NULL,
			lot DOUBLE PRECISION NOT NULL,
			tier TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			auto_trade BOOLEAN NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)
	`)

	return err
}

// RecordSignal writes an accepted decision. Rejections are not journaled.
func (p *Postgres) RecordSignal(ctx context.Context, d models.Decision) error {
	if !d.Accepted || d.Signal == nil {
		return nil
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO accepted_signals (
			id, symbol, strategy, direction, entry, stop, target,
			lot, tier, score, auto_trade, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`,
		d.Signal.ID, d.Signal.Symbol, d.Signal.Strategy, string(d.Signal.Direction),
		d.Signal.Entry, d.Signal.Stop, d.Signal.Target,
		d.Risk.Parameters.SuggestedLot, string(d.Confidence.Tier), d.Confidence.WeightedScore,
		d.AutoExecute, d.EvaluatedAt,
	)

	if err != nil {
		p.logger.Error().Err(err).Str("symbol", d.Symbol).Msg("Failed to journal signal")
		return err
	}

	return nil
}

// RecentSignals returns the latest journaled signals for a symbol,
// newest first.
func (p *Postgres) RecentSignals(ctx context.Context, symbol string, limit int) ([]Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, symbol, strategy, direction, entry, stop, target,
			lot, tier, score, auto_trade, recorded_at
		FROM accepted_signals
		WHERE symbol = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var recordedAt time.Time
		if err := rows.Scan(
			&e.ID, &e.Symbol, &e.Strategy, &e.Direction, &e.Entry, &e.Stop, &e.Target,
			&e.Lot, &e.Tier, &e.Score, &e.AutoTrade, &recordedAt,
		); err != nil {
			return nil, err
		}
		e.RecordedAt = recordedAt
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Close releases the database connection.
func (p *Postgres) Close() error {
	return p.db.Close()
}
