// Package marketdata supplies candle series to the evaluation engine.
package marketdata

import (
	"context"
	"errors"

	"signalpilot/internal/models"
)

// ErrUnavailable means the upstream feed could not produce any data.
// It is the only condition the engine surfaces as a Go error; every
// other failure in the pipeline is a structured rejection.
var ErrUnavailable = errors.New("market data unavailable")

// ErrUnknownSymbol means the feed does not track the requested symbol.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Source fetches the most recent candles for a symbol, oldest first.
type Source interface {
	Candles(ctx context.Context, symbol, timeframe string, count int) ([]models.Candle, error)
}
