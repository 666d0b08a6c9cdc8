// Package broker places orders for auto-executed signals.
package broker

import (
	"context"
	"time"

	"signalpilot/internal/models"
)

// Order is a market order derived from an accepted signal.
type Order struct {
	Symbol    string           `json:"symbol"`
	Direction models.Direction `json:"direction"`
	Lot       float64          `json:"lot"`
	Entry     float64          `json:"entry"`
	Stop      float64          `json:"stop"`
	Target    float64          `json:"target"`
	Comment   string           `json:"comment"`
}

// OrderResult reports the outcome of a placed order.
type OrderResult struct {
	Ticket   string    `json:"ticket"`
	Filled   float64   `json:"filled"`
	Price    float64   `json:"price"`
	PlacedAt time.Time `json:"placed_at"`
}

// Executor places orders. AccountBalance feeds position sizing; when a
// broker is unreachable the caller falls back to the configured balance.
type Executor interface {
	PlaceOrder(ctx context.Context, order Order) (OrderResult, error)
	AccountBalance(ctx context.Context) (float64, error)
}
