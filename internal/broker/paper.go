package broker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Paper simulates order execution in memory. It fills every order at
// the requested entry price and keeps the order history for inspection.
type Paper struct {
	mu      sync.Mutex
	balance float64
	orders  []Order
	logger  zerolog.Logger
}

// NewPaper creates a paper executor with a starting balance.
func NewPaper(balance float64) *Paper {
	return &Paper{
		balance: balance,
		logger:  log.With().Str("component", "paper_broker").Logger(),
	}
}

// PlaceOrder records the order and reports an immediate fill.
func (p *Paper) PlaceOrder(ctx context.Context, order Order) (OrderResult, error) {
	p.mu.Lock()
	p.orders = append(p.orders, order)
	p.mu.Unlock()

	result := OrderResult{
		Ticket:   uuid.NewString(),
		Filled:   order.Lot,
		Price:    order.Entry,
		PlacedAt: time.Now().UTC(),
	}

	p.logger.Info().
		Str("symbol", order.Symbol).
		Str("direction", string(order.Direction)).
		Float64("lot", order.Lot).
		Str("ticket", result.Ticket).
		Msg("Paper order filled")

	return result, nil
}

// AccountBalance returns the simulated balance.
func (p *Paper) AccountBalance(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

// Orders returns a copy of the order history.
func (p *Paper) Orders() []Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Order, len(p.orders))
	copy(out, p.orders)
	return out
}
