package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpclient "signalpilot/internal/platform/http"
)

// Client places orders through the terminal bridge's HTTP API.
type Client struct {
	baseURL    string
	httpClient *httpclient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new broker client
type ClientOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new broker bridge client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpclient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}
	if httpOpts.Timeout == 0 {
		httpOpts.Timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    options.BaseURL,
		httpClient: httpclient.NewClient(httpOpts),
		logger:     log.With().Str("component", "broker_client").Logger(),
	}
}

// PlaceOrder submits a market order to the bridge.
func (c *Client) PlaceOrder(ctx context.Context, order Order) (OrderResult, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return OrderResult{}, fmt.Errorf("encoding order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return OrderResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		c.logger.Error().Err(err).Str("symbol", order.Symbol).Msg("Order placement failed")
		return OrderResult{}, fmt.Errorf("placing order: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return OrderResult{}, fmt.Errorf("reading response body: %w", err)
	}

	var result OrderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return OrderResult{}, fmt.Errorf("parsing order result: %w", err)
	}

	c.logger.Info().
		Str("symbol", order.Symbol).
		Str("direction", string(order.Direction)).
		Float64("lot", order.Lot).
		Str("ticket", result.Ticket).
		Msg("Order placed")

	return result, nil
}

// AccountBalance reads the current balance from the bridge.
func (c *Client) AccountBalance(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/account", nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("fetching account: %w", err)
	}
	defer resp.Body.Close()

	var account struct {
		Balance float64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return 0, fmt.Errorf("parsing account: %w", err)
	}

	return account.Balance, nil
}
