package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpclient "signalpilot/internal/platform/http"
	"signalpilot/internal/models"
)

// Client fetches candles from the terminal bridge's HTTP API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpclient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new bridge client
type ClientOptions struct {
	BaseURL         string
	APIKey          string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new bridge client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpclient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	// Apply defaults if not set
	if httpOpts.Timeout == 0 {
		httpOpts.Timeout = 30 * time.Second
	}
	if httpOpts.RequestsPerSec == 0 {
		httpOpts.RequestsPerSec = 5
	}

	return &Client{
		apiKey:     options.APIKey,
		baseURL:    options.BaseURL,
		httpClient: httpclient.NewClient(httpOpts),
		logger:     log.With().Str("component", "marketdata_client").Logger(),
	}
}

type candlesResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Candles []models.Candle `json:"candles"`
}

// Candles fetches the most recent candles for a symbol, oldest first.
// An empty series or an unreachable bridge maps to ErrUnavailable; a
// short series is returned as-is with a warning, and the caller's
// minimum-bar checks decide whether it is usable.
func (c *Client) Candles(ctx context.Context, symbol, timeframe string, count int) ([]models.Candle, error) {
	endpoint := fmt.Sprintf("%s/candles?symbol=%s&timeframe=%s&count=%d",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(timeframe), count)

	c.logger.Debug().Str("symbol", symbol).Str("timeframe", timeframe).Int("count", count).Msg("Fetching candles")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		var statusErr *httpclient.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
		}
		c.logger.Error().Err(err).Str("symbol", symbol).Msg("Bridge request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrUnavailable, err)
	}

	var data candlesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return nil, fmt.Errorf("%w: parsing JSON: %v", ErrUnavailable, err)
	}

	if data.Status == "error" {
		c.logger.Error().Str("message", data.Message).Str("symbol", symbol).Msg("Bridge API error")
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, data.Message)
	}

	if len(data.Candles) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("No candles in response")
		return nil, fmt.Errorf("%w: empty series for %s", ErrUnavailable, symbol)
	}

	// Sort oldest first for indicator calculations
	candles := data.Candles
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	if len(candles) < count {
		c.logger.Warn().
			Str("symbol", symbol).
			Int("requested", count).
			Int("received", len(candles)).
			Msg("Received fewer candles than requested")
	}

	c.logger.Debug().Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}
