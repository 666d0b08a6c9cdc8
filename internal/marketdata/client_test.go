package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClient(ClientOptions{
		BaseURL:         url,
		RequestTimeout:  2 * time.Second,
		RequestsPerSec:  100,
		MaxRetries:      1,
		MaxRetryTimeout: 2 * time.Second,
	})
}

func TestCandlesSortsOldestFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "EURUSD" {
			t.Errorf("symbol query = %q, want EURUSD", got)
		}
		w.Header().Set("Content-Type", "application/json")
		// Deliberately newest first.
		w.Write([]byte(`{"status":"ok","candles":[
			{"time":"2026-03-02T10:10:00Z","open":1.1,"high":1.2,"low":1.0,"close":1.15,"volume":10},
			{"time":"2026-03-02T10:00:00Z","open":1.0,"high":1.1,"low":0.9,"close":1.05,"volume":10},
			{"time":"2026-03-02T10:05:00Z","open":1.05,"high":1.15,"low":0.95,"close":1.1,"volume":10}
		]}`))
	}))
	defer server.Close()

	candles, err := newTestClient(server.URL).Candles(context.Background(), "EURUSD", "M5", 3)
	if err != nil {
		t.Fatalf("Candles() error = %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("Candles() = %d candles, want 3", len(candles))
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].Time.Before(candles[i-1].Time) {
			t.Errorf("Candles() not sorted oldest first at index %d", i)
		}
	}
}

func TestCandlesEmptySeriesIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","candles":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Candles(context.Background(), "EURUSD", "M5", 100)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Candles() error = %v, want ErrUnavailable", err)
	}
}

func TestCandlesBridgeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"terminal not connected"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Candles(context.Background(), "EURUSD", "M5", 100)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Candles() error = %v, want ErrUnavailable", err)
	}
}

func TestCandlesUnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Candles(context.Background(), "NOPE", "M5", 100)
	if !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("Candles() error = %v, want ErrUnknownSymbol", err)
	}
}

func TestCandlesShortSeriesIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","candles":[
			{"time":"2026-03-02T10:00:00Z","open":1.0,"high":1.1,"low":0.9,"close":1.05,"volume":10}
		]}`))
	}))
	defer server.Close()

	candles, err := newTestClient(server.URL).Candles(context.Background(), "EURUSD", "M5", 100)
	if err != nil {
		t.Fatalf("Candles() error = %v, want short series returned without error", err)
	}
	if len(candles) != 1 {
		t.Errorf("Candles() = %d candles, want 1", len(candles))
	}
}
