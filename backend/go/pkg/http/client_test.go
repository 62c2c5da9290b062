package http

import (
	"ScamSentinel/backend/go/internal/config"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ScamSentinel/backend/go/pkg/circuitbreaker"
)

func newTestBreakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          "10s",
	}
}

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"score": 42.5, "detail": "ok"}`))
	}))
	defer server.Close()

	client, err := NewClient(newTestBreakerConfig(), 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	var out struct {
		Score  float64 `json:"score"`
		Detail string  `json:"detail"`
	}
	if err := client.GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.Score != 42.5 || out.Detail != "ok" {
		t.Errorf("Unexpected decoded body: %+v", out)
	}
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(newTestBreakerConfig(), 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	// First 2 requests fail against the server and trip the circuit.
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
		if _, err := client.Do(req); err == nil {
			t.Fatalf("Expected error on request %d", i+1)
		}
	}

	// The 3rd request should be blocked by the open circuit breaker.
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err = client.Do(req)
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
}

func TestClient_DisabledBreakerPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(config.CircuitBreakerConfig{Enabled: false}, time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}
