package ai

import (
	"errors"
	"testing"
	"time"

	"resumerank/internal/config"

	"google.golang.org/genai"
)

func enabledBreakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		MinRequests:      3,
		FailureThreshold: 0.6,
	}
}

func TestGenerationBreakerTripsAfterFailures(t *testing.T) {
	cb := NewGenerationBreaker("Test", enabledBreakerConfig(), nil)
	if cb == nil {
		t.Fatal("Circuit breaker should not be nil when enabled")
	}

	boom := errors.New("upstream unavailable")
	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(func() (*genai.GenerateContentResponse, error) { return nil, boom }); !errors.Is(err, boom) {
			t.Fatalf("Expected upstream error on call %d, got %v", i+1, err)
		}
	}

	if cb.IsHealthy() {
		t.Error("Expected breaker to be open after repeated failures")
	}

	called := false
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return &genai.GenerateContentResponse{}, nil
	})
	if err == nil {
		t.Error("Expected open breaker to reject the call")
	}
	if called {
		t.Error("Expected open breaker to skip the wrapped function")
	}

	stats := cb.Stats()
	if stats["state"] != "open" {
		t.Errorf("Expected state 'open', got '%v'", stats["state"])
	}
	if stats["name"] != "AI-Test" {
		t.Errorf("Expected name 'AI-Test', got '%v'", stats["name"])
	}
}

func TestModelBreakerIsLenient(t *testing.T) {
	cb := NewModelBreaker("Test", enabledBreakerConfig(), nil)

	boom := errors.New("not found")
	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() (*genai.Model, error) { return nil, boom })
	}
	if !cb.IsHealthy() {
		t.Error("Expected model breaker to stay closed below five requests")
	}

	_, _ = cb.Execute(func() (*genai.Model, error) { return nil, boom })
	if cb.IsHealthy() {
		t.Error("Expected model breaker to open after five failures")
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	disabled := config.CircuitBreakerConfig{Enabled: false}

	cb := NewGenerationBreaker("Disabled", disabled, nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}

	// A nil breaker passes calls straight through
	want := &genai.GenerateContentResponse{}
	got, err := cb.Execute(func() (*genai.GenerateContentResponse, error) { return want, nil })
	if err != nil || got != want {
		t.Errorf("Expected passthrough result, got %v, %v", got, err)
	}
	if !cb.IsHealthy() {
		t.Error("Expected nil breaker to report healthy")
	}
	if enabled, _ := cb.Stats()["enabled"].(bool); enabled {
		t.Error("Expected stats to report disabled")
	}

	var mb *ModelBreaker = NewModelBreaker("Disabled", disabled, nil)
	if mb != nil {
		t.Fatal("Model breaker should be nil when disabled")
	}
	if !mb.IsHealthy() {
		t.Error("Expected nil model breaker to report healthy")
	}
}
