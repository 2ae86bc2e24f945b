package ai

import (
	"errors"
	"testing"
	"time"

	"resumelens/internal/config"

	"google.golang.org/genai"
)

func breakerConfig(maxRequests, minRequests uint32, threshold float64) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "test-model",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      maxRequests,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      minRequests,
			FailureThreshold: threshold,
		},
	}
}

func TestIndependentCircuitBreakerConfigurations(t *testing.T) {
	analyzeCB := NewAICircuitBreaker(config.OperationAnalyze, breakerConfig(3, 3, 0.6), nil)
	matchCB := NewAICircuitBreaker(config.OperationMatch, breakerConfig(5, 2, 0.7), nil)
	tailorCB := NewAICircuitBreaker(config.OperationTailor, breakerConfig(4, 5, 0.5), nil)

	tests := []struct {
		name         string
		cb           *AICircuitBreaker
		expectedName string
	}{
		{"AnalyzeCircuitBreaker", analyzeCB, "AI-analyze"},
		{"MatchCircuitBreaker", matchCB, "AI-match"},
		{"TailorCircuitBreaker", tailorCB, "AI-tailor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := tt.cb.GetStats()

			name, ok := stats["name"].(string)
			if !ok {
				t.Fatal("Circuit breaker name not found")
			}
			if name != tt.expectedName {
				t.Errorf("Expected circuit breaker name '%s', got '%s'", tt.expectedName, name)
			}

			state, ok := stats["state"].(string)
			if !ok {
				t.Fatal("Circuit breaker state not found")
			}
			if state != "closed" {
				t.Errorf("Expected initial state 'closed', got '%s'", state)
			}

			if enabled, _ := stats["enabled"].(bool); !enabled {
				t.Error("Circuit breaker should be enabled")
			}
			if !tt.cb.IsHealthy() {
				t.Error("Circuit breaker should be healthy initially")
			}
		})
	}

	t.Run("IndependentInstances", func(t *testing.T) {
		if analyzeCB == matchCB || analyzeCB == tailorCB || matchCB == tailorCB {
			t.Error("Each operation should get its own circuit breaker")
		}
	})
}

func TestCircuitBreakerTrips(t *testing.T) {
	cb := NewAICircuitBreaker(config.OperationAnalyze, breakerConfig(1, 2, 0.5), nil)
	failure := errors.New("upstream down")

	calls := 0
	fail := func() (*genai.GenerateContentResponse, error) {
		calls++
		return nil, failure
	}

	for range 2 {
		if _, err := cb.Execute(fail); !errors.Is(err, failure) {
			t.Fatalf("Expected upstream error, got %v", err)
		}
	}

	if cb.IsHealthy() {
		t.Fatal("Circuit breaker should be open after repeated failures")
	}

	if _, err := cb.Execute(fail); err == nil {
		t.Fatal("Expected open circuit to reject the call")
	}
	if calls != 2 {
		t.Errorf("Expected open circuit to skip the call, got %d calls", calls)
	}
}

func TestModelCircuitBreakerIsLenient(t *testing.T) {
	cb := NewModelCircuitBreaker(config.OperationAnalyze, breakerConfig(1, 1, 0.1), nil)
	fail := func() (*genai.Model, error) { return nil, errors.New("not found") }

	for range 4 {
		_, _ = cb.ExecuteModel(fail)
	}
	if !cb.IsModelHealthy() {
		t.Error("Model breaker should stay closed below five requests")
	}

	_, _ = cb.ExecuteModel(fail)
	if cb.IsModelHealthy() {
		t.Error("Model breaker should open after five failures")
	}

	stats := cb.GetModelStats()
	if name := stats["name"]; name != "AI-Model-analyze" {
		t.Errorf("Expected model breaker name 'AI-Model-analyze', got %v", name)
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	disabledConfig := &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "test-model",
	}

	cb := NewAICircuitBreaker(config.OperationCoverLetter, disabledConfig, nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}
	if mcb := NewModelCircuitBreaker(config.OperationCoverLetter, disabledConfig, nil); mcb != nil {
		t.Fatal("Model circuit breaker should be nil when disabled")
	}

	// A nil breaker passes calls straight through
	called := false
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return &genai.GenerateContentResponse{}, nil
	})
	if err != nil || !called {
		t.Errorf("Expected passthrough call, got called=%t err=%v", called, err)
	}
	if !cb.IsHealthy() {
		t.Error("Disabled breaker should report healthy")
	}
	if enabled := cb.GetStats()["enabled"]; enabled != false {
		t.Errorf("Expected enabled=false, got %v", enabled)
	}
}
