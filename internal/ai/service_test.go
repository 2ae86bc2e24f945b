package ai

import (
	"context"
	"testing"
	"time"

	"resumelens/internal/config"
	appErrors "resumelens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGateway struct {
	reply string
	opts  []GenerateOptions
}

func (r *recordingGateway) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	r.opts = append(r.opts, opts)
	return r.reply, nil
}

func TestServiceDispatchesByOperation(t *testing.T) {
	analyze := &recordingGateway{reply: "analyze"}
	tailor := &recordingGateway{reply: "tailor"}
	s := newServiceWithProviders(map[config.Operation]ModelGateway{
		config.OperationAnalyze: analyze,
		config.OperationTailor:  tailor,
	}, testLogger)

	reply, err := s.Generate(context.Background(), "p", GenerateOptions{Operation: config.OperationTailor})
	require.NoError(t, err)
	assert.Equal(t, "tailor", reply)

	reply, err = s.Generate(context.Background(), "p", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "analyze", reply)
	require.Len(t, analyze.opts, 1)
	assert.Equal(t, config.OperationAnalyze, analyze.opts[0].Operation)

	_, err = s.Generate(context.Background(), "p", GenerateOptions{Operation: config.OperationMatch})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeAIServiceFailed))
}

func testConfig() *config.Config {
	return &config.Config{
		AI: config.AIConfig{
			Provider:         "gemini",
			Model:            "global-model",
			Timeout:          60 * time.Second,
			APIKey:           "global-api-key",
			MaxRetries:       5,
			Temperature:      0.2,
			MaxTokens:        1500,
			UseSystemPrompts: true,
			Tailor: config.OperationAIConfig{
				Model:       "tailor-specific-model",
				Timeout:     timePtr(90 * time.Second),
				Temperature: float32Ptr(0.3),
			},
		},
	}
}

func TestNewServiceBuildsEveryOperation(t *testing.T) {
	s, err := NewService(testConfig(), testLogger)
	require.NoError(t, err)
	defer s.Close()

	for _, op := range config.Operations {
		_, ok := s.providers[op].(*GeminiProvider)
		assert.True(t, ok, "operation %s", op)
	}
	assert.Equal(t, "tailor-specific-model", s.Model(config.OperationTailor))
	assert.Equal(t, "global-model", s.Model(config.OperationMatch))

	stats := s.CircuitBreakerStats()
	assert.Len(t, stats, len(config.Operations))
}

func TestNewServiceErrors(t *testing.T) {
	t.Run("unsupported provider", func(t *testing.T) {
		cfg := testConfig()
		cfg.AI.CoverLetter.Provider = "openai"
		_, err := NewService(cfg, testLogger)
		require.Error(t, err)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeInvalidConfig))
	})

	t.Run("missing key", func(t *testing.T) {
		cfg := testConfig()
		cfg.AI.APIKey = ""
		_, err := NewService(cfg, testLogger)
		require.Error(t, err)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeMissingAPIKey))
	})
}
