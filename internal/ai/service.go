package ai

import (
	"context"
	"fmt"

	"resumelens/internal/config"
	"resumelens/internal/errors"
)

// Service routes generation requests to the provider configured for each
// operation. It is the ModelGateway used by the analysis layer.
type Service struct {
	providers map[config.Operation]ModelGateway
	models    map[config.Operation]string
	logger    *errors.Logger
}

var _ ModelGateway = (*Service)(nil)

// NewService creates one provider per operation
func NewService(cfg *config.Config, logger *errors.Logger) (*Service, error) {
	s := &Service{
		providers: make(map[config.Operation]ModelGateway, len(config.Operations)),
		models:    make(map[config.Operation]string, len(config.Operations)),
		logger:    logger,
	}

	for _, op := range config.Operations {
		opCfg, err := cfg.OperationConfig(op)
		if err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, err.Error(), err)
		}

		provider, err := newProvider(&opCfg, op, logger)
		if err != nil {
			return nil, err
		}
		s.providers[op] = provider
		s.models[op] = opCfg.Model
	}

	return s, nil
}

// newProvider picks the implementation named by cfg.Provider
func newProvider(cfg *config.OperationAIConfig, op config.Operation, logger *errors.Logger) (ModelGateway, error) {
	logger.Debug("Initializing AI provider",
		"provider", cfg.Provider,
		"operation", string(op),
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"max_tokens", *cfg.MaxTokens,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(cfg, op, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}

// newServiceWithProviders wires prebuilt gateways, used by tests
func newServiceWithProviders(providers map[config.Operation]ModelGateway, logger *errors.Logger) *Service {
	return &Service{providers: providers, models: map[config.Operation]string{}, logger: logger}
}

// Generate dispatches to the provider for opts.Operation. An empty operation
// means resume analysis.
func (s *Service) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	op := opts.Operation
	if op == "" {
		op = config.OperationAnalyze
		opts.Operation = op
	}

	provider, ok := s.providers[op]
	if !ok {
		return "", errors.NewAIError(errors.ErrCodeAIServiceFailed,
			fmt.Sprintf("No AI provider configured for operation %s", op), nil)
	}
	return provider.Generate(ctx, prompt, opts)
}

// Model returns the model configured for op
func (s *Service) Model(op config.Operation) string {
	return s.models[op]
}

// ModelInfo reports availability of the model behind each operation
func (s *Service) ModelInfo(ctx context.Context) map[config.Operation]*ModelInfo {
	infos := make(map[config.Operation]*ModelInfo, len(s.providers))
	for _, op := range config.Operations {
		provider, ok := s.providers[op]
		if !ok {
			continue
		}
		if reporter, ok := provider.(HealthReporter); ok {
			infos[op] = reporter.GetModelInfo(ctx)
		}
	}
	return infos
}

// CircuitBreakerStats collects breaker statistics per operation
func (s *Service) CircuitBreakerStats() map[string]any {
	stats := make(map[string]any, len(s.providers))
	for op, provider := range s.providers {
		if gp, ok := provider.(*GeminiProvider); ok {
			stats[string(op)] = gp.GetCircuitBreakerStats()
		}
	}
	return stats
}

// Close releases every provider
func (s *Service) Close() error {
	var firstErr error
	for op, provider := range s.providers {
		closer, ok := provider.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			s.logger.LogError(err, "Failed to close AI provider", "operation", string(op))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
