package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"resumelens/internal/config"
	appErrors "resumelens/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// modelCheckTimeout bounds availability checks used by health endpoints
const modelCheckTimeout = 10 * time.Second

// contentGenerator is the slice of the genai client the provider calls
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// GeminiProvider implements ModelGateway for Google Gemini, for one operation
type GeminiProvider struct {
	models         contentGenerator
	config         *config.OperationAIConfig
	operation      config.Operation
	circuitBreaker *AICircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *appErrors.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

var (
	_ ModelGateway   = (*GeminiProvider)(nil)
	_ HealthReporter = (*GeminiProvider)(nil)
)

// NewGeminiProvider creates a Gemini provider for one operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operation config.Operation, logger *appErrors.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeMissingAPIKey,
			fmt.Sprintf("No API key configured for operation %s", operation), nil)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: *cfg.Timeout},
	})
	if err != nil {
		return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return newGeminiProvider(client.Models, cfg, operation, logger), nil
}

func newGeminiProvider(models contentGenerator, cfg *config.OperationAIConfig, operation config.Operation, logger *appErrors.Logger) *GeminiProvider {
	return &GeminiProvider{
		models:         models,
		config:         cfg,
		operation:      operation,
		circuitBreaker: NewAICircuitBreaker(operation, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(operation, cfg, logger),
		logger:         logger,
		sleep:          sleepContext,
	}
}

// Generate sends prompt to the configured model and returns the reply text.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := g.config.Model
	if opts.ModelID != "" {
		model = opts.ModelID
	}
	operationName := string(g.operation)

	tracer := otel.Tracer("resumelens.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, *g.config.Timeout)
	defer cancel()

	genaiConfig := g.buildConfig(opts)
	userPrompt := prompt
	if opts.SystemPrompt != "" {
		if *g.config.UseSystemPrompts {
			genaiConfig.SystemInstruction = genai.NewContentFromText(opts.SystemPrompt, genai.RoleUser)
		} else {
			userPrompt = opts.SystemPrompt + "\n\n" + prompt
		}
	}

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
		attribute.String("ai.operation", operationName),
		attribute.Int("input.prompt_length", len(prompt)),
		attribute.Bool("ai.json_response", opts.JSON),
	)
	if genaiConfig.Temperature != nil {
		span.SetAttributes(attribute.Float64("ai.temperature", float64(*genaiConfig.Temperature)))
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.models.GenerateContent(ctx, model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to generate content for "+operationName, err).
			WithContext("model", model)
	}

	if usage := extractTokenUsage(result); usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
		if opts.OnUsage != nil {
			opts.OnUsage(usage)
		}
	}

	text := result.Text()
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("output.reply_length", len(text)),
	)
	return text, nil
}

// buildConfig merges per-call options over the operation configuration
func (g *GeminiProvider) buildConfig(opts GenerateOptions) *genai.GenerateContentConfig {
	genaiConfig := &genai.GenerateContentConfig{}

	// An explicit per-call temperature wins, zero included
	switch {
	case opts.Temperature != nil:
		t := *opts.Temperature
		genaiConfig.Temperature = &t
	case g.config.Temperature != nil && *g.config.Temperature > 0:
		t := *g.config.Temperature
		genaiConfig.Temperature = &t
	}

	maxTokens := g.config.MaxTokens
	if opts.MaxTokens != nil {
		maxTokens = opts.MaxTokens
	}
	if maxTokens != nil && *maxTokens > 0 {
		genaiConfig.MaxOutputTokens = *maxTokens
	}

	if opts.JSON {
		genaiConfig.ResponseMIMEType = "application/json"
	}
	return genaiConfig
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"operation", string(g.operation),
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"operation", string(g.operation),
		"display_name", modelInfo.DisplayName)

	return modelInfo
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := *g.config.MaxRetries
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			if err := g.sleep(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"max_attempts", maxRetries+1)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

// backoffDelay doubles from one second per attempt, adds up to 10% jitter and
// caps at 30 seconds.
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, 30*time.Second)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isRetryableError reports network failures and transient HTTP statuses
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return isRetryableStatus(apiErr.Code)
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return isRetryableStatus(genaiErr.Code)
	}

	return false
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy(),
	}
}

// Close releases provider resources
func (g *GeminiProvider) Close() error {
	return nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
