package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperation runs fn inside an "ai.<operation>" span and records
// duration, request, error and token metrics according to configuration.
func (om *ObservabilityManager) TrackAIOperation(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	m := om.GetMetrics()

	ctx, span := om.Tracer("resumelens.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m.AIProcessingTime != nil && om.aiMetricsEnabled() {
		om.recordAIMetrics(ctx, m, operation, err, duration, result, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

func (om *ObservabilityManager) aiMetricsEnabled() bool {
	if om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.AIOperations.Enabled
}

// recordAIMetrics records all AI-related metrics
func (om *ObservabilityManager) recordAIMetrics(ctx context.Context, m *Metrics, operation string, err error, duration float64, result *AIOperationResult, span oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}

	if om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	om.recordTokenUsage(ctx, m, result, attrs, span)
	span.SetAttributes(attrs...)
}

// recordTokenUsage records token histograms and span attributes
func (om *ObservabilityManager) recordTokenUsage(ctx context.Context, m *Metrics, result *AIOperationResult, attrs []attribute.KeyValue, span oteltrace.Span) {
	if result == nil || result.TokenUsage == nil || m.AITokenUsage == nil {
		return
	}
	usage := result.TokenUsage

	if om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackTokenUsage {
		for _, tt := range []struct {
			tokenType string
			value     int64
		}{
			{"input", usage.InputTokens},
			{"output", usage.OutputTokens},
			{"total", usage.TotalTokens},
		} {
			tokenAttrs := append(attrs[:len(attrs):len(attrs)], attribute.String("token_type", tt.tokenType))
			m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(tokenAttrs...))
		}
	}

	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
}

func (om *ObservabilityManager) businessEnabled() bool {
	return om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.BusinessMetrics.Enabled
}

// RecordExtraction counts one extraction attempt
func (om *ObservabilityManager) RecordExtraction(ctx context.Context, format string, success bool, words int) {
	m := om.GetMetrics()
	if m.DocumentsExtracted == nil || !om.businessEnabled() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("format", format),
		attribute.Bool("success", success),
	)
	m.DocumentsExtracted.Add(ctx, 1, attrs)
	if success && om.trackContentSizes() {
		m.ExtractedWords.Record(ctx, int64(words), metric.WithAttributes(attribute.String("format", format)))
	}
}

func (om *ObservabilityManager) trackContentSizes() bool {
	return om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.BusinessMetrics.TrackContentSizes
}

// RecordAnalysis counts one structured analysis
func (om *ObservabilityManager) RecordAnalysis(ctx context.Context, mode, tier string, success bool) {
	m := om.GetMetrics()
	if m.AnalysesCompleted == nil || !om.businessEnabled() {
		return
	}
	m.AnalysesCompleted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("tier", tier),
		attribute.Bool("success", success),
	))
}

// RecordGeneration counts one free-text generation
func (om *ObservabilityManager) RecordGeneration(ctx context.Context, operation string, success bool) {
	m := om.GetMetrics()
	if m.GenerationsDone == nil || !om.businessEnabled() {
		return
	}
	m.GenerationsDone.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	))
}

// RecordParseDegraded counts a reply that was not a valid structured record
func (om *ObservabilityManager) RecordParseDegraded(ctx context.Context, mode, tier string) {
	m := om.GetMetrics()
	if m.ParseDegraded == nil {
		return
	}
	m.ParseDegraded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("tier", tier),
	))
}

// RecordCacheLookup counts a cache hit or miss
func (om *ObservabilityManager) RecordCacheLookup(ctx context.Context, backend string, hit bool) {
	m := om.GetMetrics()
	if m.CacheLookups == nil {
		return
	}
	if om.fullConfig != nil && !om.fullConfig.Observability.CustomMetrics.BusinessMetrics.TrackCache {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("result", result),
	))
}

// RecordRateLimitHit counts a rejected request
func (om *ObservabilityManager) RecordRateLimitHit(ctx context.Context, endpoint, method string) {
	m := om.GetMetrics()
	if m.RateLimitHits == nil {
		return
	}
	if om.fullConfig != nil && !om.fullConfig.Observability.CustomMetrics.Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("method", method),
	))
}

// RecordPromptReload counts a prompt template reload attempt
func (om *ObservabilityManager) RecordPromptReload(ctx context.Context, success bool) {
	m := om.GetMetrics()
	if m.PromptReloads == nil {
		return
	}
	m.PromptReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
