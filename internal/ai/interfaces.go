package ai

import (
	"context"

	"resumelens/internal/config"
)

// ModelGateway sends one prompt to a generative model and returns its raw reply.
// Failures are *errors.AppError values with code AI_SERVICE_FAILED.
type ModelGateway interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// HealthReporter is implemented by gateways that can check model availability
type HealthReporter interface {
	GetModelInfo(ctx context.Context) *ModelInfo
}

// GenerateOptions tune a single call. Zero values use the operation's configuration.
type GenerateOptions struct {
	Operation    config.Operation
	SystemPrompt string
	Temperature  *float32
	MaxTokens    *int32
	ModelID      string
	// JSON requests an application/json reply
	JSON bool
	// OnUsage receives token usage when the provider reports it
	OnUsage func(*TokenUsage)
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}
