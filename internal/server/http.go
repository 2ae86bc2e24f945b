package server

import (
	"context"
	"io"
	"log/slog"
	"time"

	"resumelens/internal/ai"
	"resumelens/internal/analysis"
	"resumelens/internal/config"
	appErrors "resumelens/internal/errors"
	"resumelens/internal/observability"

	"github.com/go-playground/validator/v10"
)

// AnalyzeRequest is the body of POST /analyze
type AnalyzeRequest struct {
	ResumeText string `json:"resume_text" validate:"required"`
	JobPosting string `json:"job_posting,omitempty"`
	CacheKey   string `json:"cache_key,omitempty" validate:"omitempty,max=256"`
}

// JobPostingRequest is the body of POST /analyze/job
type JobPostingRequest struct {
	JobPosting string `json:"job_posting" validate:"required"`
}

// PairRequest is the body of POST /analyze/match and POST /generate/tailor
type PairRequest struct {
	ResumeText string `json:"resume_text" validate:"required"`
	JobPosting string `json:"job_posting" validate:"required"`
}

// CoverLetterRequest is the body of POST /generate/cover-letter
type CoverLetterRequest struct {
	ResumeText string   `json:"resume_text" validate:"required"`
	JobPosting string   `json:"job_posting" validate:"required"`
	Style      string   `json:"style,omitempty" validate:"omitempty,cover_letter_style"`
	Emphasis   []string `json:"emphasis,omitempty" validate:"omitempty,max=10,dive,required,max=200"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// ModelStatus reports model availability and breaker state for health endpoints
type ModelStatus interface {
	ModelInfo(ctx context.Context) map[config.Operation]*ai.ModelInfo
	CircuitBreakerStats() map[string]any
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Logger *appErrors.Logger

	analysis      *analysis.Service
	models        ModelStatus
	om            *observability.ObservabilityManager
	validate      *validator.Validate
	promptWatcher *PromptWatcher
	startedAt     time.Time
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig

	// Analysis and Models are built from the application configuration by
	// Start when left nil.
	Analysis *analysis.Service
	Models   ModelStatus
}

// NewServer creates a new HTTP server instance
func NewServer(appConfig *config.Config, cfg ServerConfig, logger *appErrors.Logger) *Server {
	apiKeyMap := make(map[string]bool, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	if appConfig == nil {
		appConfig = &config.Config{}
	}
	if logger == nil {
		logger = appErrors.NewLoggerWithWriter(io.Discard, slog.LevelError)
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
		analysis:       cfg.Analysis,
		models:         cfg.Models,
		validate:       newRequestValidator(),
		startedAt:      time.Now(),
	}
}

// healthCheckTimeout bounds the model checks behind /ready
func (s *Server) healthCheckTimeout() time.Duration {
	hc := s.AppConfig.Observability.HealthCheck
	if hc.AIModelCheckTimeout > 0 {
		return hc.AIModelCheckTimeout
	}
	if hc.Timeout > 0 {
		return hc.Timeout
	}
	return 10 * time.Second
}
