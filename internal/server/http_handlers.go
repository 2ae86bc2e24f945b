package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	appErrors "resumelens/internal/errors"
)

// healthHandler reports liveness. It never calls the model provider.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":         "healthy",
		"service":        "resumelens",
		"version":        s.Version,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	}
	if s.models != nil {
		response["circuit_breakers"] = s.models.CircuitBreakerStats()
	}
	s.writeJSON(w, r, http.StatusOK, response)
}

// readyHandler checks every configured model. Any unavailable model makes
// the service "degraded" with status 503.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumelens",
		"version": s.Version,
	}

	ready := s.analysis != nil
	if s.models != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.healthCheckTimeout())
		defer cancel()

		models := s.models.ModelInfo(ctx)
		for _, info := range models {
			if info == nil || !info.Available {
				ready = false
			}
		}
		response["ai_models"] = models
		response["circuit_breakers"] = s.models.CircuitBreakerStats()
	}

	status := http.StatusOK
	response["status"] = "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		response["status"] = "degraded"
	}
	s.writeJSON(w, r, status, response)
}

// statsHandler reports server limits, rate limiting and cache activity
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"service":          "resumelens",
		"version":          s.Version,
		"uptime_seconds":   int64(time.Since(s.startedAt).Seconds()),
		"max_request_size": s.MaxRequestSize,
		"auth_enabled":     len(s.APIKeys) > 0,
	}

	if s.RateLimiter != nil {
		stats["rate_limiting"] = s.RateLimiter.GetStats()
	}
	if s.RateLimit != nil {
		stats["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}
	if s.analysis != nil {
		stats["cache"] = s.analysis.CacheStats(r.Context())
	}
	if s.promptWatcher != nil {
		stats["prompt_reload"] = map[string]any{
			"running":       s.promptWatcher.IsRunning(),
			"watched_files": s.promptWatcher.GetWatchedFiles(),
		}
	}

	s.writeJSON(w, r, http.StatusOK, stats)
}

// parseJSONRequest decodes a JSON request body into v, rejecting unknown fields
func parseJSONRequest(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if tooLarge(err) {
			return requestTooLarge(err)
		}
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "Invalid JSON body", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.requestLogger(r).LogError(err, "Failed to encode response")
	}
}

// writeAppError writes err with the status its type and code map to
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := appErrors.AsAppError(err)
	if !ok {
		appErr = appErrors.NewInternalError("INTERNAL_ERROR", "Internal server error", err)
	}
	s.writeError(w, r, statusForError(appErr), appErr)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, appErr *appErrors.AppError) {
	logger := s.requestLogger(r)
	if status >= http.StatusInternalServerError {
		logger.LogError(appErr, "Request failed", "path", r.URL.Path, "status", status)
	} else {
		logger.Debug("Request rejected", "path", r.URL.Path, "status", status, "code", appErr.Code)
	}

	s.writeJSON(w, r, status, ErrorResponse{
		Error:     appErr.Message,
		Code:      appErr.Code,
		Type:      string(appErr.Type),
		RequestID: requestID(r.Context()),
	})
}

// statusForError maps application errors to HTTP statuses
func statusForError(appErr *appErrors.AppError) int {
	switch appErr.Code {
	case appErrors.ErrCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case appErrors.ErrCodeFileNotReadable:
		return http.StatusBadRequest
	case appErrors.ErrCodeExtractionFailed, appErrors.ErrCodeEmptyDocument:
		return http.StatusUnprocessableEntity
	case appErrors.ErrCodeFileTooLarge, appErrors.ErrCodeRequestTooLong:
		return http.StatusRequestEntityTooLarge
	case appErrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case appErrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case appErrors.ErrCodeAITimeout:
		return http.StatusGatewayTimeout
	}

	if stderrors.Is(appErr, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}

	switch appErr.Type {
	case appErrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case appErrors.ErrorTypeAI, appErrors.ErrorTypeNetwork:
		return http.StatusBadGateway
	case appErrors.ErrorTypeIO:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
