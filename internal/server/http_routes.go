package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	appErrors "resumelens/internal/errors"
	"resumelens/internal/observability"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// Handler returns the routed API with request-scoped middleware applied
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.requestIDMiddleware(s.accessLogMiddleware(s.setupRoutes())))
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	rateLimit := s.rateLimitMiddleware()
	sizeLimit := s.requestSizeLimitMiddleware()
	protect := func(route string, h http.HandlerFunc) http.Handler {
		return observability.ObservabilityMiddleware(s.om, route)(
			rateLimit(s.authMiddleware(sizeLimit(h))),
		)
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	mux.Handle("POST /extract", protect("api.extract", s.handleExtract))
	mux.Handle("POST /analyze", protect("api.analyze", s.handleAnalyze))
	mux.Handle("POST /analyze/document", protect("api.analyze.document", s.handleAnalyzeDocument))
	mux.Handle("POST /analyze/job", protect("api.analyze.job", s.handleAnalyzeJob))
	mux.Handle("POST /analyze/match", protect("api.analyze.match", s.handleAnalyzeMatch))
	mux.Handle("POST /generate/cover-letter", protect("api.generate.cover_letter", s.handleCoverLetter))
	mux.Handle("POST /generate/tailor", protect("api.generate.tailor", s.handleTailor))
	mux.Handle("DELETE /cache", protect("api.cache.invalidate", s.handleInvalidateCache))

	return mux
}

// requestIDMiddleware accepts a caller-supplied request ID or generates one
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestID returns the ID assigned by requestIDMiddleware
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestLogger scopes the server logger to one request
func (s *Server) requestLogger(r *http.Request) *appErrors.Logger {
	if id := requestID(r.Context()); id != "" {
		return s.Logger.With("request_id", id)
	}
	return s.Logger
}

// responseWrapper records the status code written by a handler
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (s *Server) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.requestLogger(r).Debug("HTTP request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", getClientIP(r))
	})
}

// requestAPIKey reads the X-API-Key header, falling back to a Bearer token
func requestAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// authMiddleware provides API key authentication. With no keys configured
// every request is accepted.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		logger := s.requestLogger(r)
		apiKey := requestAPIKey(r)
		if apiKey == "" {
			logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			s.writeError(w, r, http.StatusUnauthorized, appErrors.NewValidationError(appErrors.ErrCodeUnauthorized,
				"X-API-Key header or Authorization Bearer token required", nil))
			return
		}

		if !s.APIKeys[apiKey] {
			logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			s.writeError(w, r, http.StatusUnauthorized, appErrors.NewValidationError(appErrors.ErrCodeUnauthorized,
				"Invalid API key", nil))
			return
		}

		logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))
		next(w, r)
	}
}

// requestSizeLimitMiddleware limits the size of incoming request bodies
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}
			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
