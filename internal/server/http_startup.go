package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"resumelens/internal/ai"
	"resumelens/internal/analysis"
	"resumelens/internal/cache"
	"resumelens/internal/extract"
	"resumelens/internal/observability"
)

const shutdownTimeout = 30 * time.Second

// Start runs the server until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)
	s.om = om

	closeServices, err := s.initializeServices()
	if err != nil {
		return err
	}
	defer closeServices()

	s.startPromptWatcher()

	httpServer := s.setupHTTPServer()
	s.displayServerInfo()

	return s.startWithGracefulShutdown(ctx, httpServer)
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)
	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return om, nil
}

// shutdownObservability flushes exporters and stops the metrics endpoint
func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// initializeServices builds the model gateway and the analysis service unless
// they were injected. The returned func releases whatever was built here.
func (s *Server) initializeServices() (func(), error) {
	if s.analysis != nil {
		return func() {}, nil
	}

	gateway, err := ai.NewService(s.AppConfig, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI service: %w", err)
	}

	analysisCache, err := cache.NewFromConfig(s.AppConfig.Cache, s.Logger)
	if err != nil {
		_ = gateway.Close()
		return nil, fmt.Errorf("failed to create analysis cache: %w", err)
	}

	svc, err := analysis.New(analysis.Options{
		Gateway:       gateway,
		Composer:      ai.NewComposer(s.AppConfig.AI.CustomPrompts),
		Parser:        ai.NewResponseParser(s.Logger),
		Cache:         analysisCache,
		Extractor:     extract.New(s.AppConfig.Extraction, s.Logger),
		Observability: s.om,
		Logger:        s.Logger,
	})
	if err != nil {
		_ = gateway.Close()
		_ = analysisCache.Close()
		return nil, err
	}

	s.analysis = svc
	if s.models == nil {
		s.models = gateway
	}

	return func() {
		if err := svc.Close(); err != nil {
			s.Logger.LogError(err, "Failed to close analysis cache")
		}
		if err := gateway.Close(); err != nil {
			s.Logger.LogError(err, "Failed to close AI service")
		}
	}, nil
}

// startPromptWatcher hot-reloads prompt templates when enabled and at least
// one template is file-backed. Failures are logged; serving continues.
func (s *Server) startPromptWatcher() {
	reload := s.AppConfig.Server.PromptReload
	if !reload.Enabled {
		return
	}

	templates := s.analysis.Composer().Templates()
	files := templates.PromptFiles()
	if len(files) == 0 {
		s.Logger.Info("Prompt reload enabled but no prompt files are configured")
		return
	}

	s.promptWatcher = NewPromptWatcher(files, reload.DebounceDelay, s.reloadPrompts, s.Logger)
	if err := s.promptWatcher.Start(); err != nil {
		s.Logger.LogError(err, "Failed to start prompt watcher")
		s.promptWatcher = nil
	}
}

// reloadPrompts re-reads every prompt file and swaps the composer's templates.
// The previous templates stay active when any file fails to load.
func (s *Server) reloadPrompts() {
	ctx := context.Background()
	composer := s.analysis.Composer()
	current := composer.Templates()

	reloaded, err := current.Reload()
	if err != nil {
		s.Logger.LogError(err, "Prompt reload failed, keeping previous templates")
		s.om.RecordPromptReload(ctx, false)
		return
	}

	composer.SetTemplates(reloaded)
	s.om.RecordPromptReload(ctx, true)
	s.Logger.Info("Prompt templates reloaded", "files", len(reloaded.PromptFiles()))
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startWithGracefulShutdown serves until ctx is done or the listener fails
func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.performCleanup()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown drains in-flight requests, then releases resources
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.performCleanup()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) performCleanup() {
	if s.promptWatcher != nil {
		if err := s.promptWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop prompt watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
