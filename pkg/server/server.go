package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/processing"
	"mercator-hq/relay/pkg/proxy/handlers"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/routing"
	"mercator-hq/relay/pkg/telemetry/health"
	"mercator-hq/relay/pkg/telemetry/metrics"
)

// Deps are the components the server routes requests to.
type Deps struct {
	Orchestrator *routing.Orchestrator
	Dispatcher   *routing.Dispatcher
	Processor    *processing.Processor

	// Health reports provider health for the status endpoint. Optional.
	Health handlers.HealthReporter

	// Attempts backs /api/attempts. When nil the endpoints are not mounted.
	Attempts handlers.AttemptReader

	// Checker serves /health, /ready and /version. Optional.
	Checker *health.Checker
	Version health.VersionInfo

	// Metrics records HTTP metrics and serves the scrape endpoint. Optional.
	Metrics *metrics.Collector

	// Tracer starts server spans. Defaults to a no-op tracer.
	Tracer trace.Tracer
}

// Server is the gateway's HTTP server.
type Server struct {
	config     *config.Config
	deps       Deps
	models     *handlers.ModelsHandler
	handler    http.Handler
	httpServer *http.Server

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// New creates a server. The orchestrator, dispatcher and processor are
// required.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Orchestrator == nil || deps.Dispatcher == nil || deps.Processor == nil {
		return nil, errors.New("orchestrator, dispatcher and processor are required")
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("")
	}

	s := &Server{config: cfg, deps: deps}
	s.models = handlers.NewModelsHandler(cfg.Models, deps.Processor, deps.Orchestrator.TargetModel())
	s.handler = s.setupRoutes()
	return s, nil
}

// Start listens on the configured address and serves until ctx is
// cancelled or Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	srvCfg := s.config.Server
	tlsCfg := s.config.Security.TLS

	s.httpServer = &http.Server{
		Addr:           srvCfg.ListenAddress,
		Handler:        s.handler,
		ReadTimeout:    srvCfg.ReadTimeout,
		WriteTimeout:   srvCfg.WriteTimeout,
		IdleTimeout:    srvCfg.IdleTimeout,
		MaxHeaderBytes: srvCfg.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}

	if tlsCfg.Enabled {
		tc, err := configureTLS(tlsCfg)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tc
	}

	ln, err := net.Listen("tcp", srvCfg.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", srvCfg.ListenAddress, err)
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway server",
			"address", ln.Addr().String(),
			"tls_enabled", tlsCfg.Enabled,
		)

		var err error
		if tlsCfg.Enabled {
			err = s.httpServer.ServeTLS(ln, tlsCfg.CertFile, tlsCfg.KeyFile)
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if ok {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			return err
		}
		return nil
	}
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		timeout := s.config.Server.ShutdownTimeout
		slog.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("gateway server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	d := s.deps

	mux.Handle("/api/chat", handlers.NewChatHandler(d.Orchestrator, d.Dispatcher, d.Processor, s.config.Gateway.MaxBodyBytes))
	mux.Handle("/api/models", s.models)
	mux.Handle("/api/providers/status", handlers.NewStatusHandler(d.Orchestrator, d.Dispatcher, d.Health))

	if d.Attempts != nil {
		attempts := handlers.NewAttemptsHandler(d.Attempts)
		mux.Handle("/api/attempts", attempts)
		mux.HandleFunc("/api/attempts/summary", attempts.Summary)
	}

	if d.Checker != nil {
		d.Checker.Register(mux, d.Version)
	}

	mws := []middleware.Middleware{
		middleware.RequestIDMiddleware,
		middleware.TracingMiddleware(d.Tracer),
		middleware.LoggingMiddleware,
	}
	if d.Metrics != nil && d.Metrics.Enabled() {
		mux.Handle(s.config.Telemetry.Metrics.Path, d.Metrics.Handler())
		mws = append(mws, middleware.MetricsMiddleware(d.Metrics))
	}
	mws = append(mws,
		middleware.RecoveryMiddleware,
		middleware.CORSMiddleware(s.config.Server.CORS),
		middleware.TimeoutMiddleware(s.config.Gateway.RequestTimeout),
	)

	return middleware.Chain(mux, mws...)
}

// configureTLS builds a TLS 1.3 configuration after checking the
// certificate and key files exist.
func configureTLS(cfg config.TLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" {
		return nil, fmt.Errorf("TLS cert file not specified")
	}
	if cfg.KeyFile == "" {
		return nil, fmt.Errorf("TLS key file not specified")
	}
	if _, err := os.Stat(cfg.CertFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS cert file not found: %s", cfg.CertFile)
	}
	if _, err := os.Stat(cfg.KeyFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS key file not found: %s", cfg.KeyFile)
	}

	return &tls.Config{MinVersion: tls.VersionTLS13}, nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Handler returns the configured HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetModels replaces the catalog served by /api/models.
func (s *Server) SetModels(models map[string]string) {
	s.models.SetModels(models)
}

// Processor returns the request processor the chat endpoint uses.
func (s *Server) Processor() *processing.Processor {
	return s.deps.Processor
}
