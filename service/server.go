package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/klappy/translation-helps-core/config"
	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/health"
	"github.com/klappy/translation-helps-core/metric"
)

// Reindexer rebuilds index entries for already-stored content. Satisfied by
// pipeline.Reindexer.
type Reindexer interface {
	Reindex(ctx context.Context) (int, error)
}

// Server is the diagnostic HTTP surface. It carries no content-serving
// responsibility: health, masked configuration, metrics, and the manual
// reindex trigger.
type Server struct {
	addr      string
	cfg       *config.SafeConfig
	monitor   *health.Monitor
	reindexer Reindexer
	registry  *metric.MetricsRegistry
	logger    *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
}

// Option configures a Server
type Option func(*Server)

// WithReindexer enables the POST /diag/reindex endpoint
func WithReindexer(r Reindexer) Option {
	return func(s *Server) {
		s.reindexer = r
	}
}

// WithMetricsRegistry enables the /metrics endpoint for the given registry
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates the diagnostic server. The monitor drives /healthz; the
// config is exposed masked on /diag/config.
func NewServer(addr string, cfg *config.SafeConfig, monitor *health.Monitor, opts ...Option) (*Server, error) {
	if addr == "" || cfg == nil || monitor == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Server", "NewServer", "addr, config and monitor required")
	}

	s := &Server{
		addr:    addr,
		cfg:     cfg,
		monitor: monitor,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler builds the diagnostic mux. Exposed separately from Start so tests
// can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /diag/config", s.handleConfig)
	mux.HandleFunc("POST /diag/reindex", s.handleReindex)
	if s.registry != nil {
		mux.Handle("GET /metrics", metric.Handler(s.registry))
	}
	return mux
}

// Start launches the HTTP server in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Server", "Start", "server already started")
	}

	s.httpServer = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		// Reindex runs synchronously inside the request; give it room.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	server := s.httpServer
	go func() {
		s.logger.Info("diagnostic server listening", "addr", s.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("diagnostic server error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// handleHealth returns the aggregated health of all monitored subsystems.
// Degraded still answers 200: the service keeps serving cached content while
// upstreams are down.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	systemHealth := s.monitor.AggregateHealth("helpsd")

	w.Header().Set("Content-Type", "application/json")
	if systemHealth.IsUnhealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(systemHealth); err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}

// handleConfig exposes the running configuration with credentials masked.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	masked := s.cfg.Get().Masked()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(masked); err != nil {
		s.logger.Error("failed to encode config response", "error", err)
	}
}

// handleReindex triggers a synchronous walk of stored extracted files back
// into the search index.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.reindexer == nil {
		http.Error(w, "reindex not available", http.StatusNotImplemented)
		return
	}

	s.logger.Info("manual reindex triggered", "remote", r.RemoteAddr)
	indexed, err := s.reindexer.Reindex(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		s.logger.Error("reindex failed", "error", err, "indexed", indexed)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "error",
			"indexed": indexed,
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"indexed": indexed,
	})
}
