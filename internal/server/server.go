package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/metrics"
	"github.com/oxbowmantella/frameforge/internal/registry"
	"github.com/oxbowmantella/frameforge/internal/version"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// Options configures the HTTP listener.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RateLimit       RateLimitConfig
	CleanupInterval time.Duration
}

func (o *Options) defaults() {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 15 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 30 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 60 * time.Second
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = time.Minute
	}
}

// Server is the FrameForge HTTP server.
type Server struct {
	httpServer *http.Server
	registry   *registry.Registry
	metrics    *metrics.Metrics
	limiter    *RateLimiter
	logger     *zap.Logger
	mux        *http.ServeMux
	opts       Options
	stop       chan struct{}
}

// New creates a Server with core and module routes mounted.
func New(opts Options, reg *registry.Registry, m *metrics.Metrics, logger *zap.Logger) *Server {
	opts.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		registry: reg,
		metrics:  m,
		limiter:  NewRateLimiter(opts.RateLimit, m),
		logger:   logger,
		mux:      mux,
		opts:     opts,
		stop:     make(chan struct{}),
	}
	s.registerCoreRoutes()
	s.mountPluginRoutes()

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	return s
}

// Handler is the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return Chain(s.mux,
		Recover(s.logger),
		Logging(s.logger.Named("http"), s.metrics),
		s.limiter.Middleware(),
	)
}

func (s *Server) registerCoreRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/plugins", s.handlePlugins)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// mountPluginRoutes registers module routes under /api/v1/{module}.
func (s *Server) mountPluginRoutes() {
	for name, routes := range s.registry.AllRoutes() {
		for _, route := range routes {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, name, route.Path)
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route",
				zap.String("plugin", name),
				zap.String("pattern", pattern),
			)
		}
	}
}

// Start serves until Shutdown. The rate limiter is swept in the background.
func (s *Server) Start() error {
	go s.sweep()
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

func (s *Server) sweep() {
	t := time.NewTicker(s.opts.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			n := s.limiter.Cleanup()
			s.logger.Debug("rate limiter swept", zap.Int("clients", n))
		}
	}
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return s.httpServer.Shutdown(ctx)
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string                         `json:"status"`
	Service string                         `json:"service"`
	Version map[string]string              `json:"version"`
	Plugins map[string]plugin.HealthStatus `json:"plugins,omitempty"`
}

// handleHealth reports "ok" unless a module is degraded or unhealthy. Only
// an unhealthy module turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:  "ok",
		Service: "frameforge",
		Version: version.Map(),
		Plugins: s.registry.Health(ctx),
	}
	code := http.StatusOK
	for _, h := range resp.Plugins {
		switch h.Status {
		case plugin.StatusUnhealthy:
			resp.Status = plugin.StatusUnhealthy
			code = http.StatusServiceUnavailable
		case plugin.StatusDegraded:
			if resp.Status == "ok" {
				resp.Status = plugin.StatusDegraded
			}
		}
	}
	w.Header().Set(version.Header, version.Short())
	WriteJSON(w, code, resp)
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(version.Header, version.Short())
	WriteJSON(w, http.StatusOK, s.registry.Statuses())
}
