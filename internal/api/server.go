// Package api serves backoff schedules, explanations and share links over
// HTTP, and streams the current default policy to websocket subscribers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avabackoff/internal/chart"
	"github.com/vyrodovalexey/avabackoff/internal/config"
	"github.com/vyrodovalexey/avabackoff/internal/form"
	"github.com/vyrodovalexey/avabackoff/internal/health"
	"github.com/vyrodovalexey/avabackoff/internal/observability"
	"github.com/vyrodovalexey/avabackoff/internal/render"
)

// State represents the server state.
type State int32

const (
	// StateStopped indicates the server is stopped.
	StateStopped State = iota
	// StateRunning indicates the server is running.
	StateRunning
	// StateStopping indicates the server is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Server is the HTTP API server.
type Server struct {
	cfg        *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	logger     observability.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	checker    *health.Checker
	limiter    *RateLimiter
	hub        *Hub
	sampler    *chart.Sampler
	version    string
	listenAddr string

	format *render.Formatter
	policy PolicyResponse
	mu     sync.RWMutex

	state atomic.Int32
}

// Option is a functional option for configuring the server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics the server records to and exposes.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithTracer sets the tracer used by the tracing middleware.
func WithTracer(tracer *observability.Tracer) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithSampler sets the sampler used for simulated policy series.
func WithSampler(sampler *chart.Sampler) Option {
	return func(s *Server) {
		s.sampler = sampler
	}
}

// NewServer creates a server for cfg. Routes are registered immediately so
// Handler can be used without listening.
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	s := &Server{
		cfg:    cfg,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = observability.NewMetrics(config.DefaultServiceName)
	}
	if s.tracer == nil {
		tracer, err := observability.NewTracer(observability.TracerConfig{ServiceName: cfg.Tracing.ServiceName})
		if err != nil {
			return nil, fmt.Errorf("failed to create tracer: %w", err)
		}
		s.tracer = tracer
	}

	s.format = render.NewFormatter(cfg.Locale)
	s.checker = health.NewChecker(s.version, s.logger)
	s.checker.RegisterCheck("policy", s.checkPolicy)
	s.hub = NewHub(func() any { return s.Policy() }, s.logger, s.metrics)
	s.policy = BuildPolicyResponse(cfg.Policy, s.sampler)

	if cfg.Server.RateLimit.Enabled {
		s.limiter = NewRateLimiter(
			cfg.Server.RateLimit.RequestsPerSecond,
			cfg.Server.RateLimit.Burst,
			WithRateLimiterLogger(s.logger),
			WithRateLimiterMetrics(s.metrics),
		)
	}

	s.engine = gin.New()
	s.setupRoutes()

	s.state.Store(int32(StateStopped))
	return s, nil
}

func (s *Server) setupRoutes() {
	s.engine.Use(
		Recovery(s.logger),
		RequestID(),
		Logging(s.logger),
		Tracing(s.tracer),
		Metrics(s.metrics),
	)
	if s.limiter != nil {
		s.engine.Use(s.limiter.Middleware())
	}

	s.engine.GET("/healthz", s.checker.HealthHandler())
	s.engine.GET("/readyz", s.checker.ReadinessHandler())
	if s.cfg.Metrics.Enabled {
		s.engine.GET(s.cfg.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.engine.Group("/api/v1")
	v1.POST("/validate", s.handleValidate)
	v1.POST("/schedule", s.handleSchedule)
	v1.POST("/explain", s.handleExplain)
	v1.POST("/series", s.handleSeries)
	v1.GET("/share", s.handleDecodeShare)
	v1.POST("/share", s.handleEncodeShare)
	v1.GET("/policy", s.handlePolicy)
	v1.GET("/stream", s.hub.Handler())
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// State returns the current server state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Policy returns the current default policy.
func (s *Server) Policy() PolicyResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// SetPolicy replaces the default policy and pushes it to stream
// subscribers.
func (s *Server) SetPolicy(values form.Values) PolicyResponse {
	resp := BuildPolicyResponse(values, s.sampler)

	s.mu.Lock()
	s.policy = resp
	s.mu.Unlock()

	if err := s.hub.Publish(resp); err != nil {
		s.logger.Error("failed to publish policy", observability.Error(err))
	}
	return resp
}

// UpdateConfig applies a reloaded configuration. Listener settings take
// effect on the next start; the locale and default policy apply at once.
func (s *Server) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	s.mu.Lock()
	s.cfg = cfg
	s.format = render.NewFormatter(cfg.Locale)
	s.mu.Unlock()

	resp := s.SetPolicy(cfg.Policy)
	s.metrics.RecordConfigReload(true)
	s.logger.Info("configuration applied",
		observability.String("locale", cfg.Locale),
		observability.Bool("policy_valid", resp.Valid),
		observability.String("query", resp.Query),
	)
}

// checkPolicy reports degraded while the default policy does not validate.
func (s *Server) checkPolicy() health.Check {
	p := s.Policy()
	if !p.Valid {
		return health.Check{
			Status:  health.StatusDegraded,
			Message: p.Errors.Messages(),
		}
	}
	return health.Check{Status: health.StatusHealthy}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateRunning)) {
		return errors.New("server is not in stopped state")
	}

	s.mu.RLock()
	serverCfg := s.cfg.Server
	s.mu.RUnlock()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", serverCfg.Address)
	if err != nil {
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("failed to listen on %s: %w", serverCfg.Address, err)
	}

	s.mu.Lock()
	s.listenAddr = ln.Addr().String()
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadTimeout:       serverCfg.ReadTimeout.Duration(),
		ReadHeaderTimeout: serverCfg.ReadTimeout.Duration(),
		WriteTimeout:      serverCfg.WriteTimeout.Duration(),
	}
	if s.limiter != nil {
		s.limiter.StartCleanup(DefaultCleanupInterval)
	}

	s.logger.Info("server started", observability.String("address", ln.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", observability.Error(err))
		}
	}()

	return nil
}

// Shutdown marks the server draining, disconnects stream subscribers and
// waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return nil
	}
	defer s.state.Store(int32(StateStopped))

	s.logger.Info("shutting down server")
	s.checker.SetDraining(true)
	s.hub.Close()
	if s.limiter != nil {
		s.limiter.Stop()
	}

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := s.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}

	s.logger.Info("server stopped")
	return errors.Join(errs...)
}

// Addr returns the listening address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listenAddr != "" {
		return s.listenAddr
	}
	return s.cfg.Server.Address
}

// ShutdownTimeout returns the configured graceful shutdown timeout.
func (s *Server) ShutdownTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Server.ShutdownTimeout.Duration()
}
