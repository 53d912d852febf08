package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"tokenvesting/core"
	"tokenvesting/core/audit"
	"tokenvesting/observability"
	telemetry "tokenvesting/observability/otel"
)

const serviceName = "vestingd"

// ServerConfig configures the JSON-RPC server.
type ServerConfig struct {
	Auth      AuthConfig
	RateLimit RateLimit
	// Journal is optional; audit_verify reports an error when it is nil.
	Journal *audit.Journal
	Logger  *slog.Logger
	// ReadHeaderTimeout bounds header reads on accepted connections.
	ReadHeaderTimeout time.Duration
}

// Server exposes the vesting engine over JSON-RPC, plus health, metrics and a
// websocket event stream.
type Server struct {
	node    *core.Node
	journal *audit.Journal
	auth    *Authenticator
	limiter *RateLimiter
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics interface {
		Observe(method string, code int, duration time.Duration)
	}

	readHeaderTimeout time.Duration

	serverMu   sync.Mutex
	httpServer *http.Server
	closed     bool
}

// NewServer wires the server around node.
func NewServer(node *core.Node, cfg ServerConfig) (*Server, error) {
	if node == nil {
		return nil, errors.New("rpc: node required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.ReadHeaderTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Server{
		node:              node,
		journal:           cfg.Journal,
		auth:              NewAuthenticator(cfg.Auth),
		limiter:           NewRateLimiter(cfg.RateLimit),
		logger:            logger,
		tracer:            telemetry.Tracer(serviceName + "/rpc"),
		metrics:           observability.ModuleMetrics(),
		readHeaderTimeout: timeout,
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.With(s.limiter.Middleware).Post("/rpc", s.handle)
	r.Get("/ws/events", s.handleEventsWS)

	return otelhttp.NewHandler(r, serviceName)
}

// Serve accepts connections on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	if listener == nil {
		return errors.New("rpc: listener required")
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}
	s.serverMu.Lock()
	if s.closed {
		s.serverMu.Unlock()
		_ = listener.Close()
		return nil
	}
	s.httpServer = srv
	s.serverMu.Unlock()

	s.logger.Info("json-rpc server listening", slog.String("addr", listener.Addr().String()))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("rpc: serve: %w", err)
	}
	return nil
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc: listen %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	srv := s.httpServer
	s.closed = true
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if _, err := s.node.Engine().Owner(); err != nil {
		http.Error(w, "engine unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
