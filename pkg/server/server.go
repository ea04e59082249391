package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	glerrors "github.com/gatherlens/gatherlens/pkg/errors"
)

// Server serves the capture API over HTTP. Route handlers are supplied by
// the caller; the server owns middleware, health endpoints and lifecycle.
type Server struct {
	cfg      *Config
	name     string
	version  string
	handlers map[string]http.HandlerFunc
	limiter  *rate.Limiter

	mu    sync.RWMutex
	ready bool
}

// Option configures a Server.
type Option func(*Server)

// WithName sets the service name reported on the default route.
func WithName(name string) Option {
	return func(s *Server) { s.name = name }
}

// WithVersion sets the reported service version.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *Config) Option {
	return func(s *Server) { s.cfg = cfg }
}

// WithHandler mounts route handlers. Keys are ServeMux patterns, e.g.
// "POST /v1/captures".
func WithHandler(handlers map[string]http.HandlerFunc) Option {
	return func(s *Server) {
		for pattern, h := range handlers {
			s.handlers[pattern] = h
		}
	}
}

// New creates a Server with the given options.
func New(opts ...Option) *Server {
	s := &Server{
		cfg:      DefaultConfig(),
		name:     "gatherlens",
		version:  "dev",
		handlers: map[string]http.HandlerFunc{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = rate.NewLimiter(s.cfg.RateLimit, s.cfg.RateLimitBurst)
	return s
}

// Run starts the server and blocks until the context is cancelled, a
// termination signal arrives or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", s.cfg.Address, s.cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	s.setReady(true)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.setReady(false)
		slog.Info("shutting down", slog.Duration("timeout", s.cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	}
}

func (s *Server) setReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// withMiddleware wraps a handler with request identification, rate
// limiting, version negotiation and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		r = r.WithContext(context.WithValue(r.Context(), contextKeyRequestID, requestID))
		w.Header().Set("X-Request-Id", requestID)
		w.Header().Set("X-Api-Version", negotiateAPIVersion(r))

		if !s.limiter.Allow() {
			WriteError(w, r, http.StatusTooManyRequests, glerrors.ErrCodeBackpressure,
				"rate limit exceeded", true, nil)
			return
		}

		start := time.Now()
		next(w, r)
		slog.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID,
			"elapsed", time.Since(start).Round(time.Microsecond),
		)
	}
}
