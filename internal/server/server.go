// Package server exposes the model services over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/philipparndt/modelforge/internal/account"
	"github.com/philipparndt/modelforge/internal/auth"
	"github.com/philipparndt/modelforge/internal/billing"
	"github.com/philipparndt/modelforge/internal/chat"
	"github.com/philipparndt/modelforge/internal/config"
	"github.com/philipparndt/modelforge/internal/gallery"
	"github.com/philipparndt/modelforge/internal/metrics"
	"github.com/philipparndt/modelforge/internal/prompt"
	"github.com/philipparndt/modelforge/internal/search"
	"github.com/philipparndt/modelforge/internal/transform"
)

// Services are the backends of the API. Billing and Accounts may be nil.
type Services struct {
	Interpreter prompt.Interpreter
	Chat        *chat.Service
	Gallery     *gallery.Service
	Transform   *transform.Dispatcher
	Search      *search.Service
	Accounts    *account.Store
	Billing     *billing.Service
	Metrics     *metrics.Collector
	// Tokens verifies bearer tokens; nil serves every request as LocalUser
	Tokens    *auth.Tokens
	LocalUser auth.User
}

// Server is the HTTP API
type Server struct {
	cfg    config.ServerConfig
	svc    Services
	logger *zap.Logger
}

// New creates the server
func New(cfg config.ServerConfig, svc Services, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, svc: svc, logger: logger.With(zap.String("component", "server"))}
}

// publicPaths skip authentication
var publicPaths = []string{"/health", "/metrics", "/api/billing/webhook"}

// Handler builds the routed handler with its middleware chain. ctx bounds the
// background work of the middlewares.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	if s.svc.Metrics != nil {
		mux.Handle("GET /metrics", s.svc.Metrics.Handler())
	}

	mux.HandleFunc("GET /api/me", s.me)
	mux.HandleFunc("GET /api/chat", s.chatHistory)
	mux.HandleFunc("POST /api/chat", s.chatSubmit)
	mux.HandleFunc("POST /api/interpret", s.interpret)

	mux.HandleFunc("GET /api/models", s.listModels)
	mux.HandleFunc("POST /api/models", s.importModel)
	mux.HandleFunc("PATCH /api/models/{id}", s.renameModel)
	mux.HandleFunc("DELETE /api/models/{id}", s.deleteModel)
	mux.HandleFunc("GET /api/models/{id}/file", s.modelFile)
	mux.HandleFunc("POST /api/models/{id}/customize", s.customizeModel)

	mux.HandleFunc("GET /api/search", s.search)

	mux.HandleFunc("POST /api/billing/checkout", s.checkout)
	mux.HandleFunc("POST /api/billing/portal", s.portal)
	mux.HandleFunc("GET /api/billing/verify", s.verifyCheckout)
	mux.HandleFunc("POST /api/billing/webhook", s.webhook)

	return Chain(mux,
		Recovery(s.logger),
		RequestLogger(s.logger),
		Metrics(s.svc.Metrics),
		RateLimiter(ctx, s.cfg.RateLimitRPS, s.cfg.RateLimitBurst),
		Authenticate(s.svc.Tokens, s.svc.LocalUser, publicPaths, s.logger),
	)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on an existing listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(ctx),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
