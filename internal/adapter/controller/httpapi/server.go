// Package httpapi exposes the triage triggers over HTTP
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/input"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/workflow"
)

// SocketServer attaches a websocket client to a user
type SocketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}

// Options configures optional parts of the server
type Options struct {
	Version string
	Sockets SocketServer                  // nil disables /ws
	Stats   func() workflow.StatsSnapshot // nil omits run counters from /health
	Logger  app.Logger
}

// Server represents the HTTP API server
type Server struct {
	mux    *http.ServeMux
	triage input.TriageUseCase
	opts   Options
	logger app.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(triage input.TriageUseCase, opts Options) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		triage: triage,
		opts:   opts,
		logger: opts.Logger,
	}
	if s.logger == nil {
		s.logger = app.GetLogger()
	}

	s.registerRoutes()
	return s
}

// registerRoutes sets up all HTTP routes with middleware
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.loggingMiddleware(s.handleHealth))

	s.mux.HandleFunc("/triage/start", s.loggingMiddleware(jsonContentTypeMiddleware(s.handleStart)))
	s.mux.HandleFunc("/triage/decision", s.loggingMiddleware(jsonContentTypeMiddleware(s.handleDecision)))
	s.mux.HandleFunc("/triage/state", s.loggingMiddleware(s.handleState))
	s.mux.HandleFunc("/approvals/callback", s.loggingMiddleware(jsonContentTypeMiddleware(s.handleCallback)))

	if s.opts.Sockets != nil {
		s.mux.HandleFunc("/ws", s.loggingMiddleware(s.handleSocket))
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
