// Package server exposes the sync endpoint and the habit and insights REST
// surface over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/julianstephens/habitsync/internal/auth"
	"github.com/julianstephens/habitsync/internal/config"
	"github.com/julianstephens/habitsync/internal/logger"
	"github.com/julianstephens/habitsync/internal/serverstore"
	"github.com/julianstephens/habitsync/internal/syncserver"
)

const shutdownTimeout = 5 * time.Second

// Server handles authenticated client requests for every configured user.
type Server struct {
	cfg       *config.Config
	store     *serverstore.Store
	applier   *syncserver.Applier
	validator *auth.TokenValidator
	limiters  *limiterSet
	now       func() time.Time

	httpServer *http.Server
}

// New creates a server over an open store. cfg must already have its
// defaults applied.
func New(cfg *config.Config, store *serverstore.Store) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		applier:   syncserver.NewApplier(store),
		validator: auth.NewTokenValidator(cfg.Users),
		limiters:  newLimiterSet(cfg.RateLimitPerSec, cfg.RateLimitBurst),
		now:       time.Now,
	}
}

// Handler returns the root HTTP handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return logRequests(s.createMux())
}

func (s *Server) createMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.Handle("POST /api/sync", s.authenticated(s.handleSync))
	mux.Handle("GET /api/habits", s.authenticated(s.handleListHabits))
	mux.Handle("POST /api/habits", s.authenticated(s.handleCreateHabit))
	mux.Handle("PATCH /api/habits/{id}", s.authenticated(s.handleUpdateHabit))
	mux.Handle("DELETE /api/habits/{id}", s.authenticated(s.handleArchiveHabit))
	mux.Handle("POST /api/checkins", s.authenticated(s.handleSaveCheckin))
	mux.Handle("GET /api/checkins/{date}", s.authenticated(s.handleGetCheckin))
	mux.Handle("GET /api/insights/summary", s.authenticated(s.handleInsights))

	return mux
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()
	logger.Info("Sync server listening", "addr", ln.Addr().String(), "driver", s.store.Driver(), "users", len(s.cfg.Users))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("Shutting down sync server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		logger.Error("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
