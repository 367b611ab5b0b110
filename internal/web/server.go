// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package web exposes the authentication service over HTTP. Handlers are a
// thin status-mapping layer; all auth semantics live in internal/auth.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/observability"
)

const sessionCookie = "session_id"

// Server serves the public auth endpoints and the protected API subtree.
type Server struct {
	addr          string
	svc           *auth.Service
	strategy      auth.Strategy
	metrics       *observability.Metrics
	excludedPaths []string

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// Options configures a Server beyond its required dependencies.
type Options struct {
	// Metrics receives per-outcome counters when set.
	Metrics *observability.Metrics
	// ExcludedPaths bypass authentication on the protected subtree.
	ExcludedPaths []string
}

// NewServer creates a web server for the given service and strategy.
func NewServer(addr string, svc *auth.Service, strategy auth.Strategy, opts Options) (*Server, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if strategy == nil {
		return nil, oops.Errorf("auth strategy is required")
	}
	return &Server{
		addr:          addr,
		svc:           svc,
		strategy:      strategy,
		metrics:       opts.Metrics,
		excludedPaths: opts.ExcludedPaths,
	}, nil
}

// Handler builds the route table. Exposed for httptest-based tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /users", s.handleRegister)
	mux.HandleFunc("POST /sessions", s.handleLogin)
	mux.HandleFunc("DELETE /sessions", s.handleLogout)
	mux.HandleFunc("GET /profile", s.handleProfile)
	mux.HandleFunc("POST /reset_password", s.handleResetToken)
	mux.HandleFunc("PUT /reset_password", s.handleUpdatePassword)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/status", s.handleStatus)
	api.HandleFunc("GET /api/v1/me", s.handleMe)
	mux.Handle("/api/v1/", s.requireAuth(api))

	return s.countRequests(mux)
}

// Start begins serving. Same contract as the observability server: the
// returned channel reports a serve failure after startup and closes on
// graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_web_server").Wrap(err)
		}
	}

	slog.Info("web server stopped")
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
