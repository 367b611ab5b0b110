// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/auth"
)

type contextKey struct{}

var principalKey contextKey

// principalFrom returns the authenticated user stored by requireAuth, or nil.
func principalFrom(ctx context.Context) *auth.User {
	user, _ := ctx.Value(principalKey).(*auth.User)
	return user
}

// requireAuth guards a subtree with the configured strategy. Paths matching
// an exclusion pass through anonymously. Otherwise a missing Authorization
// header is 401 and bad credentials are 403; the resolved user rides the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.strategy.RequiresAuth(r.URL.Path, s.excludedPaths) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="gatehouse"`)
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := s.strategy.Principal(r.Context(), header)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "internal error")
			return
		}
		if user == nil {
			writeMessage(w, http.StatusForbidden, "Forbidden")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response code for the request counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// countRequests wraps the route table with the per-path request counter.
// No-op when the server runs without metrics.
func (s *Server) countRequests(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.HTTPRequestsTotal.
			WithLabelValues(r.URL.Path, fmt.Sprintf("%d", rec.status)).
			Inc()
	})
}
