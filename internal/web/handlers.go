// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "Bienvenue")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")
	if email == "" || password == "" {
		writeMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.svc.RegisterUser(r.Context(), email, password)
	switch {
	case errors.Is(err, auth.ErrAlreadyExists):
		s.countRegistration("conflict")
		writeMessage(w, http.StatusBadRequest, "email already registered")
		return
	case err != nil:
		s.countRegistration("error")
		errutil.LogError(slog.Default(), "registration failed", err)
		writeMessage(w, http.StatusBadRequest, "invalid email or password")
		return
	}

	s.countRegistration("created")
	writeJSON(w, http.StatusOK, map[string]string{
		"email":   user.Email,
		"message": "user created",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	ok, err := s.svc.ValidLogin(r.Context(), email, password)
	if err != nil {
		errutil.LogError(slog.Default(), "login check failed", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		s.countLogin("denied")
		writeMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sessionID, err := s.svc.CreateSession(r.Context(), email)
	if err != nil || sessionID == "" {
		errutil.LogError(slog.Default(), "session creation failed", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.countLogin("allowed")
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"email":   email,
		"message": "logged in",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := s.sessionUser(r)
	if user == nil {
		writeMessage(w, http.StatusForbidden, "no active session")
		return
	}

	if err := s.svc.DestroySession(r.Context(), user.ID); err != nil {
		errutil.LogError(slog.Default(), "logout failed", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	if s.metrics != nil {
		s.metrics.SessionsDestroyed.Inc()
	}
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := s.sessionUser(r)
	if user == nil {
		writeMessage(w, http.StatusForbidden, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": user.Email})
}

func (s *Server) handleResetToken(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	if email == "" {
		writeMessage(w, http.StatusBadRequest, "email is required")
		return
	}

	token, err := s.svc.ResetPasswordToken(r.Context(), email)
	switch {
	case errors.Is(err, auth.ErrUnknownUser):
		writeMessage(w, http.StatusForbidden, "email not registered")
		return
	case err != nil:
		errutil.LogError(slog.Default(), "reset token issue failed", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	if s.metrics != nil {
		s.metrics.ResetTokensIssued.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"email":       email,
		"reset_token": token,
	})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	token := r.FormValue("reset_token")
	newPassword := r.FormValue("new_password")
	if email == "" || token == "" || newPassword == "" {
		writeMessage(w, http.StatusBadRequest, "email, reset_token and new_password are required")
		return
	}

	err := s.svc.UpdatePassword(r.Context(), token, newPassword)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		writeMessage(w, http.StatusForbidden, "invalid reset token")
		return
	case err != nil:
		errutil.LogError(slog.Default(), "password update failed", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	if s.metrics != nil {
		s.metrics.PasswordsReset.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"email":   email,
		"message": "Password updated",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := principalFrom(r.Context())
	if user == nil {
		// middleware guarantees a principal on protected paths; excluded
		// paths never reach here
		writeMessage(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    user.ID.String(),
		"email": user.Email,
	})
}

// sessionUser resolves the session cookie to a user. Missing cookie or
// unknown session both come back nil.
func (s *Server) sessionUser(r *http.Request) *auth.User {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := s.svc.UserFromSessionID(r.Context(), cookie.Value)
	if err != nil {
		errutil.LogError(slog.Default(), "session lookup failed", err)
		return nil
	}
	return user
}

func (s *Server) countRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}
