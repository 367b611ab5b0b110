// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service provides the credential and session lifecycle: registration,
// login validation, session issuance and destruction, and reset tokens.
//
// Service keeps no per-user state between calls; every operation re-reads
// the repository so concurrent requests observe the store's truth.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher PasswordHasher) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &Service{users: users, hasher: hasher}, nil
}

// RegisterUser creates a new account with a hashed password and no active
// session or reset token. Returns ErrAlreadyExists (wrapped) when the
// email is taken. The repository's uniqueness constraint backstops the
// lookup, so two concurrent registrations for one email cannot both win.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*User, error) {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, oops.Code("AUTH_USER_EXISTS").
			With("email", email).
			Wrap(ErrAlreadyExists)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// Lost the race against a concurrent registration.
			return nil, oops.Code("AUTH_USER_EXISTS").
				With("email", email).
				Wrap(ErrAlreadyExists)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	return user, nil
}

// ValidLogin reports whether the email and password pair identifies a
// registered user. An unknown email is an ordinary false, not an error.
func (s *Service) ValidLogin(ctx context.Context, email, password string) (bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, oops.Code("AUTH_LOGIN_CHECK_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return false, oops.Code("AUTH_LOGIN_CHECK_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	return valid, nil
}

// CreateSession issues a fresh session id for the user and persists it,
// replacing any previous session (one active session per user). An unknown
// email yields an empty id and a nil error; the route layer turns that
// into a denial without learning whether the account exists.
func (s *Service) CreateSession(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	sessionID, err := NewToken()
	if err != nil {
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "generate session id").
			Wrap(err)
	}

	if err := s.users.SetSession(ctx, user.ID, &sessionID); err != nil {
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session id").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return sessionID, nil
}

// UserFromSessionID resolves a session id to its user. An empty or unknown
// id yields (nil, nil).
func (s *Service) UserFromSessionID(ctx context.Context, sessionID string) (*User, error) {
	if sessionID == "" {
		return nil, nil
	}

	user, err := s.users.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("AUTH_SESSION_LOOKUP_FAILED").
			With("operation", "get user by session id").
			Wrap(err)
	}
	return user, nil
}

// DestroySession clears the user's session id. Unknown ids are a no-op;
// the operation is idempotent.
func (s *Service) DestroySession(ctx context.Context, userID ulid.ULID) error {
	err := s.users.SetSession(ctx, userID, nil)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_SESSION_DESTROY_FAILED").
			With("operation", "clear session id").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// ResetPasswordToken issues a fresh reset token for the user and persists
// it, invalidating any previously issued token (one pending reset per
// user). Returns ErrUnknownUser (wrapped) when no user has the email.
func (s *Service) ResetPasswordToken(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("AUTH_UNKNOWN_USER").
				With("email", email).
				Wrap(ErrUnknownUser)
		}
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, err := NewToken()
	if err != nil {
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	if err := s.users.SetResetToken(ctx, user.ID, &token); err != nil {
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "persist reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return token, nil
}

// UpdatePassword consumes a reset token: the password hash is replaced and
// the token cleared in a single store write, so the token is single-use.
// Returns ErrInvalidToken (wrapped) when no user holds the token.
func (s *Service) UpdatePassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return oops.Code("AUTH_RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}

	user, err := s.users.GetByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
		}
		return oops.Code("AUTH_RESET_FAILED").
			With("operation", "get user by reset token").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_RESET_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.users.ResetPassword(ctx, user.ID, hash); err != nil {
		return oops.Code("AUTH_RESET_FAILED").
			With("operation", "update password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return nil
}
