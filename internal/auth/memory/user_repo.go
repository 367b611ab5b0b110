// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package memory provides an in-memory auth.UserRepository. It backs the
// test suites and the serve command's --memory development mode; it keeps
// the same uniqueness guarantees as the Postgres implementation but loses
// everything on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// UserRepository implements auth.UserRepository with a mutex-guarded map.
type UserRepository struct {
	mu    sync.RWMutex
	users map[ulid.ULID]*auth.User
}

// NewUserRepository creates an empty in-memory repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[ulid.ULID]*auth.User)}
}

// Create stores a new user, enforcing email uniqueness under the lock so
// concurrent registrations for the same email cannot both succeed.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return oops.Code("USER_CREATE_FAILED").
				With("email", user.Email).
				Wrap(auth.ErrAlreadyExists)
		}
	}

	clone := *user
	r.users[user.ID] = &clone
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	clone := *user
	return &clone, nil
}

// GetByEmail retrieves a user by exact, case-sensitive email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Email == email },
		oops.With("email", email))
}

// GetBySessionID retrieves the user holding the given session id.
func (r *UserRepository) GetBySessionID(_ context.Context, sessionID string) (*auth.User, error) {
	if sessionID == "" {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return r.find(func(u *auth.User) bool {
		return u.SessionID != nil && *u.SessionID == sessionID
	}, oops.In("memory"))
}

// GetByResetToken retrieves the user holding the given reset token.
func (r *UserRepository) GetByResetToken(_ context.Context, token string) (*auth.User, error) {
	if token == "" {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return r.find(func(u *auth.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token
	}, oops.In("memory"))
}

// SetSession replaces the user's session id; nil clears it.
func (r *UserRepository) SetSession(_ context.Context, id ulid.ULID, sessionID *string) error {
	return r.update(id, func(u *auth.User) {
		u.SessionID = cloneString(sessionID)
	})
}

// SetResetToken replaces the user's reset token; nil clears it.
func (r *UserRepository) SetResetToken(_ context.Context, id ulid.ULID, token *string) error {
	return r.update(id, func(u *auth.User) {
		u.ResetToken = cloneString(token)
	})
}

// ResetPassword replaces the password hash and clears the reset token in
// the same locked update.
func (r *UserRepository) ResetPassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	return r.update(id, func(u *auth.User) {
		u.PasswordHash = passwordHash
		u.ResetToken = nil
	})
}

func (r *UserRepository) find(match func(*auth.User) bool, builder oops.OopsErrorBuilder) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if match(user) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, builder.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

func (r *UserRepository) update(id ulid.ULID, mutate func(*auth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	mutate(user)
	user.UpdatedAt = time.Now()
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
