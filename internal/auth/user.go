// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User represents a registered account.
//
// SessionID and ResetToken are nil when no session or reset is pending.
// When non-nil they are unique across all users; the repository enforces
// that along with email uniqueness. Email comparisons are case-sensitive
// as stored.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	SessionID    *string
	ResetToken   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User with no active session or reset token.
func NewUser(email, passwordHash string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasSession returns true if the user has an active session.
func (u *User) HasSession() bool {
	return u.SessionID != nil && *u.SessionID != ""
}

// HasPendingReset returns true if a reset token has been issued and not
// yet consumed.
func (u *User) HasPendingReset() bool {
	return u.ResetToken != nil && *u.ResetToken != ""
}

// ValidateEmail checks the minimal shape of an account email. The service
// stores emails exactly as given; it does not normalize case.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot contain whitespace")
	}
	at := strings.IndexByte(email, '@')
	if at < 1 || at == len(email)-1 {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("email", email).
			Errorf("email must contain a local part and a domain")
	}
	return nil
}

// UserRepository manages user persistence. Implementations must enforce
// uniqueness on email, and on session id and reset token when non-nil,
// so that concurrent writes for the same identity cannot both succeed.
type UserRepository interface {
	// Create stores a new user. Returns ErrAlreadyExists when the email
	// is already registered.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound on a miss.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by exact email. Returns ErrNotFound on
	// a miss.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetBySessionID retrieves the user holding the given session id.
	// Returns ErrNotFound on a miss.
	GetBySessionID(ctx context.Context, sessionID string) (*User, error)

	// GetByResetToken retrieves the user holding the given reset token.
	// Returns ErrNotFound on a miss.
	GetByResetToken(ctx context.Context, token string) (*User, error)

	// SetSession replaces the user's session id. A nil value clears it.
	// Returns ErrNotFound if the id is unknown.
	SetSession(ctx context.Context, id ulid.ULID, sessionID *string) error

	// SetResetToken replaces the user's reset token. A nil value clears
	// it. Returns ErrNotFound if the id is unknown.
	SetResetToken(ctx context.Context, id ulid.ULID, token *string) error

	// ResetPassword replaces the password hash and clears the reset token
	// in the same write, so a consumed token can never be replayed against
	// the old hash. Returns ErrNotFound if the id is unknown.
	ResetPassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
