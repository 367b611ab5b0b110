// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package postgres implements auth.UserRepository over PostgreSQL. Email,
// session id, and reset token uniqueness is enforced by constraints in the
// users table, which makes the store the arbiter for concurrent writes
// against the same identity.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// DB is the slice of pgxpool.Pool the repository needs. pgxmock satisfies
// it, so the unit tests run without a database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, email, password_hash, session_id, reset_token, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user. A unique-constraint violation on the email
// column maps to auth.ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		user.ID.String(),
		user.Email,
		user.PasswordHash,
		user.SessionID,
		user.ResetToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_CREATE_FAILED").
				With("email", user.Email).
				Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by exact email. The comparison is
// case-sensitive as stored; no LOWER() on either side.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// GetBySessionID retrieves the user holding the given session id.
func (r *UserRepository) GetBySessionID(ctx context.Context, sessionID string) (*auth.User, error) {
	if sessionID == "" {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}

	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE session_id = $1
	`, sessionID)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_SESSION_FAILED").Wrap(err)
	}
	return user, nil
}

// GetByResetToken retrieves the user holding the given reset token.
func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*auth.User, error) {
	if token == "" {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}

	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE reset_token = $1
	`, token)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_RESET_TOKEN_FAILED").Wrap(err)
	}
	return user, nil
}

// SetSession replaces the user's session id; nil clears it.
func (r *UserRepository) SetSession(ctx context.Context, id ulid.ULID, sessionID *string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET session_id = $2, updated_at = $3 WHERE id = $1
	`, id.String(), sessionID, time.Now())
	if err != nil {
		return oops.Code("USER_SET_SESSION_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetResetToken replaces the user's reset token; nil clears it.
func (r *UserRepository) SetResetToken(ctx context.Context, id ulid.ULID, token *string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET reset_token = $2, updated_at = $3 WHERE id = $1
	`, id.String(), token, time.Now())
	if err != nil {
		return oops.Code("USER_SET_RESET_TOKEN_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// ResetPassword replaces the password hash and clears the reset token in
// one statement, so token consumption and the hash swap are atomic.
func (r *UserRepository) ResetPassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, reset_token = NULL, updated_at = $3 WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("USER_RESET_PASSWORD_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User. Callers handle pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		email        string
		passwordHash string
		sessionID    *string
		resetToken   *string
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(&idStr, &email, &passwordHash, &sessionID, &resetToken, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		SessionID:    sessionID,
		ResetToken:   resetToken,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
