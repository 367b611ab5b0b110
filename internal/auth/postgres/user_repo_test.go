// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock pool")
	t.Cleanup(mock.Close)
	return mock
}

func sampleUser(t *testing.T) *auth.User {
	t.Helper()
	user, err := auth.NewUser("bob@example.com", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")
	require.NoError(t, err)
	return user
}

func userRows(user *auth.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "password_hash", "session_id", "reset_token", "created_at", "updated_at",
	}).AddRow(
		user.ID.String(), user.Email, user.PasswordHash,
		user.SessionID, user.ResetToken, user.CreatedAt, user.UpdatedAt,
	)
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts new user", func(t *testing.T) {
		mock := newMock(t)
		user := sampleUser(t)

		mock.ExpectExec("INSERT INTO users").
			WithArgs(user.ID.String(), user.Email, user.PasswordHash,
				user.SessionID, user.ResetToken, user.CreatedAt, user.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := postgres.NewUserRepository(mock)
		require.NoError(t, repo.Create(ctx, user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to ErrAlreadyExists", func(t *testing.T) {
		mock := newMock(t)
		user := sampleUser(t)

		mock.ExpectExec("INSERT INTO users").
			WithArgs(user.ID.String(), user.Email, user.PasswordHash,
				user.SessionID, user.ResetToken, user.CreatedAt, user.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})

		repo := postgres.NewUserRepository(mock)
		err := repo.Create(ctx, user)
		assert.ErrorIs(t, err, auth.ErrAlreadyExists)
	})

	t.Run("other database errors pass through", func(t *testing.T) {
		mock := newMock(t)
		user := sampleUser(t)

		mock.ExpectExec("INSERT INTO users").
			WithArgs(user.ID.String(), user.Email, user.PasswordHash,
				user.SessionID, user.ResetToken, user.CreatedAt, user.UpdatedAt).
			WillReturnError(errors.New("connection refused"))

		repo := postgres.NewUserRepository(mock)
		err := repo.Create(ctx, user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrAlreadyExists)
	})
}

func TestUserRepository_Lookups(t *testing.T) {
	ctx := context.Background()

	t.Run("get by email", func(t *testing.T) {
		mock := newMock(t)
		user := sampleUser(t)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs(user.Email).
			WillReturnRows(userRows(user))

		repo := postgres.NewUserRepository(mock)
		got, err := repo.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.Email, got.Email)
	})

	t.Run("get by email miss", func(t *testing.T) {
		mock := newMock(t)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("nobody@example.com").
			WillReturnError(pgx.ErrNoRows)

		repo := postgres.NewUserRepository(mock)
		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("get by session id", func(t *testing.T) {
		mock := newMock(t)
		user := sampleUser(t)
		sid := "abc123"
		user.SessionID = &sid

		mock.ExpectQuery("SELECT (.+) FROM users WHERE session_id").
			WithArgs(sid).
			WillReturnRows(userRows(user))

		repo := postgres.NewUserRepository(mock)
		got, err := repo.GetBySessionID(ctx, sid)
		require.NoError(t, err)
		require.NotNil(t, got.SessionID)
		assert.Equal(t, sid, *got.SessionID)
	})

	t.Run("empty session id misses without touching the database", func(t *testing.T) {
		mock := newMock(t)
		repo := postgres.NewUserRepository(mock)

		_, err := repo.GetBySessionID(ctx, "")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get by reset token miss", func(t *testing.T) {
		mock := newMock(t)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE reset_token").
			WithArgs("tok").
			WillReturnError(pgx.ErrNoRows)

		repo := postgres.NewUserRepository(mock)
		_, err := repo.GetByResetToken(ctx, "tok")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("malformed stored id errors", func(t *testing.T) {
		mock := newMock(t)

		rows := pgxmock.NewRows([]string{
			"id", "email", "password_hash", "session_id", "reset_token", "created_at", "updated_at",
		}).AddRow("not-a-ulid", "x@example.com", "hash", nil, nil, time.Now(), time.Now())

		mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("x@example.com").
			WillReturnRows(rows)

		repo := postgres.NewUserRepository(mock)
		_, err := repo.GetByEmail(ctx, "x@example.com")
		assert.Error(t, err)
	})
}

func TestUserRepository_Updates(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("set session", func(t *testing.T) {
		mock := newMock(t)
		sid := "session-1"

		mock.ExpectExec("UPDATE users SET session_id").
			WithArgs(id.String(), &sid, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := postgres.NewUserRepository(mock)
		require.NoError(t, repo.SetSession(ctx, id, &sid))
	})

	t.Run("clear session for unknown id", func(t *testing.T) {
		mock := newMock(t)

		mock.ExpectExec("UPDATE users SET session_id").
			WithArgs(id.String(), (*string)(nil), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := postgres.NewUserRepository(mock)
		err := repo.SetSession(ctx, id, nil)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("set reset token", func(t *testing.T) {
		mock := newMock(t)
		token := "reset-1"

		mock.ExpectExec("UPDATE users SET reset_token").
			WithArgs(id.String(), &token, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := postgres.NewUserRepository(mock)
		require.NoError(t, repo.SetResetToken(ctx, id, &token))
	})

	t.Run("reset password clears token in one statement", func(t *testing.T) {
		mock := newMock(t)

		mock.ExpectExec(`UPDATE users SET password_hash = \$2, reset_token = NULL`).
			WithArgs(id.String(), "$argon2id$new", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := postgres.NewUserRepository(mock)
		require.NoError(t, repo.ResetPassword(ctx, id, "$argon2id$new"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
