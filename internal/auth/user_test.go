// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func TestNewUser(t *testing.T) {
	t.Run("valid user", func(t *testing.T) {
		user, err := auth.NewUser("bob@example.com", "$argon2id$hash")
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, user.ID)
		assert.Equal(t, "bob@example.com", user.Email)
		assert.False(t, user.HasSession())
		assert.False(t, user.HasPendingReset())
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("empty hash rejected", func(t *testing.T) {
		_, err := auth.NewUser("bob@example.com", "")
		assert.Error(t, err)
	})
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{name: "plain address", email: "bob@example.com", wantErr: false},
		{name: "empty", email: "", wantErr: true},
		{name: "no at sign", email: "bobexample.com", wantErr: true},
		{name: "missing local part", email: "@example.com", wantErr: true},
		{name: "missing domain", email: "bob@", wantErr: true},
		{name: "embedded whitespace", email: "bob smith@example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewToken(t *testing.T) {
	t.Run("hex encoded with full entropy", func(t *testing.T) {
		token, err := auth.NewToken()
		require.NoError(t, err)
		assert.Len(t, token, auth.TokenBytes*2)
	})

	t.Run("tokens do not repeat", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 64 {
			token, err := auth.NewToken()
			require.NoError(t, err)
			assert.False(t, seen[token], "duplicate token %s", token)
			seen[token] = true
		}
	})
}
