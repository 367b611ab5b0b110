// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func TestArgon2idHasher_Hash(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces PHC-encoded argon2id hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
		assert.NotContains(t, hash, "password123")
	})

	t.Run("same password salts differently", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})
}

func TestArgon2idHasher_Verify(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails without error", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed stored hashes error", func(t *testing.T) {
		tests := []struct {
			name string
			hash string
		}{
			{name: "not a PHC string", hash: "not-a-valid-hash"},
			{name: "wrong algorithm", hash: "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
			{name: "bad version field", hash: "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
			{name: "bad parameter field", hash: "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
			{name: "bad salt base64", hash: "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA"},
			{name: "bad key base64", hash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!"},
			{name: "threads out of range", hash: "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA"},
			{name: "zero threads", hash: "$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := hasher.Verify("password", tt.hash)
				assert.Error(t, err)
			})
		}
	})
}
