// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the entropy of session ids and reset tokens.
// 32 bytes encode to 64 hex characters.
const TokenBytes = 32

// NewToken generates a cryptographically unpredictable opaque identifier.
// Session ids and reset tokens are both drawn from this generator; they
// are never derived from user-controlled input.
func NewToken() (string, error) {
	raw := make([]byte, TokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(raw), nil
}
