// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Credentials is the identifier/secret pair decoded from an Authorization
// header. It lives for the duration of one request and is never persisted.
type Credentials struct {
	Email    string
	Password string
}

// Strategy is the request-authentication capability set. BasicStrategy is
// the Basic scheme variant; token or mutual-TLS strategies are further
// variants behind the same interface.
type Strategy interface {
	// RequiresAuth reports whether a request path is subject to
	// authentication given the configured exclusion patterns.
	RequiresAuth(path string, excluded []string) bool

	// ResolveCredentials extracts credentials from a raw Authorization
	// header value. Any malformed input yields (zero, false); resolution
	// never errors on a hot parsing path.
	ResolveCredentials(header string) (Credentials, bool)

	// Principal resolves the header to an authenticated user, or nil when
	// the request carries no valid credentials. Errors are reserved for
	// store failures.
	Principal(ctx context.Context, header string) (*User, error)
}

// basicHeaderRe anchors on the whole trimmed header: the literal scheme
// name, exactly one space, then the token. Partial matches are rejected.
var basicHeaderRe = regexp.MustCompile(`^Basic (.+)$`)

// ExtractEncodedToken returns the base64 token of a "Basic <token>"
// Authorization header. Leading and trailing whitespace is stripped before
// matching; anything that is not exactly the Basic scheme yields false.
func ExtractEncodedToken(header string) (string, bool) {
	m := basicHeaderRe.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// DecodeToken strictly decodes a base64 token to UTF-8 text. Padding or
// alphabet violations and invalid byte sequences all yield false; malformed
// input is never coerced into a partial or lossy result.
func DecodeToken(token string) (string, bool) {
	raw, err := base64.StdEncoding.Strict().DecodeString(token)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// SplitCredentials splits decoded text on the first colon. The identifier
// is everything before it and must be non-empty; the secret is everything
// after it, must be non-empty, and may itself contain colons.
func SplitCredentials(decoded string) (Credentials, bool) {
	email, password, found := strings.Cut(decoded, ":")
	if !found || email == "" || password == "" {
		return Credentials{}, false
	}
	return Credentials{Email: email, Password: password}, true
}

// BasicStrategy authenticates requests with the Basic scheme against the
// session auth service's user store.
type BasicStrategy struct {
	svc *Service
}

// NewBasicStrategy creates a BasicStrategy backed by the given service.
func NewBasicStrategy(svc *Service) (*BasicStrategy, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	return &BasicStrategy{svc: svc}, nil
}

// RequiresAuth reports whether the path is subject to authentication.
func (b *BasicStrategy) RequiresAuth(path string, excluded []string) bool {
	return RequiresAuth(path, excluded)
}

// ResolveCredentials runs extract, decode, and split in order. A failure
// at any step is terminal; no partial result ever escapes.
func (b *BasicStrategy) ResolveCredentials(header string) (Credentials, bool) {
	token, ok := ExtractEncodedToken(header)
	if !ok {
		return Credentials{}, false
	}
	decoded, ok := DecodeToken(token)
	if !ok {
		return Credentials{}, false
	}
	return SplitCredentials(decoded)
}

// Principal resolves the header to the user whose credentials it carries.
// Malformed headers and failed logins both yield (nil, nil).
func (b *BasicStrategy) Principal(ctx context.Context, header string) (*User, error) {
	creds, ok := b.ResolveCredentials(header)
	if !ok {
		return nil, nil
	}

	valid, err := b.svc.ValidLogin(ctx, creds.Email, creds.Password)
	if err != nil || !valid {
		return nil, err
	}

	user, err := b.svc.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Deleted between the login check and the re-read.
			return nil, nil
		}
		return nil, oops.Code("AUTH_PRINCIPAL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// Compile-time interface check.
var _ Strategy = (*BasicStrategy)(nil)
