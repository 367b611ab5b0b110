// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth provides the authentication core for Gatehouse.
//
// # Domain Types
//
// User is the persisted account record. Create it through NewUser so the
// email and password hash are validated; repository implementations receive
// pre-validated values. Credentials is the transient identifier/secret pair
// parsed from a Basic Authorization header and is never persisted.
//
// # Services and Strategies
//
// Service owns the credential/session lifecycle: registration, login
// validation, session issuance and destruction, and the password-reset
// token flow. It holds no user state of its own; every operation re-reads
// the UserRepository.
//
// Strategy is the request-authentication capability set (path exemption,
// credential resolution, principal lookup). BasicStrategy is the RFC 7617
// Basic scheme variant; further strategies plug in behind the same
// interface.
//
// # Failure Semantics
//
// Operations reached anonymously (login checks, session lookups) fail soft:
// they return a zero value and a nil error on a miss. Operations whose
// callers assert existence (registration, reset requests, reset consumption)
// fail hard with a sentinel wrapped in a coded oops error. The HTTP layer
// relies on this split for its status-code mapping.
package auth
