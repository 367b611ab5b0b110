// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when registering an email that is taken.
	ErrAlreadyExists = errors.New("user already exists")

	// ErrUnknownUser is returned when a reset token is requested for an
	// email no user has.
	ErrUnknownUser = errors.New("unknown user")

	// ErrInvalidToken is returned when a reset token is not recognized.
	ErrInvalidToken = errors.New("invalid reset token")
)
