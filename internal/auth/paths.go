// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "strings"

// RequiresAuth reports whether a request path is subject to authentication
// given the configured exclusion patterns. It fails closed: an empty path
// or an empty exclusion list always requires auth.
//
// Paths and patterns are normalized to exactly one trailing slash before
// comparison, so "/api/v1/status" and "/api/v1/status/" are the same path
// rather than a bypass pair. A pattern ending in '*' exempts every path
// with the prefix before the marker; any other pattern must match exactly.
// The first matching exclusion wins.
func RequiresAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return true
	}

	normalized := normalizeTrailingSlash(path)

	for _, pattern := range excluded {
		trimmed := strings.TrimRight(pattern, "/")
		if rest, wildcard := strings.CutSuffix(trimmed, "*"); wildcard {
			if strings.HasPrefix(normalized, rest) {
				return false
			}
			continue
		}
		if normalized == trimmed+"/" {
			return false
		}
	}

	return true
}

// normalizeTrailingSlash reduces any run of trailing slashes to one.
func normalizeTrailingSlash(p string) string {
	return strings.TrimRight(p, "/") + "/"
}
