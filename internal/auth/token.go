// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package auth

import (
	"net/http"
	"strings"
)

// TokenQueryParam is the query parameter carrying the bearer token on
// WebSocket upgrade requests, where browsers cannot set headers.
const TokenQueryParam = "token"

// TokenFromRequest extracts a bearer token from the Authorization header,
// falling back to the token query parameter. Returns "" when neither is set.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return r.URL.Query().Get(TokenQueryParam)
}
