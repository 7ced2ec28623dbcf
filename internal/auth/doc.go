// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package auth validates bearer tokens issued by the platform backend and
// resolves participant display names.
//
// Tokens are HS256 JWTs. The subject claim is the user ID, "role" selects
// admin or end-user, and "name" is the display name shown in typing
// indicators.
package auth
