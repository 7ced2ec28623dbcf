// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package presence translates connection-registry occupancy into
// online/offline state for users.
//
// Presence is keyed off the number of live connections rather than socket
// events, so a user with several tabs or devices goes offline only when the
// last one closes. The timestamp of that moment (last_seen) is the starting
// point for missed-message replay on the next connect and is persisted
// through a LastSeenStore: MemoryStore, RedisStore, or the BadgerDB store in
// package badgerstore.
package presence
