// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package registry tracks which WebSocket connections exist for which user.
//
// A user may hold many connections (tabs, devices). Fan-out is best-effort:
// a connection whose queue has been closed is skipped and the remaining
// connections still receive the frame. A connection that registers while a
// fan-out is in flight may miss that frame.
package registry
