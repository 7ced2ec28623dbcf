// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package gateway serves the conversation WebSocket endpoint.

Each accepted socket gets a session with two goroutines:

  - the reader decodes text frames strictly in arrival order and dispatches
    each one before reading the next
  - the writer drains the connection's Outbox and sends websocket pings

Either goroutine ending cancels the other. Teardown unregisters the
connection and, only when it was the user's last one, marks the user
offline.

# Connection Setup

Clients connect to /ws/conversations with a bearer token in the token query
parameter or the Authorization header. A missing or invalid token is
answered with 401 before the upgrade. After the upgrade the session
registers, marks the user online and queues, ahead of any live traffic:

	{"type":"connected","user_id":"u1"}
	{"type":"missed_messages","count":1,"messages":[...]}

missed_messages is sent only to end-users who have disconnected before and
only when at least one message was created since.

# Failure Handling

Malformed or invalid frames, validation failures and store failures are
reported to the offending connection as an error frame; the session stays
active. A message the store rejected is never fanned out. Socket errors end
the session and are never retried.

# Heartbeats

The Reaper evicts connections that have not answered a ping (or sent a ping
frame) within the heartbeat timeout.
*/
package gateway
