// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package api wires the HTTP surface of the gateway onto a chi router.

Routes:

	GET /ws/conversations          WebSocket upgrade (gateway package)
	GET /api/v1/health             status, connections, online users, uptime
	GET /api/v1/health/live        liveness probe
	GET /api/v1/health/ready       readiness probe, 503 while the store breaker is open
	GET /api/attachments/{name}    authenticated attachment download
	GET /metrics                   Prometheus exposition

Every route shares request ID, real IP, panic recovery and CORS
middleware. Rate limiting is keyed by client IP through httprate; the
attachment route additionally records request metrics.

Attachment access follows conversation membership: admins may download
any attachment, end-users only those in their own conversation.
*/
package api
