// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package main is the entry point for the Parley messaging gateway.

Parley carries the real-time conversations between candidates and the
recruiting team: one WebSocket endpoint, role-based routing, presence,
missed-message replay and attachment uploads.

# Application Architecture

	RootSupervisor ("parley")
	├── GatewaySupervisor ("gateway-layer")
	│   └── WebSocket gateway (heartbeat reaper, session shutdown)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: koanf v2 with defaults, optional YAML file and environment
 2. Logging: zerolog with JSON/console output modes
 3. Attachment directory and message store (BadgerDB or memory) behind a
    gobreaker circuit breaker
 4. Last-seen store: BadgerDB, Redis or memory
 5. JWT validation, connection registry, presence tracker, router
 6. Gateway, HTTP handlers and supervisor tree

# Configuration

Core environment variables:

	HTTP_PORT=8090
	JWT_SECRET=<32+ chars>          # required
	ADMIN_USERS=alice,bob           # admin by user ID regardless of token role
	STORAGE_BACKEND=badger          # badger or memory
	BADGER_PATH=./data/messages
	PRESENCE_STORE=badger           # badger, redis or memory
	REDIS_ADDR=localhost:6379
	ATTACHMENT_DIR=./attachments
	WS_HEARTBEAT_TIMEOUT=60s
	LOG_LEVEL=info
	LOG_FORMAT=json

A YAML file may be supplied through CONFIG_PATH; environment variables win.

# Graceful Shutdown

SIGINT or SIGTERM cancels the root context. The HTTP server stops accepting
requests, the gateway closes every session (each one unregisters and marks
its user offline) and the stores are closed last.
*/
package main
