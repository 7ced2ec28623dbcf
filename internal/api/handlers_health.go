// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/respond"
)

// Health reports gateway status. It always answers 200; Status is
// "degraded" while the message store breaker is open.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	conns, users := h.registry.Stats()
	state := h.storeState()

	status := "healthy"
	if state == gobreaker.StateOpen {
		status = "degraded"
	}

	respond.Success(w, r, models.HealthStatus{
		Status:        status,
		Version:       h.version,
		Connections:   conns,
		OnlineUsers:   users,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Store:         state.String(),
	})
}

// HealthLive handles liveness probe requests.
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respond.Success(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests.
// Returns 503 while the message store circuit is open.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if state := h.storeState(); state == gobreaker.StateOpen {
		respond.Error(w, r, http.StatusServiceUnavailable, respond.CodeUnavailable, "message store unavailable", nil)
		return
	}
	respond.Success(w, r, map[string]interface{}{"ready": true})
}
