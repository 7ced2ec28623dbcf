// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"os"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/registry"
	"github.com/tomtom215/parley/internal/store"
)

// AttachmentFiles opens stored attachment bytes by stored filename.
type AttachmentFiles interface {
	Open(name string) (*os.File, error)
}

// BreakerState reports the message store circuit breaker state.
type BreakerState interface {
	State() gobreaker.State
}

// Handler serves the non-WebSocket HTTP endpoints.
type Handler struct {
	registry *registry.Registry
	tokens   auth.TokenValidator
	store    store.MessageStore
	files    AttachmentFiles
	breaker  BreakerState
	version  string

	startTime time.Time
}

// HandlerDeps are the collaborators of a Handler. Breaker may be nil.
type HandlerDeps struct {
	Registry *registry.Registry
	Tokens   auth.TokenValidator
	Store    store.MessageStore
	Files    AttachmentFiles
	Breaker  BreakerState
	Version  string
}

// NewHandler creates a Handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		registry:  deps.Registry,
		tokens:    deps.Tokens,
		store:     deps.Store,
		files:     deps.Files,
		breaker:   deps.Breaker,
		version:   deps.Version,
		startTime: time.Now(),
	}
}

// storeState returns the breaker state name, or "closed" without a breaker.
func (h *Handler) storeState() gobreaker.State {
	if h.breaker == nil {
		return gobreaker.StateClosed
	}
	return h.breaker.State()
}
