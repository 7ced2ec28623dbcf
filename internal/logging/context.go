// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	connectionIDKey contextKey = "connection_id"
	userIDKey       contextKey = "user_id"
)

// GenerateRequestID creates a new unique request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithRequestID returns a new context carrying the HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithConnection tags ctx with the gateway connection and user it
// belongs to. Every line logged through Ctx carries both fields.
//
//	ctx = logging.ContextWithConnection(ctx, connID, userID)
func ContextWithConnection(ctx context.Context, connectionID, userID string) context.Context {
	ctx = context.WithValue(ctx, connectionIDKey, connectionID)
	return context.WithValue(ctx, userIDKey, userID)
}

// ConnectionIDFromContext retrieves the connection ID from context.
func ConnectionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(connectionIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger enriched with request_id, connection_id and
// user_id when ctx carries them.
//
//	logging.Ctx(ctx).Info().Msg("Session active")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()

	if id := RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	if id := ConnectionIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("connection_id", id)
	}
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		logCtx = logCtx.Str("user_id", id)
	}

	l := logCtx.Logger()
	return &l
}

// WithComponent creates a child logger with a component field.
//
//	reaperLog := logging.WithComponent("reaper")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
