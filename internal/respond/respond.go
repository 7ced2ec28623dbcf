// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package respond writes the standard JSON response envelope.
package respond

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/models"
)

// HTTP error codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_ERROR"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeRateLimited  = "RATE_LIMITED"
)

// JSON writes response with status.
func JSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// Success writes data in a success envelope.
func Success(w http.ResponseWriter, r *http.Request, data interface{}) {
	JSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: metadata(r),
	})
}

// Error writes an error envelope. err, if non-nil, is logged and never
// sent to the client.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Str("code", code).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API Error")
	}

	JSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: metadata(r),
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

func metadata(r *http.Request) models.Metadata {
	md := models.Metadata{Timestamp: time.Now().UTC()}
	if r != nil {
		md.RequestID = logging.RequestIDFromContext(r.Context())
	}
	return md
}

// sanitizeLogValue strips newlines to prevent log injection.
func sanitizeLogValue(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}
