// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"errors"
	"mime"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/respond"
	"github.com/tomtom215/parley/internal/store"
)

// Attachment streams a stored attachment to an authenticated participant
// of its conversation. End-users requesting another conversation's file
// get 403.
func (h *Handler) Attachment(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthorized, "missing token", nil)
		return
	}
	identity, err := h.tokens.Validate(r.Context(), token)
	if err != nil {
		respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid or expired token", nil)
		return
	}

	name := chi.URLParam(r, "name")
	att, err := h.store.AttachmentByStoredName(r.Context(), name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respond.Error(w, r, http.StatusNotFound, respond.CodeNotFound, "attachment not found", nil)
		return
	case errors.Is(err, store.ErrUnavailable):
		respond.Error(w, r, http.StatusServiceUnavailable, respond.CodeUnavailable, "message store unavailable", nil)
		return
	case err != nil:
		respond.Error(w, r, http.StatusInternalServerError, respond.CodeInternal, "failed to load attachment", err)
		return
	}

	if !identity.IsAdmin() && att.ConversationID != identity.UserID {
		logging.Ctx(r.Context()).Warn().
			Str("user_id", identity.UserID).
			Str("attachment_id", att.ID).
			Msg("Attachment access denied")
		respond.Error(w, r, http.StatusForbidden, respond.CodeForbidden, "not a participant of this conversation", nil)
		return
	}

	f, err := h.files.Open(att.StoredFilename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			respond.Error(w, r, http.StatusNotFound, respond.CodeNotFound, "attachment not found", nil)
			return
		}
		respond.Error(w, r, http.StatusInternalServerError, respond.CodeInternal, "failed to open attachment", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respond.Error(w, r, http.StatusInternalServerError, respond.CodeInternal, "failed to open attachment", err)
		return
	}

	w.Header().Set("Content-Type", att.MimeType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename}))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, att.Filename, info.ModTime(), f)
}
