// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/protocol"
	"github.com/tomtom215/parley/internal/router"
	"github.com/tomtom215/parley/internal/store"
	"github.com/tomtom215/parley/internal/validation"
)

// dispatch routes one decoded frame to its handler.
func (s *session) dispatch(ctx context.Context, frame protocol.Inbound) {
	switch f := frame.(type) {
	case protocol.SendMessage:
		s.handleSendMessage(ctx, f)
	case protocol.TypingStart:
		s.handleTyping(ctx, f.ConversationID, true)
	case protocol.TypingStop:
		s.handleTyping(ctx, f.ConversationID, false)
	case protocol.MarkRead:
		s.handleMarkRead(ctx, f)
	case protocol.Ping:
		s.handlePing()
	case protocol.UploadFile:
		s.handleUpload(ctx, f)
	default:
		s.sendError(protocol.CodeProtocol, "unsupported frame")
	}
}

func (s *session) handleSendMessage(ctx context.Context, f protocol.SendMessage) {
	content, verr := validation.MessageContent(f.Content, s.g.opts.Limits)
	if verr != nil {
		s.sendError(protocol.CodeValidation, verr.Error())
		return
	}
	route, ok := s.resolve(f.ConversationID)
	if !ok {
		return
	}

	msg, err := s.g.deps.Store.CreateMessage(ctx, models.NewMessage{
		UserID:   route.ConversationID,
		Sender:   s.identity.Sender(),
		SenderID: s.identity.UserID,
		Body:     content,
	})
	if err != nil {
		s.storeError(ctx, "create_message", err)
		return
	}
	s.deliver(msg, route)
}

func (s *session) handleTyping(ctx context.Context, conversationID string, typing bool) {
	route, err := s.g.deps.Router.Counterparts(s.identity, conversationID)
	if err != nil {
		// Typing is best-effort; nothing to report.
		return
	}
	name := auth.ResolveName(ctx, s.g.deps.Names, s.identity.UserID)
	s.g.deps.Registry.SendToUsers(route.Recipients,
		protocol.NewTypingIndicator(s.identity.UserID, name, route.ConversationID, typing))
}

func (s *session) handleMarkRead(ctx context.Context, f protocol.MarkRead) {
	if err := s.g.deps.Store.MarkRead(ctx, f.MessageID, s.identity); err != nil {
		s.storeError(ctx, "mark_read", err)
		return
	}
	s.g.deps.Registry.SendToUser(s.identity.UserID,
		protocol.NewReadReceipt(f.MessageID, s.identity.UserID, time.Now().UTC()))
}

func (s *session) handlePing() {
	_ = s.g.deps.Registry.UpdateHeartbeat(s.id)
	_ = s.g.deps.Registry.SendToConnection(s.id, protocol.NewPong())
}

func (s *session) handleUpload(ctx context.Context, f protocol.UploadFile) {
	if verr := validation.Attachment(f.Filename, f.MimeType, int64(len(f.Data)), s.g.opts.Limits); verr != nil {
		s.sendError(protocol.CodeValidation, verr.Error())
		return
	}
	route, ok := s.resolve(f.ConversationID)
	if !ok {
		return
	}

	uploadID := uuid.NewString()
	msg, att, err := s.g.deps.Store.CreateMessageWithAttachment(ctx,
		models.NewMessage{
			UserID:   route.ConversationID,
			Sender:   s.identity.Sender(),
			SenderID: s.identity.UserID,
			Body:     store.UploadMessageBody(f.Filename),
		},
		models.AttachmentUpload{
			UploadID: uploadID,
			Filename: f.Filename,
			MimeType: f.MimeType,
			Data:     f.Data,
		})
	if err != nil {
		s.storeError(ctx, "upload", err)
		return
	}

	_ = s.g.deps.Registry.SendToConnection(s.id, protocol.NewFileUploadComplete(uploadID, att))
	s.deliver(msg, route)
}

// resolve applies role-based routing and reports routing failures to the
// sender.
func (s *session) resolve(conversationID string) (router.Route, bool) {
	route, err := s.g.deps.Router.Resolve(s.identity, conversationID)
	if err != nil {
		s.sendError(protocol.CodeValidation, err.Error())
		return router.Route{}, false
	}
	return route, true
}

// deliver fans a persisted message out to its recipients and acknowledges
// it to the sending connection. It must only be called after the store
// accepted the message.
func (s *session) deliver(msg models.Message, route router.Route) {
	reached := s.g.deps.Registry.SendToUsers(route.Recipients, protocol.NewMessageReceived(msg))
	_ = s.g.deps.Registry.SendToConnection(s.id, protocol.NewMessageDelivered(msg.ID, time.Now().UTC()))

	logging.Debug().
		Str("connection_id", s.id).
		Str("message_id", msg.ID).
		Str("conversation_id", route.ConversationID).
		Int("connections_reached", reached).
		Msg("Message delivered")
}

// storeError maps a store failure to an Error frame for this connection.
func (s *session) storeError(ctx context.Context, op string, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		s.sendError(protocol.CodeValidation, err.Error())
	case errors.Is(err, store.ErrNotFound):
		s.sendError(protocol.CodeNotFound, "message not found")
	case errors.Is(err, store.ErrUnavailable):
		logging.Ctx(ctx).Warn().Err(err).Str("operation", op).Msg("Message store unavailable")
		s.sendError(protocol.CodeStoreUnavailable, "message store temporarily unavailable, try again later")
	default:
		logging.Ctx(ctx).Error().Err(err).Str("operation", op).Msg("Message store operation failed")
		s.sendError(protocol.CodeStore, "failed to save, please retry")
	}
}
