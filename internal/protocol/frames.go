// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package protocol

import (
	"time"

	"github.com/tomtom215/parley/internal/models"
)

// Inbound frame types (client to server).
const (
	TypeSendMessage = "send_message"
	TypeTypingStart = "typing_start"
	TypeTypingStop  = "typing_stop"
	TypeMarkRead    = "mark_read"
	TypePing        = "ping"
	TypeUploadFile  = "upload_file"
)

// Outbound frame types (server to client).
const (
	TypeConnected          = "connected"
	TypeMissedMessages     = "missed_messages"
	TypeMessageReceived    = "message_received"
	TypeMessageDelivered   = "message_delivered"
	TypeTypingIndicator    = "typing_indicator"
	TypeReadReceipt        = "read_receipt"
	TypeFileUploadComplete = "file_upload_complete"
	TypePresenceUpdate     = "presence_update"
	TypePong               = "pong"
	TypeError              = "error"
)

// Inbound is a decoded client frame. The concrete type identifies the variant.
type Inbound interface {
	inbound()
}

// SendMessage carries a chat message. Admins must set ConversationID.
type SendMessage struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// TypingStart signals the sender began typing.
type TypingStart struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

// TypingStop signals the sender stopped typing.
type TypingStop struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

// MarkRead marks a message as read by the sender of the frame.
type MarkRead struct {
	MessageID string `json:"message_id" validate:"required"`
}

// Ping is an application-level heartbeat.
type Ping struct{}

// UploadFile carries an attachment. Data is standard base64 on the wire.
type UploadFile struct {
	Filename       string `json:"filename" validate:"required"`
	MimeType       string `json:"mime_type" validate:"required"`
	Data           []byte `json:"data" validate:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func (SendMessage) inbound() {}
func (TypingStart) inbound() {}
func (TypingStop) inbound()  {}
func (MarkRead) inbound()    {}
func (Ping) inbound()        {}
func (UploadFile) inbound()  {}

// TypeOf returns the wire discriminator of an inbound frame.
func TypeOf(f Inbound) string {
	switch f.(type) {
	case SendMessage:
		return TypeSendMessage
	case TypingStart:
		return TypeTypingStart
	case TypingStop:
		return TypeTypingStop
	case MarkRead:
		return TypeMarkRead
	case Ping:
		return TypePing
	case UploadFile:
		return TypeUploadFile
	default:
		return "unknown"
	}
}

// Outbound is a server frame. Every variant embeds its discriminator in a
// Type field so frames encode as flat JSON objects.
type Outbound interface {
	FrameType() string
}

// Connected acknowledges a successful session activation.
type Connected struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// MissedMessages replays messages created while the user had no connection.
type MissedMessages struct {
	Type     string           `json:"type"`
	Count    int              `json:"count"`
	Messages []models.Message `json:"messages"`
}

// MessageReceived delivers a new message to a conversation participant.
type MessageReceived struct {
	Type    string         `json:"type"`
	Message models.Message `json:"message"`
}

// MessageDelivered acknowledges a persisted message to its sender.
type MessageDelivered struct {
	Type        string    `json:"type"`
	MessageID   string    `json:"message_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// TypingIndicator relays typing state to the conversation counterpart.
type TypingIndicator struct {
	Type           string `json:"type"`
	UserID         string `json:"user_id"`
	UserName       string `json:"user_name"`
	IsTyping       bool   `json:"is_typing"`
	ConversationID string `json:"conversation_id"`
}

// ReadReceipt reports that a message was read.
type ReadReceipt struct {
	Type      string    `json:"type"`
	MessageID string    `json:"message_id"`
	ReadBy    string    `json:"read_by"`
	ReadAt    time.Time `json:"read_at"`
}

// FileUploadComplete acknowledges a persisted upload to its sender.
type FileUploadComplete struct {
	Type       string            `json:"type"`
	UploadID   string            `json:"upload_id"`
	FileURL    string            `json:"file_url"`
	Attachment models.Attachment `json:"attachment"`
}

// Presence statuses carried by PresenceUpdate.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// PresenceUpdate notifies counterparties of an online/offline transition.
type PresenceUpdate struct {
	Type     string     `json:"type"`
	UserID   string     `json:"user_id"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// Pong answers a Ping.
type Pong struct {
	Type string `json:"type"`
}

// Error reports a failed action to the connection that caused it.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Connected) FrameType() string          { return TypeConnected }
func (MissedMessages) FrameType() string     { return TypeMissedMessages }
func (MessageReceived) FrameType() string    { return TypeMessageReceived }
func (MessageDelivered) FrameType() string   { return TypeMessageDelivered }
func (TypingIndicator) FrameType() string    { return TypeTypingIndicator }
func (ReadReceipt) FrameType() string        { return TypeReadReceipt }
func (FileUploadComplete) FrameType() string { return TypeFileUploadComplete }
func (PresenceUpdate) FrameType() string     { return TypePresenceUpdate }
func (Pong) FrameType() string               { return TypePong }
func (Error) FrameType() string              { return TypeError }

func NewConnected(userID string) Connected {
	return Connected{Type: TypeConnected, UserID: userID}
}

func NewMissedMessages(msgs []models.Message) MissedMessages {
	if msgs == nil {
		msgs = []models.Message{}
	}
	return MissedMessages{Type: TypeMissedMessages, Count: len(msgs), Messages: msgs}
}

func NewMessageReceived(msg models.Message) MessageReceived {
	if msg.Attachments == nil {
		msg.Attachments = []models.Attachment{}
	}
	return MessageReceived{Type: TypeMessageReceived, Message: msg}
}

func NewMessageDelivered(messageID string, at time.Time) MessageDelivered {
	return MessageDelivered{Type: TypeMessageDelivered, MessageID: messageID, DeliveredAt: at}
}

func NewTypingIndicator(userID, userName, conversationID string, typing bool) TypingIndicator {
	return TypingIndicator{
		Type:           TypeTypingIndicator,
		UserID:         userID,
		UserName:       userName,
		IsTyping:       typing,
		ConversationID: conversationID,
	}
}

func NewReadReceipt(messageID, readBy string, at time.Time) ReadReceipt {
	return ReadReceipt{Type: TypeReadReceipt, MessageID: messageID, ReadBy: readBy, ReadAt: at}
}

func NewFileUploadComplete(uploadID string, att models.Attachment) FileUploadComplete {
	return FileUploadComplete{Type: TypeFileUploadComplete, UploadID: uploadID, FileURL: att.FileURL, Attachment: att}
}

// NewPresenceUpdate builds a presence frame. lastSeen is only set for
// offline transitions.
func NewPresenceUpdate(userID string, online bool, lastSeen time.Time) PresenceUpdate {
	if online {
		return PresenceUpdate{Type: TypePresenceUpdate, UserID: userID, Status: StatusOnline}
	}
	ts := lastSeen
	return PresenceUpdate{Type: TypePresenceUpdate, UserID: userID, Status: StatusOffline, LastSeen: &ts}
}

func NewPong() Pong {
	return Pong{Type: TypePong}
}

func NewError(code, message string) Error {
	return Error{Type: TypeError, Code: code, Message: message}
}
