// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package models

import "time"

// Sender labels which side of the conversation wrote a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// Message is a durable chat message. UserID is always the end-user party of
// the conversation, regardless of who sent it. Only IsRead and Attachments
// change after creation.
type Message struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Sender      Sender       `json:"sender"`
	SenderID    string       `json:"sender_id"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments"`
	IsRead      bool         `json:"is_read"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Attachment is a file linked to a message.
type Attachment struct {
	ID             string    `json:"id"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Filename       string    `json:"filename"`
	StoredFilename string    `json:"stored_filename"`
	MimeType       string    `json:"mime_type"`
	Size           int64     `json:"size"`
	StoragePath    string    `json:"-"`
	FileURL        string    `json:"file_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMessage is the input to MessageStore.CreateMessage.
type NewMessage struct {
	UserID   string
	Sender   Sender
	SenderID string
	Body     string
}

// AttachmentUpload carries a validated upload into the store.
// UploadID prefixes the stored filename so concurrent uploads of the
// same name never collide.
type AttachmentUpload struct {
	UploadID string
	Filename string
	MimeType string
	Data     []byte
}
