// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/parley/internal/models"
)

var (
	// ErrNotFound means the message or attachment does not exist, or the
	// reader does not participate in its conversation.
	ErrNotFound = errors.New("not found")

	// ErrPersistence wraps failures writing or reading durable state.
	ErrPersistence = errors.New("persistence failure")

	// ErrValidation means the input was rejected before anything was stored,
	// for example sniffed content that disagrees with the declared type.
	ErrValidation = errors.New("validation failed")

	// ErrStorage wraps failures writing attachment bytes.
	ErrStorage = errors.New("attachment storage failure")

	// ErrUnavailable is returned without calling the store while the
	// circuit breaker is open.
	ErrUnavailable = errors.New("message store unavailable")
)

// MessageStore persists conversation messages and their attachments.
// A message must not be considered delivered until CreateMessage (or
// CreateMessageWithAttachment) has returned successfully.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error)

	// MessagesSince returns the messages of conversation userID created at
	// or after since, in creation order. Repeated calls with the same since
	// return the same sequence.
	MessagesSince(ctx context.Context, userID string, since time.Time) ([]models.Message, error)

	// MarkRead sets is_read on a message. It returns ErrNotFound when the
	// message does not exist or reader does not participate in its
	// conversation. Marking an already read message succeeds.
	MarkRead(ctx context.Context, messageID string, reader models.Identity) error

	// SaveAttachment sniffs, writes and links an attachment to an existing
	// message.
	SaveAttachment(ctx context.Context, messageID string, upload models.AttachmentUpload) (models.Attachment, error)

	// CreateMessageWithAttachment stores a message and its attachment as one
	// unit: on any failure neither is visible.
	CreateMessageWithAttachment(ctx context.Context, msg models.NewMessage, upload models.AttachmentUpload) (models.Message, models.Attachment, error)

	// ListCounterparties returns the users userID has exchanged messages
	// with.
	ListCounterparties(ctx context.Context, userID string) ([]string, error)

	AttachmentByStoredName(ctx context.Context, storedName string) (models.Attachment, error)

	Close() error
}

// BlobStore holds attachment bytes.
type BlobStore interface {
	// Write stores data under name, failing if name already exists, and
	// returns the storage path.
	Write(name string, data []byte) (string, error)
	Remove(name string) error
	// URL returns the public download URL for name.
	URL(name string) string
}

// CanRead reports whether reader participates in msg's conversation.
// Admins participate in every conversation; an end-user only in their own.
func CanRead(reader models.Identity, msg models.Message) bool {
	return reader.IsAdmin() || reader.UserID == msg.UserID
}
