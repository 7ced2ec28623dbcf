// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/validation"
)

// UploadMessageBody is the body of the message created for an upload.
func UploadMessageBody(filename string) string {
	return "Sent file: " + filename
}

// StoredFilename builds the collision-free name an upload is stored under.
func StoredFilename(uploadID, filename string) string {
	return uploadID + "_" + validation.SanitizeFilename(filename)
}

// WriteAttachment sniffs upload against its declared type, writes the bytes
// to blobs and returns the attachment metadata. Callers that fail to
// persist the metadata must remove the blob again.
func WriteAttachment(blobs BlobStore, messageID, conversationID string, upload models.AttachmentUpload, now time.Time) (models.Attachment, error) {
	if verr := validation.FileContent(upload.Data, upload.MimeType); verr != nil {
		return models.Attachment{}, fmt.Errorf("%w: %s", ErrValidation, verr.Error())
	}
	if strings.TrimSpace(upload.UploadID) == "" {
		upload.UploadID = uuid.NewString()
	}

	stored := StoredFilename(upload.UploadID, upload.Filename)
	path, err := blobs.Write(stored, upload.Data)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return models.Attachment{
		ID:             uuid.NewString(),
		MessageID:      messageID,
		ConversationID: conversationID,
		Filename:       upload.Filename,
		StoredFilename: stored,
		MimeType:       validation.NormalizeMimeType(upload.MimeType),
		Size:           int64(len(upload.Data)),
		StoragePath:    path,
		FileURL:        blobs.URL(stored),
		CreatedAt:      now,
	}, nil
}

// ValidateNewMessage rejects messages without a conversation or with an
// unknown sender.
func ValidateNewMessage(msg models.NewMessage) error {
	if msg.UserID == "" {
		return fmt.Errorf("%w: message has no conversation", ErrValidation)
	}
	if msg.Sender != models.SenderUser && msg.Sender != models.SenderAdmin {
		return fmt.Errorf("%w: unknown sender %q", ErrValidation, msg.Sender)
	}
	return nil
}
