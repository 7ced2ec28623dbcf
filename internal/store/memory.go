// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/models"
)

// MemoryStore is a process-local MessageStore. It keeps everything in maps
// and is used for tests and the "memory" storage backend.
type MemoryStore struct {
	blobs BlobStore

	mu             sync.RWMutex
	messages       map[string]*models.Message
	byConversation map[string][]string
	attachments    map[string]models.Attachment
	counterparties map[string]map[string]struct{}

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore writing attachment bytes to
// blobs.
func NewMemoryStore(blobs BlobStore) *MemoryStore {
	return &MemoryStore{
		blobs:          blobs,
		messages:       make(map[string]*models.Message),
		byConversation: make(map[string][]string),
		attachments:    make(map[string]models.Attachment),
		counterparties: make(map[string]map[string]struct{}),
		now:            time.Now,
	}
}

func (s *MemoryStore) CreateMessage(_ context.Context, nm models.NewMessage) (models.Message, error) {
	if err := ValidateNewMessage(nm); err != nil {
		return models.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.insertLocked(nm, uuid.NewString(), s.now())
	return copyMessage(msg), nil
}

func (s *MemoryStore) insertLocked(nm models.NewMessage, id string, at time.Time) *models.Message {
	msg := &models.Message{
		ID:          id,
		UserID:      nm.UserID,
		Sender:      nm.Sender,
		SenderID:    nm.SenderID,
		Body:        nm.Body,
		Attachments: []models.Attachment{},
		CreatedAt:   at,
	}
	s.messages[id] = msg
	s.byConversation[nm.UserID] = append(s.byConversation[nm.UserID], id)

	if nm.Sender == models.SenderAdmin && nm.SenderID != "" && nm.SenderID != nm.UserID {
		s.linkLocked(nm.UserID, nm.SenderID)
		s.linkLocked(nm.SenderID, nm.UserID)
	}
	return msg
}

func (s *MemoryStore) linkLocked(a, b string) {
	set, ok := s.counterparties[a]
	if !ok {
		set = make(map[string]struct{})
		s.counterparties[a] = set
	}
	set[b] = struct{}{}
}

func (s *MemoryStore) MessagesSince(_ context.Context, userID string, since time.Time) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Message
	for _, id := range s.byConversation[userID] {
		msg := s.messages[id]
		if msg.CreatedAt.Before(since) {
			continue
		}
		out = append(out, copyMessage(msg))
	}
	return out, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, messageID string, reader models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[messageID]
	if !ok || !CanRead(reader, *msg) {
		return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	msg.IsRead = true
	return nil
}

func (s *MemoryStore) SaveAttachment(_ context.Context, messageID string, upload models.AttachmentUpload) (models.Attachment, error) {
	s.mu.RLock()
	msg, ok := s.messages[messageID]
	var conversation string
	if ok {
		conversation = msg.UserID
	}
	s.mu.RUnlock()
	if !ok {
		return models.Attachment{}, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}

	att, err := WriteAttachment(s.blobs, messageID, conversation, upload, s.now())
	if err != nil {
		return models.Attachment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok = s.messages[messageID]
	if !ok {
		_ = s.blobs.Remove(att.StoredFilename)
		return models.Attachment{}, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	msg.Attachments = append(msg.Attachments, att)
	s.attachments[att.StoredFilename] = att
	return att, nil
}

func (s *MemoryStore) CreateMessageWithAttachment(_ context.Context, nm models.NewMessage, upload models.AttachmentUpload) (models.Message, models.Attachment, error) {
	if err := ValidateNewMessage(nm); err != nil {
		return models.Message{}, models.Attachment{}, err
	}

	id := uuid.NewString()
	att, err := WriteAttachment(s.blobs, id, nm.UserID, upload, s.now())
	if err != nil {
		return models.Message{}, models.Attachment{}, err
	}

	// Stamp under the lock so index order matches created_at order.
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.insertLocked(nm, id, s.now())
	att.CreatedAt = msg.CreatedAt
	msg.Attachments = append(msg.Attachments, att)
	s.attachments[att.StoredFilename] = att
	return copyMessage(msg), att, nil
}

func (s *MemoryStore) ListCounterparties(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.counterparties[userID]))
	for id := range s.counterparties[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) AttachmentByStoredName(_ context.Context, storedName string) (models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	att, ok := s.attachments[storedName]
	if !ok {
		return models.Attachment{}, fmt.Errorf("attachment %s: %w", storedName, ErrNotFound)
	}
	return att, nil
}

func (s *MemoryStore) Close() error { return nil }

func copyMessage(m *models.Message) models.Message {
	out := *m
	out.Attachments = append([]models.Attachment{}, m.Attachments...)
	return out
}
