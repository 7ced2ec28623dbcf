// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package badgerstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/store"
)

// Key prefixes for BadgerDB storage
const (
	messageKeyPrefix      = "msg:"
	conversationKeyPrefix = "conv:"
	attachmentKeyPrefix   = "att:"
	counterpartyKeyPrefix = "cp:"
	lastSeenKeyPrefix     = "lastseen:"
)

// conflictRetries bounds retries of read-modify-write transactions that
// lose an optimistic-concurrency race.
const conflictRetries = 3

// attachmentRecord keeps the storage path, which is not part of the wire
// representation of an attachment.
type attachmentRecord struct {
	models.Attachment
	Path string `json:"storage_path"`
}

// Store is a BadgerDB-backed MessageStore and LastSeenStore.
//
// Messages are stored once under msg:<id>. Each conversation has an ordered
// index conv:<hex(user_id)>:<created_at nanos>:<id>, so MessagesSince is a
// single prefix scan in creation order. User ids are hex-encoded inside
// composite keys so an id containing ':' can never fall under another
// user's prefix. Creation timestamps are made
// strictly increasing per store so that key order equals creation order.
type Store struct {
	db    *badger.DB
	blobs store.BlobStore

	mu       sync.Mutex
	lastNano int64

	now func() time.Time
}

// Open opens (or creates) a BadgerDB at path.
func Open(path string, blobs store.BlobStore) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().Str("path", path).Msg("Message store opened")
	return New(db, blobs), nil
}

// New wraps an already open database.
func New(db *badger.DB, blobs store.BlobStore) *Store {
	return &Store{db: db, blobs: blobs, now: time.Now}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// nextTimestamp returns now, bumped past the previous value if the clock
// did not advance.
func (s *Store) nextTimestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC()
	if n := t.UnixNano(); n <= s.lastNano {
		t = time.Unix(0, s.lastNano+1).UTC()
	}
	s.lastNano = t.UnixNano()
	return t
}

func messageKey(id string) []byte { return []byte(messageKeyPrefix + id) }

// userSegment encodes a user id for use inside a composite key.
func userSegment(userID string) string { return hex.EncodeToString([]byte(userID)) }

func conversationPrefix(userID string) []byte {
	return []byte(conversationKeyPrefix + userSegment(userID) + ":")
}

func conversationKey(userID string, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", conversationKeyPrefix, userSegment(userID), at.UnixNano(), id))
}

func conversationSeekKey(userID string, since time.Time) []byte {
	if since.Before(time.Unix(0, 0)) {
		return conversationPrefix(userID)
	}
	return []byte(fmt.Sprintf("%s%s:%020d:", conversationKeyPrefix, userSegment(userID), since.UnixNano()))
}

func attachmentKey(stored string) []byte { return []byte(attachmentKeyPrefix + stored) }

func counterpartyPrefix(userID string) []byte {
	return []byte(counterpartyKeyPrefix + userSegment(userID) + ":")
}

func counterpartyKey(userID, other string) []byte {
	return append(counterpartyPrefix(userID), userSegment(other)...)
}

func lastSeenKey(userID string) []byte { return []byte(lastSeenKeyPrefix + userID) }

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, store.ErrPersistence, err)
}

func (s *Store) CreateMessage(_ context.Context, nm models.NewMessage) (models.Message, error) {
	if err := store.ValidateNewMessage(nm); err != nil {
		return models.Message{}, err
	}
	msg := newMessage(nm, uuid.NewString(), s.nextTimestamp())

	if err := s.db.Update(func(txn *badger.Txn) error {
		return putMessage(txn, msg, true)
	}); err != nil {
		return models.Message{}, persistence("create message", err)
	}
	return msg, nil
}

func newMessage(nm models.NewMessage, id string, at time.Time) models.Message {
	return models.Message{
		ID:          id,
		UserID:      nm.UserID,
		Sender:      nm.Sender,
		SenderID:    nm.SenderID,
		Body:        nm.Body,
		Attachments: []models.Attachment{},
		CreatedAt:   at,
	}
}

// putMessage writes msg and, for new messages, its conversation index and
// counterparty links.
func putMessage(txn *badger.Txn, msg models.Message, isNew bool) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := txn.Set(messageKey(msg.ID), data); err != nil {
		return fmt.Errorf("set message: %w", err)
	}
	if !isNew {
		return nil
	}
	if err := txn.Set(conversationKey(msg.UserID, msg.CreatedAt, msg.ID), []byte(msg.ID)); err != nil {
		return fmt.Errorf("set conversation index: %w", err)
	}
	if msg.Sender == models.SenderAdmin && msg.SenderID != "" && msg.SenderID != msg.UserID {
		if err := txn.Set(counterpartyKey(msg.UserID, msg.SenderID), nil); err != nil {
			return fmt.Errorf("set counterparty: %w", err)
		}
		if err := txn.Set(counterpartyKey(msg.SenderID, msg.UserID), nil); err != nil {
			return fmt.Errorf("set counterparty: %w", err)
		}
	}
	return nil
}

func putAttachment(txn *badger.Txn, att models.Attachment) error {
	data, err := json.Marshal(attachmentRecord{Attachment: att, Path: att.StoragePath})
	if err != nil {
		return fmt.Errorf("marshal attachment: %w", err)
	}
	return txn.Set(attachmentKey(att.StoredFilename), data)
}

func getMessage(txn *badger.Txn, id string) (models.Message, error) {
	var msg models.Message
	item, err := txn.Get(messageKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return msg, fmt.Errorf("message %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return msg, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &msg)
	})
	return msg, err
}

func (s *Store) MessagesSince(_ context.Context, userID string, since time.Time) ([]models.Message, error) {
	var out []models.Message

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := conversationPrefix(userID)
		for it.Seek(conversationSeekKey(userID, since)); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			msg, err := getMessage(txn, id)
			if err != nil {
				return err
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, persistence("messages since", err)
	}
	return out, nil
}

func (s *Store) MarkRead(_ context.Context, messageID string, reader models.Identity) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			msg, err := getMessage(txn, messageID)
			if err != nil {
				return err
			}
			if !store.CanRead(reader, msg) {
				return fmt.Errorf("message %s: %w", messageID, store.ErrNotFound)
			}
			if msg.IsRead {
				return nil
			}
			msg.IsRead = true
			return putMessage(txn, msg, false)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return err
	default:
		return persistence("mark read", err)
	}
}

func (s *Store) SaveAttachment(_ context.Context, messageID string, upload models.AttachmentUpload) (models.Attachment, error) {
	var conversation string
	if err := s.db.View(func(txn *badger.Txn) error {
		msg, err := getMessage(txn, messageID)
		conversation = msg.UserID
		return err
	}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Attachment{}, err
		}
		return models.Attachment{}, persistence("save attachment", err)
	}

	att, err := store.WriteAttachment(s.blobs, messageID, conversation, upload, s.now().UTC())
	if err != nil {
		return models.Attachment{}, err
	}

	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			msg, err := getMessage(txn, messageID)
			if err != nil {
				return err
			}
			msg.Attachments = append(msg.Attachments, att)
			if err := putMessage(txn, msg, false); err != nil {
				return err
			}
			return putAttachment(txn, att)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		_ = s.blobs.Remove(att.StoredFilename)
		if errors.Is(err, store.ErrNotFound) {
			return models.Attachment{}, err
		}
		return models.Attachment{}, persistence("save attachment", err)
	}
	return att, nil
}

func (s *Store) CreateMessageWithAttachment(_ context.Context, nm models.NewMessage, upload models.AttachmentUpload) (models.Message, models.Attachment, error) {
	if err := store.ValidateNewMessage(nm); err != nil {
		return models.Message{}, models.Attachment{}, err
	}

	msg := newMessage(nm, uuid.NewString(), s.nextTimestamp())
	att, err := store.WriteAttachment(s.blobs, msg.ID, msg.UserID, upload, msg.CreatedAt)
	if err != nil {
		return models.Message{}, models.Attachment{}, err
	}
	msg.Attachments = append(msg.Attachments, att)

	if err := s.db.Update(func(txn *badger.Txn) error {
		if err := putMessage(txn, msg, true); err != nil {
			return err
		}
		return putAttachment(txn, att)
	}); err != nil {
		_ = s.blobs.Remove(att.StoredFilename)
		return models.Message{}, models.Attachment{}, persistence("create message with attachment", err)
	}
	return msg, att, nil
}

func (s *Store) ListCounterparties(_ context.Context, userID string) ([]string, error) {
	var out []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := counterpartyPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			other, err := hex.DecodeString(string(it.Item().Key()[len(prefix):]))
			if err != nil {
				return fmt.Errorf("decode counterparty key: %w", err)
			}
			out = append(out, string(other))
		}
		return nil
	})
	if err != nil {
		return nil, persistence("list counterparties", err)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AttachmentByStoredName(_ context.Context, storedName string) (models.Attachment, error) {
	var rec attachmentRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(attachmentKey(storedName))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("attachment %s: %w", storedName, store.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Attachment{}, err
		}
		return models.Attachment{}, persistence("attachment lookup", err)
	}

	att := rec.Attachment
	att.StoragePath = rec.Path
	return att, nil
}

// GetLastSeen implements presence.LastSeenStore.
func (s *Store) GetLastSeen(_ context.Context, userID string) (time.Time, bool, error) {
	var (
		t  time.Time
		ok bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lastSeenKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, err := time.Parse(time.RFC3339Nano, string(val))
			if err != nil {
				return err
			}
			t, ok = parsed, true
			return nil
		})
	})
	if err != nil {
		return time.Time{}, false, persistence("get last seen", err)
	}
	return t, ok, nil
}

// SetLastSeen implements presence.LastSeenStore.
func (s *Store) SetLastSeen(_ context.Context, userID string, t time.Time) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(lastSeenKey(userID), []byte(t.UTC().Format(time.RFC3339Nano)))
	})
	if err != nil {
		return persistence("set last seen", err)
	}
	return nil
}
