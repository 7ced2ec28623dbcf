// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package badgerstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/presence"
	"github.com/tomtom215/parley/internal/store"
	"github.com/tomtom215/parley/internal/store/blob"
)

var (
	_ store.MessageStore     = (*Store)(nil)
	_ presence.LastSeenStore = (*Store)(nil)
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// createTestStore opens a Store on a fresh temp directory.
func createTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir, err := os.MkdirTemp("", "badger-message-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	opts := badger.DefaultOptions(filepath.Join(dir, "db"))
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("Failed to open BadgerDB: %v", err)
	}

	blobs, err := blob.NewDir(filepath.Join(dir, "attachments"), "/api/attachments")
	if err != nil {
		db.Close()
		os.RemoveAll(dir)
		t.Fatalf("Failed to create blob dir: %v", err)
	}

	s := New(db, blobs)
	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(dir)
	})
	return s, dir
}

func fromUser(body string) models.NewMessage {
	return models.NewMessage{UserID: "u1", Sender: models.SenderUser, SenderID: "u1", Body: body}
}

func fromAdmin(body string) models.NewMessage {
	return models.NewMessage{UserID: "u1", Sender: models.SenderAdmin, SenderID: "a1", Body: body}
}

func TestMessagesSinceOrderAndTies(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	fixed := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	var created []models.Message
	for _, body := range []string{"one", "two", "three"} {
		m, err := s.CreateMessage(ctx, fromAdmin(body))
		if err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
		created = append(created, m)
	}
	for i := 1; i < len(created); i++ {
		if !created[i].CreatedAt.After(created[i-1].CreatedAt) {
			t.Errorf("created_at not increasing: %v then %v", created[i-1].CreatedAt, created[i].CreatedAt)
		}
	}

	got, err := s.MessagesSince(ctx, "u1", created[1].CreatedAt)
	if err != nil {
		t.Fatalf("MessagesSince: %v", err)
	}
	if len(got) != 2 || got[0].ID != created[1].ID || got[1].ID != created[2].ID {
		t.Fatalf("MessagesSince = %v, want [two three]", bodies(got))
	}

	again, _ := s.MessagesSince(ctx, "u1", created[1].CreatedAt)
	if len(again) != 2 || again[0].ID != got[0].ID || again[1].ID != got[1].ID {
		t.Errorf("replay not idempotent: %v vs %v", bodies(again), bodies(got))
	}

	all, _ := s.MessagesSince(ctx, "u1", time.Time{})
	if len(all) != 3 {
		t.Errorf("MessagesSince(zero) = %d messages, want 3", len(all))
	}
	if none, _ := s.MessagesSince(ctx, "u10", time.Time{}); len(none) != 0 {
		t.Errorf("u10 prefix leaked %d messages from u1", len(none))
	}
}

func TestUserIDsContainingSeparatorStayIsolated(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateMessage(ctx, models.NewMessage{
		UserID: "alice:x", Sender: models.SenderAdmin, SenderID: "admin1", Body: "for alice:x only",
	}); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	got, err := s.MessagesSince(ctx, "alice", time.Time{})
	if err != nil {
		t.Fatalf("MessagesSince: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("alice received %v from conversation alice:x", bodies(got))
	}
	if own, _ := s.MessagesSince(ctx, "alice:x", time.Time{}); len(own) != 1 {
		t.Errorf("alice:x has %d messages, want 1", len(own))
	}

	if cps, _ := s.ListCounterparties(ctx, "alice"); len(cps) != 0 {
		t.Errorf("alice counterparties = %v, want none", cps)
	}
	if cps, _ := s.ListCounterparties(ctx, "alice:x"); len(cps) != 1 || cps[0] != "admin1" {
		t.Errorf("alice:x counterparties = %v, want [admin1]", cps)
	}
	if cps, _ := s.ListCounterparties(ctx, "admin1"); len(cps) != 1 || cps[0] != "alice:x" {
		t.Errorf("admin1 counterparties = %v, want [alice:x]", cps)
	}
}

func TestMarkRead(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	msg, _ := s.CreateMessage(ctx, fromAdmin("hello"))

	if err := s.MarkRead(ctx, msg.ID, models.Identity{UserID: "u2", Role: models.RoleUser}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("non-participant err = %v, want ErrNotFound", err)
	}
	if err := s.MarkRead(ctx, "nope", models.Identity{UserID: "u1", Role: models.RoleUser}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.MarkRead(ctx, msg.ID, models.Identity{UserID: "u1", Role: models.RoleUser}); err != nil {
			t.Fatalf("MarkRead #%d: %v", i, err)
		}
	}

	got, _ := s.MessagesSince(ctx, "u1", time.Time{})
	if len(got) != 1 || !got[0].IsRead {
		t.Errorf("is_read not persisted: %+v", got)
	}
}

func TestCreateMessageWithAttachment(t *testing.T) {
	s, dir := createTestStore(t)
	ctx := context.Background()

	msg, att, err := s.CreateMessageWithAttachment(ctx, fromUser(store.UploadMessageBody("cv.pdf")), models.AttachmentUpload{
		UploadID: "upl", Filename: "cv.pdf", MimeType: "application/pdf", Data: pdfBytes,
	})
	if err != nil {
		t.Fatalf("CreateMessageWithAttachment: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "attachments", "upl_cv.pdf")); err != nil {
		t.Errorf("blob missing: %v", err)
	}

	found, err := s.AttachmentByStoredName(ctx, att.StoredFilename)
	if err != nil {
		t.Fatalf("AttachmentByStoredName: %v", err)
	}
	if found.StoragePath == "" || found.MessageID != msg.ID || found.ConversationID != "u1" {
		t.Errorf("attachment = %+v", found)
	}

	replayed, _ := s.MessagesSince(ctx, "u1", time.Time{})
	if len(replayed) != 1 || len(replayed[0].Attachments) != 1 {
		t.Fatalf("replayed = %+v", replayed)
	}
	if replayed[0].Attachments[0].FileURL != "/api/attachments/upl_cv.pdf" {
		t.Errorf("file_url = %q", replayed[0].Attachments[0].FileURL)
	}

	if _, err := s.AttachmentByStoredName(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUploadRejectedPersistsNothing(t *testing.T) {
	s, dir := createTestStore(t)
	ctx := context.Background()
	exe := append([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0}, make([]byte, 56)...)

	_, _, err := s.CreateMessageWithAttachment(ctx, fromUser("Sent file: cv.pdf"), models.AttachmentUpload{
		UploadID: "bad", Filename: "cv.pdf", MimeType: "application/pdf", Data: exe,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if msgs, _ := s.MessagesSince(ctx, "u1", time.Time{}); len(msgs) != 0 {
		t.Errorf("message created for rejected upload")
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "attachments"))
	if len(entries) != 0 {
		t.Errorf("blob written for rejected upload: %d files", len(entries))
	}
}

func TestSaveAttachment(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	msg, _ := s.CreateMessage(ctx, fromAdmin("offer attached"))

	att, err := s.SaveAttachment(ctx, msg.ID, models.AttachmentUpload{
		UploadID: "o1", Filename: "offer.pdf", MimeType: "application/pdf", Data: pdfBytes,
	})
	if err != nil {
		t.Fatalf("SaveAttachment: %v", err)
	}
	got, _ := s.MessagesSince(ctx, "u1", time.Time{})
	if len(got) != 1 || len(got[0].Attachments) != 1 || got[0].Attachments[0].ID != att.ID {
		t.Errorf("attachment not linked: %+v", got)
	}

	if _, err := s.SaveAttachment(ctx, "missing", models.AttachmentUpload{
		UploadID: "o2", Filename: "x.pdf", MimeType: "application/pdf", Data: pdfBytes,
	}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListCounterparties(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	_, _ = s.CreateMessage(ctx, fromUser("hi"))
	_, _ = s.CreateMessage(ctx, fromAdmin("hello"))
	_, _ = s.CreateMessage(ctx, models.NewMessage{UserID: "u2", Sender: models.SenderAdmin, SenderID: "a1", Body: "hey"})
	_, _ = s.CreateMessage(ctx, models.NewMessage{UserID: "u1", Sender: models.SenderAdmin, SenderID: "a2", Body: "me too"})

	if got, _ := s.ListCounterparties(ctx, "u1"); len(got) != 2 || got[0] != "a1" || got[1] != "a2" {
		t.Errorf("u1 counterparties = %v, want [a1 a2]", got)
	}
	if got, _ := s.ListCounterparties(ctx, "a1"); len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Errorf("a1 counterparties = %v, want [u1 u2]", got)
	}
}

func TestLastSeen(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetLastSeen(ctx, "u1"); err != nil || ok {
		t.Fatalf("GetLastSeen before set = %v %v", ok, err)
	}
	at := time.Date(2026, 6, 1, 8, 30, 0, 123, time.UTC)
	if err := s.SetLastSeen(ctx, "u1", at); err != nil {
		t.Fatalf("SetLastSeen: %v", err)
	}
	got, ok, err := s.GetLastSeen(ctx, "u1")
	if err != nil || !ok || !got.Equal(at) {
		t.Errorf("GetLastSeen = %v %v %v, want %v", got, ok, err, at)
	}
}

func TestReopenKeepsMessages(t *testing.T) {
	dir := t.TempDir()
	blobs, _ := blob.NewDir(filepath.Join(dir, "att"), "/api/attachments")

	s, err := Open(filepath.Join(dir, "db"), blobs)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	msg, _ := s.CreateMessage(context.Background(), fromAdmin("durable"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(filepath.Join(dir, "db"), blobs)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, _ := s.MessagesSince(context.Background(), "u1", time.Time{})
	if len(got) != 1 || got[0].ID != msg.ID {
		t.Errorf("after reopen = %v", bodies(got))
	}
}

func bodies(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Body
	}
	return out
}
