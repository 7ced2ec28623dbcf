// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package protocol

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/validation"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, f Inbound)
	}{
		{
			name:  "send_message",
			input: `{"type":"send_message","content":"hello","conversation_id":"u1"}`,
			check: func(t *testing.T, f Inbound) {
				m, ok := f.(SendMessage)
				if !ok {
					t.Fatalf("got %T, want SendMessage", f)
				}
				if m.Content != "hello" || m.ConversationID != "u1" {
					t.Errorf("unexpected fields: %+v", m)
				}
			},
		},
		{
			name:  "send_message without conversation",
			input: `{"type":"send_message","content":"hi"}`,
			check: func(t *testing.T, f Inbound) {
				if m := f.(SendMessage); m.ConversationID != "" {
					t.Errorf("ConversationID = %q, want empty", m.ConversationID)
				}
			},
		},
		{
			name:  "typing_start",
			input: `{"type":"typing_start","conversation_id":"u1"}`,
			check: func(t *testing.T, f Inbound) {
				if m, ok := f.(TypingStart); !ok || m.ConversationID != "u1" {
					t.Errorf("got %#v", f)
				}
			},
		},
		{
			name:  "typing_stop",
			input: `{"type":"typing_stop","conversation_id":"u1"}`,
			check: func(t *testing.T, f Inbound) {
				if _, ok := f.(TypingStop); !ok {
					t.Errorf("got %T", f)
				}
			},
		},
		{
			name:  "mark_read",
			input: `{"type":"mark_read","message_id":"m1"}`,
			check: func(t *testing.T, f Inbound) {
				if m, ok := f.(MarkRead); !ok || m.MessageID != "m1" {
					t.Errorf("got %#v", f)
				}
			},
		},
		{
			name:  "ping",
			input: `{"type":"ping"}`,
			check: func(t *testing.T, f Inbound) {
				if _, ok := f.(Ping); !ok {
					t.Errorf("got %T", f)
				}
			},
		},
		{
			name:  "upload_file decodes base64",
			input: `{"type":"upload_file","filename":"a.txt","mime_type":"text/plain","data":"aGVsbG8="}`,
			check: func(t *testing.T, f Inbound) {
				u, ok := f.(UploadFile)
				if !ok {
					t.Fatalf("got %T", f)
				}
				if string(u.Data) != "hello" {
					t.Errorf("Data = %q, want hello", u.Data)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			tt.check(t, f)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		wantCode string
	}{
		{name: "not json", input: `hello`, wantErr: ErrMalformedFrame, wantCode: CodeProtocol},
		{name: "missing type", input: `{"content":"x"}`, wantErr: ErrMalformedFrame, wantCode: CodeProtocol},
		{name: "type not string", input: `{"type":42}`, wantErr: ErrMalformedFrame, wantCode: CodeProtocol},
		{name: "unknown type", input: `{"type":"delete_everything"}`, wantErr: ErrUnknownFrame, wantCode: CodeProtocol},
		{name: "wrong field type", input: `{"type":"mark_read","message_id":7}`, wantErr: ErrMalformedFrame, wantCode: CodeProtocol},
		{name: "bad base64", input: `{"type":"upload_file","filename":"a","mime_type":"text/plain","data":"***"}`, wantErr: ErrMalformedFrame, wantCode: CodeProtocol},
		{name: "missing message id", input: `{"type":"mark_read"}`, wantCode: CodeValidation},
		{name: "typing without conversation", input: `{"type":"typing_start"}`, wantCode: CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if got := ErrorCode(err); got != tt.wantCode {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.wantCode)
			}
			if tt.wantCode == CodeValidation {
				var verr *validation.RequestValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected *RequestValidationError, got %T", err)
				}
			}
		})
	}
}

func TestEncodeFlatTaggedFrames(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := models.Message{ID: "m1", UserID: "u1", Sender: models.SenderAdmin, SenderID: "a1", Body: "hi", CreatedAt: at}

	tests := []struct {
		frame    Outbound
		wantType string
		contains []string
	}{
		{NewConnected("u1"), TypeConnected, []string{`"user_id":"u1"`}},
		{NewMissedMessages([]models.Message{msg}), TypeMissedMessages, []string{`"count":1`, `"id":"m1"`}},
		{NewMissedMessages(nil), TypeMissedMessages, []string{`"count":0`, `"messages":[]`}},
		{NewMessageReceived(msg), TypeMessageReceived, []string{`"sender":"admin"`, `"attachments":[]`}},
		{NewMessageDelivered("m1", at), TypeMessageDelivered, []string{`"message_id":"m1"`, `"delivered_at":"2026-03-01T12:00:00Z"`}},
		{NewTypingIndicator("u1", "Ann", "u1", true), TypeTypingIndicator, []string{`"user_name":"Ann"`, `"is_typing":true`}},
		{NewReadReceipt("m1", "u1", at), TypeReadReceipt, []string{`"read_by":"u1"`}},
		{NewFileUploadComplete("up1", models.Attachment{FileURL: "/api/attachments/up1_a.pdf"}), TypeFileUploadComplete, []string{`"file_url":"/api/attachments/up1_a.pdf"`}},
		{NewPresenceUpdate("u1", true, time.Time{}), TypePresenceUpdate, []string{`"status":"online"`}},
		{NewPresenceUpdate("u1", false, at), TypePresenceUpdate, []string{`"status":"offline"`, `"last_seen"`}},
		{NewPong(), TypePong, nil},
		{NewError(CodeNotFound, "message not found"), TypeError, []string{`"code":"NOT_FOUND"`}},
	}

	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			data, err := Encode(tt.frame)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			var env struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("output is not a JSON object: %v", err)
			}
			if env.Type != tt.wantType || tt.frame.FrameType() != tt.wantType {
				t.Errorf("type = %q, want %q", env.Type, tt.wantType)
			}
			for _, want := range tt.contains {
				if !strings.Contains(string(data), want) {
					t.Errorf("%s missing %s", data, want)
				}
			}
		})
	}
}

func TestOnlinePresenceOmitsLastSeen(t *testing.T) {
	data, err := Encode(NewPresenceUpdate("u1", true, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "last_seen") {
		t.Errorf("online presence should not carry last_seen: %s", data)
	}
}

func TestTypeOf(t *testing.T) {
	for _, raw := range []string{
		`{"type":"send_message","content":"hi"}`,
		`{"type":"typing_stop","conversation_id":"u1"}`,
		`{"type":"ping"}`,
	} {
		f, err := Decode([]byte(raw))
		if err != nil {
			t.Fatalf("Decode(%s): %v", raw, err)
		}
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal([]byte(raw), &env)
		if got := TypeOf(f); got != env.Type {
			t.Errorf("TypeOf = %q, want %q", got, env.Type)
		}
	}
}
