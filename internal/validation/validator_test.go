// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type frameFixture struct {
	MessageID string `json:"message_id" validate:"required"`
	Status    string `json:"status" validate:"omitempty,oneof=online offline"`
	Note      string `json:"note" validate:"max=5"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     frameFixture
		wantErr   bool
		wantField string
		wantTag   string
	}{
		{name: "valid", input: frameFixture{MessageID: "m1", Status: "online"}},
		{name: "missing required", input: frameFixture{}, wantErr: true, wantField: "message_id", wantTag: "required"},
		{name: "bad oneof", input: frameFixture{MessageID: "m1", Status: "away"}, wantErr: true, wantField: "status", wantTag: "oneof"},
		{name: "too long", input: frameFixture{MessageID: "m1", Note: "abcdef"}, wantErr: true, wantField: "note", wantTag: "max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if err.Code() != CodeValidation {
				t.Errorf("Code() = %q, want %q", err.Code(), CodeValidation)
			}
			fe := err.Errors()[0]
			if fe.Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", fe.Field(), tt.wantField)
			}
			if fe.Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", fe.Tag(), tt.wantTag)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("message %q should name the field", err.Error())
			}
		})
	}
}

func TestRequestValidationError_EmptyMessage(t *testing.T) {
	ve := &RequestValidationError{}
	if ve.Error() != "validation failed" {
		t.Errorf("Error() = %q", ve.Error())
	}
}
