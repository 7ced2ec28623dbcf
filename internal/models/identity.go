// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package models

// Role distinguishes the two sides of a conversation.
type Role string

const (
	// RoleUser is an end-user (candidate). Each end-user owns exactly one
	// conversation, keyed by their user ID.
	RoleUser Role = "user"

	// RoleAdmin is a member of the admin pool servicing every conversation.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is an authenticated participant.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name,omitempty"`
}

// IsAdmin reports whether the identity belongs to the admin pool.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Sender returns the message sender label for this identity.
func (i Identity) Sender() Sender {
	if i.IsAdmin() {
		return SenderAdmin
	}
	return SenderUser
}
