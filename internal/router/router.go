// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package router resolves which conversation a message belongs to and who
// should receive it, based on the sender's role.
package router

import (
	"errors"
	"strings"

	"github.com/tomtom215/parley/internal/models"
)

// ErrTargetRequired is returned when an admin omits the conversation id.
var ErrTargetRequired = errors.New("conversation_id is required for admin senders")

// OnlineAdmins lists users currently connected with the admin role.
type OnlineAdmins interface {
	UsersWithRole(role models.Role) []string
}

// Route is the outcome of resolving one outbound action.
type Route struct {
	// ConversationID is the end-user id that keys the conversation.
	ConversationID string
	// Recipients are the users to fan out to. The sender is never included.
	Recipients []string
}

// Router implements role-based conversation routing. An end-user always
// writes into the conversation keyed by their own id and reaches the whole
// admin pool; an admin must name the end-user conversation explicitly.
type Router struct {
	admins OnlineAdmins
}

// New creates a Router.
func New(admins OnlineAdmins) *Router {
	return &Router{admins: admins}
}

// Resolve returns the conversation and recipients for a message or upload
// from sender. conversationID is ignored for end-users.
func (r *Router) Resolve(sender models.Identity, conversationID string) (Route, error) {
	if !sender.IsAdmin() {
		return Route{
			ConversationID: sender.UserID,
			Recipients:     r.otherAdmins(sender.UserID),
		}, nil
	}

	target := strings.TrimSpace(conversationID)
	if target == "" {
		return Route{}, ErrTargetRequired
	}
	recipients := []string{}
	if target != sender.UserID {
		recipients = append(recipients, target)
	}
	recipients = append(recipients, r.otherAdmins(sender.UserID)...)
	return Route{ConversationID: target, Recipients: recipients}, nil
}

// Counterparts resolves typing-indicator recipients. It follows the same
// rules as Resolve.
func (r *Router) Counterparts(sender models.Identity, conversationID string) (Route, error) {
	return r.Resolve(sender, conversationID)
}

func (r *Router) otherAdmins(exclude string) []string {
	online := r.admins.UsersWithRole(models.RoleAdmin)
	out := make([]string, 0, len(online))
	for _, id := range online {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
