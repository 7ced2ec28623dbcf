// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package protocol defines the gateway's JSON wire format.

Every WebSocket text frame is one JSON object with a snake_case "type"
discriminator and the variant's fields at the top level:

	{"type":"send_message","content":"Hello","conversation_id":"u-42"}
	{"type":"message_delivered","message_id":"...","delivered_at":"2026-01-02T15:04:05Z"}

Decode turns a client frame into one of SendMessage, TypingStart,
TypingStop, MarkRead, Ping or UploadFile. Outbound frames are built with
the New* constructors and serialized with Encode.
*/
package protocol
