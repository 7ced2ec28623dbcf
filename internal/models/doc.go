// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package models defines the participants, messages and attachments shared by
// the gateway, the stores and the wire protocol.
package models
