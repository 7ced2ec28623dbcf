// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package badgerstore provides the durable MessageStore on BadgerDB.
//
// The same database also holds last-seen timestamps for presence, so a
// restart does not lose the replay position of offline users.
//
// Key layout:
//
//	msg:<message_id>                            message JSON (with attachments)
//	conv:<user_id>:<created_at nanos>:<msg_id>  conversation index, creation order
//	att:<stored_filename>                       attachment JSON (with storage path)
//	cp:<user_id>:<other_user_id>                counterparty link
//	lastseen:<user_id>                          RFC 3339 timestamp
package badgerstore
