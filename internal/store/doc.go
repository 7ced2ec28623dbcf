// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package store defines the MessageStore contract used by the gateway and
// provides an in-memory implementation plus a circuit-breaker decorator.
//
// The durable BadgerDB implementation lives in package badgerstore and the
// attachment blob directory in package blob.
//
// # Error Contract
//
// Implementations wrap their failures with the sentinel errors declared
// here so callers can map them with errors.Is:
//
//   - ErrNotFound: unknown message/attachment, or a reader outside the conversation
//   - ErrValidation: rejected input (e.g. sniffed type mismatch); nothing stored
//   - ErrStorage: attachment bytes could not be written
//   - ErrPersistence: the database failed
//   - ErrUnavailable: the circuit breaker is open
package store
