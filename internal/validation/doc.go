// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package validation checks inbound frames and uploads.
//
// Struct rules are expressed as go-playground/validator tags and evaluated by
// a shared singleton (ValidateStruct). Rules that need configuration or the
// payload bytes (content length, attachment allow-list, content sniffing)
// have dedicated functions. All failures are *RequestValidationError, which
// the gateway reports as a VALIDATION_ERROR frame.
package validation
