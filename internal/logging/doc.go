// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package logging provides the process-wide zerolog logger.

Initialize once at startup from configuration:

	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})

Log with structured fields and always terminate the chain with Msg or Send:

	logging.Info().Str("user_id", id).Int("connections", n).Msg("User online")

Gateway sessions tag their context with the connection and user so that
every line they emit can be correlated:

	ctx = logging.ContextWithConnection(ctx, connID, userID)
	logging.Ctx(ctx).Warn().Err(err).Msg("Write failed")

NewSlogLogger bridges zerolog into log/slog for sutureslog.
*/
package logging
