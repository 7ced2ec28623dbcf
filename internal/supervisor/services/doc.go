// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package services provides suture.Service wrappers for gateway components.

Each wrapper translates a component lifecycle into suture's context-aware
Serve pattern and names the service through fmt.Stringer for log output.

HTTPServerService wraps *http.Server: ListenAndServe runs in a goroutine
and context cancellation triggers Shutdown with a bounded timeout.

GatewayService wraps the WebSocket gateway, whose RunWithContext already
blocks until cancellation and closes every session before returning.

Return values determine supervisor behavior:

	nil         -> service stopped cleanly, will not restart
	error       -> service crashed, supervisor will restart
	ctx.Err()   -> shutdown requested, normal termination
*/
package services
