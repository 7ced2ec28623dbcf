// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package middleware provides HTTP middleware shared by the gateway routes.

Both middlewares use the chi signature func(http.Handler) http.Handler and
are installed by the api package:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

RequestID reuses an upstream X-Request-ID header when present and otherwise
generates one. PrometheusMetrics labels requests by chi route pattern and
passes http.Hijacker through so WebSocket upgrades still work behind it.
*/
package middleware
