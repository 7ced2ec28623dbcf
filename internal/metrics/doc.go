// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package metrics declares the gateway's Prometheus collectors. They are
// registered with the default registry and exposed on /metrics.
package metrics
