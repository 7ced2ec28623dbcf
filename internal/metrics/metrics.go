// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSOnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_online_users",
			Help: "Current number of users with at least one connection",
		},
	)

	WSFramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_frames_received_total",
			Help: "Total number of inbound frames by type",
		},
		[]string{"type"},
	)

	WSFramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_frames_sent_total",
			Help: "Total number of outbound frames written by type",
		},
		[]string{"type"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of Error frames sent, by code",
		},
		[]string{"code"},
	)

	WSEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_evictions_total",
			Help: "Total number of connections evicted for a stale heartbeat",
		},
	)

	WSFanoutDeliveries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_fanout_deliveries",
			Help:    "Number of connections reached per fan-out",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25},
		},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "message_store_operation_duration_seconds",
			Help:    "Duration of message store operations in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "message_store_operation_errors_total",
			Help: "Total number of failed message store operations",
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// HTTP Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordStoreOperation records the duration and outcome of a store call.
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an HTTP request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
