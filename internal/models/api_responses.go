// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package models

import "time"

// APIResponse is the envelope for every JSON HTTP response.
//
// Success:
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}
//
// Error:
//
//	{"status":"error","data":null,"metadata":{...},"error":{"code":"UNAUTHORIZED","message":"..."}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is the machine-readable error body of a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status        string  `json:"status"`
	Version       string  `json:"version,omitempty"`
	Connections   int     `json:"connections"`
	OnlineUsers   int     `json:"online_users"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Store         string  `json:"store"`
}
