// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	minJWTSecretLength   = 32
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
	minHeartbeatTimeout  = time.Second
)

var (
	validLogLevels     = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	validLogFormats    = map[string]bool{"json": true, "console": true}
	validBackends      = map[string]bool{"memory": true, "badger": true}
	validPresenceStore = map[string]bool{"memory": true, "badger": true, "redis": true}
)

// placeholderPatterns indicate a secret copied from an example file.
var placeholderPatterns = []string{"REPLACE", "CHANGEME", "CHANGE_ME", "YOUR_SECRET", "EXAMPLE"}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateGateway(); err != nil {
		return err
	}
	if err := c.validateMessages(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	upper := strings.ToUpper(c.Security.JWTSecret)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return fmt.Errorf("JWT_SECRET appears to be a placeholder value")
		}
	}

	if c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production; set explicit origins")
	}

	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateGateway() error {
	g := c.Gateway
	if g.HeartbeatTimeout < minHeartbeatTimeout {
		return fmt.Errorf("WS_HEARTBEAT_TIMEOUT must be at least %v", minHeartbeatTimeout)
	}
	if g.ReapInterval <= 0 {
		return fmt.Errorf("WS_REAP_INTERVAL must be positive")
	}
	if g.PingPeriod <= 0 || g.PingPeriod >= g.HeartbeatTimeout {
		return fmt.Errorf("WS_PING_PERIOD must be positive and shorter than WS_HEARTBEAT_TIMEOUT")
	}
	if g.WriteWait <= 0 {
		return fmt.Errorf("WS_WRITE_WAIT must be positive")
	}
	if g.MaxFrameSize < 1024 {
		return fmt.Errorf("WS_MAX_FRAME_SIZE must be at least 1024 bytes")
	}
	if g.FrameRate <= 0 || g.FrameBurst < 1 {
		return fmt.Errorf("WS_FRAME_RATE and WS_FRAME_BURST must be positive")
	}
	return nil
}

func (c *Config) validateMessages() error {
	m := c.Messages
	if m.MaxContentLength < 1 {
		return fmt.Errorf("MESSAGE_MAX_LENGTH must be positive")
	}
	if m.MaxAttachmentSize < 1 {
		return fmt.Errorf("ATTACHMENT_MAX_SIZE must be positive")
	}
	// base64 inflates payloads by 4/3; the frame limit must admit the largest upload.
	if m.MaxAttachmentSize*4/3 > c.Gateway.MaxFrameSize {
		return fmt.Errorf("WS_MAX_FRAME_SIZE (%d) is too small for ATTACHMENT_MAX_SIZE (%d) after base64 encoding",
			c.Gateway.MaxFrameSize, m.MaxAttachmentSize)
	}
	if len(m.AllowedMimeTypes) == 0 {
		return fmt.Errorf("ATTACHMENT_MIME_TYPES must list at least one type")
	}
	if m.AttachmentDir == "" {
		return fmt.Errorf("ATTACHMENT_DIR is required")
	}
	if !strings.HasPrefix(m.AttachmentURLPrefix, "/") {
		return fmt.Errorf("ATTACHMENT_URL_PREFIX must start with /")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("STORAGE_BACKEND must be one of: memory, badger")
	}
	if c.Storage.Backend == "badger" && c.Storage.BadgerPath == "" {
		return fmt.Errorf("BADGER_PATH is required when STORAGE_BACKEND=badger")
	}
	if c.Storage.BreakerFailureThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1")
	}

	if !validPresenceStore[c.Presence.Store] {
		return fmt.Errorf("PRESENCE_STORE must be one of: memory, badger, redis")
	}
	if c.Presence.Store == "badger" && c.Storage.Backend != "badger" {
		return fmt.Errorf("PRESENCE_STORE=badger requires STORAGE_BACKEND=badger")
	}
	if c.Presence.Store == "redis" && c.Presence.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when PRESENCE_STORE=redis")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
