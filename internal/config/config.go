// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package config

import "time"

// Config holds all gateway configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Messages MessagesConfig `koanf:"messages"`
	Storage  StorageConfig  `koanf:"storage"`
	Presence PresenceConfig `koanf:"presence"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// SecurityConfig holds token validation and HTTP protection settings.
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// AdminUsers are user IDs treated as admins regardless of the token role claim.
	AdminUsers []string `koanf:"admin_users"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// GatewayConfig holds WebSocket session settings.
type GatewayConfig struct {
	// HeartbeatTimeout is how long a connection may go without a ping or
	// pong before the reaper evicts it.
	HeartbeatTimeout time.Duration `koanf:"heartbeat_timeout"`

	// ReapInterval is how often stale connections are swept.
	ReapInterval time.Duration `koanf:"reap_interval"`

	WriteWait    time.Duration `koanf:"write_wait"`
	PingPeriod   time.Duration `koanf:"ping_period"`
	MaxFrameSize int64         `koanf:"max_frame_size"`

	// FrameRate and FrameBurst bound inbound frames per connection.
	FrameRate  float64 `koanf:"frame_rate"`
	FrameBurst int     `koanf:"frame_burst"`
}

// MessagesConfig holds message and attachment limits.
type MessagesConfig struct {
	MaxContentLength    int      `koanf:"max_content_length"`
	MaxAttachmentSize   int64    `koanf:"max_attachment_size"`
	AllowedMimeTypes    []string `koanf:"allowed_mime_types"`
	AttachmentDir       string   `koanf:"attachment_dir"`
	AttachmentURLPrefix string   `koanf:"attachment_url_prefix"`
}

// StorageConfig selects the message store and its circuit breaker settings.
type StorageConfig struct {
	// Backend is "memory" or "badger".
	Backend    string `koanf:"backend"`
	BadgerPath string `koanf:"badger_path"`

	BreakerMaxRequests      uint32        `koanf:"breaker_max_requests"`
	BreakerInterval         time.Duration `koanf:"breaker_interval"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
}

// PresenceConfig selects where last-seen timestamps are kept.
type PresenceConfig struct {
	// Store is "memory", "badger" (shares the message database) or "redis".
	Store          string `koanf:"store"`
	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	Caller bool `koanf:"caller"`
}

// IsProduction reports whether the gateway runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load is the standard entry point for configuration loading.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
