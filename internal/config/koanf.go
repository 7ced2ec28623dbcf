// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/parley/internal/validation"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/parley/config.yaml",
	"/etc/parley/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8090,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			AdminUsers:      []string{},
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Gateway: GatewayConfig{
			HeartbeatTimeout: 60 * time.Second,
			ReapInterval:     30 * time.Second,
			WriteWait:        10 * time.Second,
			PingPeriod:       54 * time.Second,
			MaxFrameSize:     16 << 20, // base64 inflates a 10 MiB upload to ~13.4 MiB
			FrameRate:        20,
			FrameBurst:       40,
		},
		Messages: MessagesConfig{
			MaxContentLength:    10000,
			MaxAttachmentSize:   10 << 20,
			AllowedMimeTypes:    append([]string(nil), validation.DefaultAllowedMimeTypes...),
			AttachmentDir:       "./attachments",
			AttachmentURLPrefix: "/api/attachments",
		},
		Storage: StorageConfig{
			Backend:                 "badger",
			BadgerPath:              "./data/messages",
			BreakerMaxRequests:      3,
			BreakerInterval:         time.Minute,
			BreakerTimeout:          30 * time.Second,
			BreakerFailureThreshold: 5,
		},
		Presence: PresenceConfig{
			Store:          "badger",
			RedisAddr:      "localhost:6379",
			RedisKeyPrefix: "parley:presence:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH when it exists, otherwise the first
// existing default path, otherwise "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.admin_users",
	"security.cors_origins",
	"messages.allowed_mime_types",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"admin_users":         "security.admin_users",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Gateway
	"ws_heartbeat_timeout": "gateway.heartbeat_timeout",
	"ws_reap_interval":     "gateway.reap_interval",
	"ws_write_wait":        "gateway.write_wait",
	"ws_ping_period":       "gateway.ping_period",
	"ws_max_frame_size":    "gateway.max_frame_size",
	"ws_frame_rate":        "gateway.frame_rate",
	"ws_frame_burst":       "gateway.frame_burst",

	// Messages
	"message_max_length":    "messages.max_content_length",
	"attachment_max_size":   "messages.max_attachment_size",
	"attachment_mime_types": "messages.allowed_mime_types",
	"attachment_dir":        "messages.attachment_dir",
	"attachment_url_prefix": "messages.attachment_url_prefix",

	// Storage
	"storage_backend":           "storage.backend",
	"badger_path":               "storage.badger_path",
	"breaker_max_requests":      "storage.breaker_max_requests",
	"breaker_interval":          "storage.breaker_interval",
	"breaker_timeout":           "storage.breaker_timeout",
	"breaker_failure_threshold": "storage.breaker_failure_threshold",

	// Presence
	"presence_store":   "presence.store",
	"redis_addr":       "presence.redis_addr",
	"redis_password":   "presence.redis_password",
	"redis_db":         "presence.redis_db",
	"redis_key_prefix": "presence.redis_key_prefix",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
//
//	HTTP_PORT -> server.port
//	WS_HEARTBEAT_TIMEOUT -> gateway.heartbeat_timeout
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
