// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package config loads gateway configuration with koanf.

Sources are layered, later ones winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, ./config.yaml, ./config.yml,
    /etc/parley/config.yaml
 3. Environment variables, mapped explicitly (JWT_SECRET, HTTP_PORT,
    WS_HEARTBEAT_TIMEOUT, STORAGE_BACKEND, PRESENCE_STORE, ...)

Comma-separated environment values populate list settings such as
ADMIN_USERS and CORS_ORIGINS. Validate runs after loading; a gateway never
starts with an invalid configuration.
*/
package config
