// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package auth

import (
	"context"
	"errors"
	"sync"
)

// UnknownName is shown when a display name cannot be resolved.
const UnknownName = "Unknown"

// ErrUnknownUser is returned by a Directory that has no entry for a user.
var ErrUnknownUser = errors.New("unknown user")

// Directory resolves display names for typing indicators.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// NameCache is a Directory fed from the name claims of validated tokens.
type NameCache struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewNameCache creates an empty NameCache.
func NewNameCache() *NameCache {
	return &NameCache{names: make(map[string]string)}
}

// Remember records the latest display name for userID.
func (c *NameCache) Remember(userID, name string) {
	c.mu.Lock()
	c.names[userID] = name
	c.mu.Unlock()
}

// DisplayName implements Directory.
func (c *NameCache) DisplayName(_ context.Context, userID string) (string, error) {
	c.mu.RLock()
	name, ok := c.names[userID]
	c.mu.RUnlock()
	if !ok {
		return "", ErrUnknownUser
	}
	return name, nil
}

// ResolveName looks userID up in d and falls back to UnknownName.
func ResolveName(ctx context.Context, d Directory, userID string) string {
	if d == nil {
		return UnknownName
	}
	name, err := d.DisplayName(ctx, userID)
	if err != nil || name == "" {
		return UnknownName
	}
	return name
}
