// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package presence

import (
	"context"
	"sync"
	"time"
)

// LastSeenStore persists the instant each user's last connection closed.
type LastSeenStore interface {
	// GetLastSeen returns ok=false when the user has never disconnected.
	GetLastSeen(ctx context.Context, userID string) (t time.Time, ok bool, err error)
	SetLastSeen(ctx context.Context, userID string, t time.Time) error
}

// MemoryStore is a process-local LastSeenStore.
type MemoryStore struct {
	mu   sync.RWMutex
	seen map[string]time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time)}
}

func (s *MemoryStore) GetLastSeen(_ context.Context, userID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.seen[userID]
	return t, ok, nil
}

func (s *MemoryStore) SetLastSeen(_ context.Context, userID string, t time.Time) error {
	s.mu.Lock()
	s.seen[userID] = t
	s.mu.Unlock()
	return nil
}
