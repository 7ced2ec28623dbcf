// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/protocol"
)

// Connections is the view of the connection registry the tracker needs.
type Connections interface {
	ConnectionCount(userID string) int
	SendToUser(userID string, frame protocol.Outbound) int
}

type record struct {
	online   bool
	lastSeen time.Time
	seen     bool
}

// Tracker derives online/offline state from registry occupancy and records
// when each user's last connection closed.
type Tracker struct {
	conns Connections
	store LastSeenStore

	mu      sync.Mutex
	records map[string]*record

	now func() time.Time
}

// NewTracker creates a Tracker. A nil store keeps last-seen in memory only.
func NewTracker(conns Connections, store LastSeenStore) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		conns:   conns,
		store:   store,
		records: make(map[string]*record),
		now:     time.Now,
	}
}

func (t *Tracker) recordLocked(userID string) *record {
	r, ok := t.records[userID]
	if !ok {
		r = &record{}
		t.records[userID] = r
	}
	return r
}

// MarkOnline is called once per established connection. It always leaves
// the user online and tells each related user about it. last_seen is not
// touched, so a later replay still starts from the previous disconnect.
func (t *Tracker) MarkOnline(_ context.Context, userID string, related []string) {
	t.mu.Lock()
	t.recordLocked(userID).online = true
	t.mu.Unlock()

	t.notify(userID, related, protocol.NewPresenceUpdate(userID, true, time.Time{}))
}

// MarkOffline records last_seen and notifies related users, but only when
// the registry holds no connection for userID and the user is currently
// marked online. It reports whether the offline transition happened; for a
// contiguous period with zero connections it returns true exactly once.
//
// at must be taken before the last connection left the registry, so any
// message created while the user had no connection is at or after it and
// is replayed on reconnect. A zero at uses the current time.
func (t *Tracker) MarkOffline(ctx context.Context, userID string, related []string, at time.Time) bool {
	t.mu.Lock()
	if t.conns.ConnectionCount(userID) > 0 {
		t.mu.Unlock()
		return false
	}
	r := t.recordLocked(userID)
	if !r.online {
		t.mu.Unlock()
		return false
	}
	now := at
	if now.IsZero() {
		now = t.now()
	}
	r.online = false
	r.lastSeen = now
	r.seen = true
	t.mu.Unlock()

	if err := t.store.SetLastSeen(ctx, userID, now); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("Failed to persist last seen")
	}

	t.notify(userID, related, protocol.NewPresenceUpdate(userID, false, now))
	return true
}

// LastSeen returns when userID's last connection closed; ok is false when
// the user has never disconnected.
func (t *Tracker) LastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	t.mu.Lock()
	if r, ok := t.records[userID]; ok && r.seen {
		ts := r.lastSeen
		t.mu.Unlock()
		return ts, true, nil
	}
	t.mu.Unlock()

	ts, ok, err := t.store.GetLastSeen(ctx, userID)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load last seen: %w", err)
	}
	return ts, ok, nil
}

// IsOnline reports whether userID holds at least one live connection.
func (t *Tracker) IsOnline(userID string) bool {
	return t.conns.ConnectionCount(userID) > 0
}

// notify is best-effort: users who are not connected simply miss it.
func (t *Tracker) notify(userID string, related []string, frame protocol.PresenceUpdate) {
	for _, other := range related {
		if other == userID {
			continue
		}
		t.conns.SendToUser(other, frame)
	}
}
