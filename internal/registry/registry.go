// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/parley/internal/metrics"
	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/protocol"
)

// ErrConnectionNotFound is returned when a connection ID is not registered.
var ErrConnectionNotFound = errors.New("connection not found")

// Outbound is the producer side of one connection's outbound queue.
// Push must not block. Close makes every later Push fail and ends the
// connection's writer loop.
type Outbound interface {
	Push(frame protocol.Outbound) error
	Close()
}

type connection struct {
	id        string
	identity  models.Identity
	out       Outbound
	heartbeat atomic.Int64 // unix nanos
}

// Registry maps users to their live connections. It is the only component
// that pushes frames onto a connection's outbound queue.
//
// All map access happens under mu; Push is non-blocking so fan-out may run
// under the read lock without ever waiting on a socket.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*connection
	byUser map[string]map[string]*connection
	now    func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		conns:  make(map[string]*connection),
		byUser: make(map[string]map[string]*connection),
		now:    time.Now,
	}
}

// Register adds a connection for identity. Registering an ID that already
// exists replaces the previous entry.
func (r *Registry) Register(identity models.Identity, connectionID string, out Outbound) {
	c := &connection{id: connectionID, identity: identity, out: out}
	c.heartbeat.Store(r.now().UnixNano())

	r.mu.Lock()
	if old, ok := r.conns[connectionID]; ok {
		r.removeLocked(old)
	}
	r.conns[connectionID] = c
	set, ok := r.byUser[identity.UserID]
	if !ok {
		set = make(map[string]*connection)
		r.byUser[identity.UserID] = set
	}
	set[connectionID] = c
	r.updateGaugesLocked()
	r.mu.Unlock()
}

// Unregister removes a connection. It reports whether the connection was
// present and how many connections its user still holds. Unregistering an
// unknown ID is a no-op.
func (r *Registry) Unregister(connectionID string) (removed bool, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connectionID]
	if !ok {
		return false, 0
	}
	r.removeLocked(c)
	r.updateGaugesLocked()
	return true, len(r.byUser[c.identity.UserID])
}

func (r *Registry) removeLocked(c *connection) {
	delete(r.conns, c.id)
	if set, ok := r.byUser[c.identity.UserID]; ok {
		delete(set, c.id)
		if len(set) == 0 {
			delete(r.byUser, c.identity.UserID)
		}
	}
}

func (r *Registry) updateGaugesLocked() {
	metrics.WSConnections.Set(float64(len(r.conns)))
	metrics.WSOnlineUsers.Set(float64(len(r.byUser)))
}

// SendToUser pushes frame to every live connection of userID and returns
// how many accepted it. A closed connection is skipped without affecting
// the others; 0 means the user is not connected anywhere.
func (r *Registry) SendToUser(userID string, frame protocol.Outbound) int {
	r.mu.RLock()
	delivered := 0
	for _, c := range r.byUser[userID] {
		if err := c.out.Push(frame); err == nil {
			delivered++
		}
	}
	r.mu.RUnlock()

	metrics.WSFanoutDeliveries.Observe(float64(delivered))
	return delivered
}

// SendToUsers fans frame out to each distinct user in userIDs and returns
// the total number of connections reached.
func (r *Registry) SendToUsers(userIDs []string, frame protocol.Outbound) int {
	seen := make(map[string]struct{}, len(userIDs))
	total := 0
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		total += r.SendToUser(id, frame)
	}
	return total
}

// SendToConnection pushes frame to exactly one connection.
func (r *Registry) SendToConnection(connectionID string, frame protocol.Outbound) error {
	r.mu.RLock()
	c, ok := r.conns[connectionID]
	r.mu.RUnlock()
	if !ok {
		return ErrConnectionNotFound
	}
	return c.out.Push(frame)
}

// ConnectionCount returns the number of live connections for userID.
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// UpdateHeartbeat refreshes the liveness timestamp of a connection.
func (r *Registry) UpdateHeartbeat(connectionID string) error {
	r.mu.RLock()
	c, ok := r.conns[connectionID]
	r.mu.RUnlock()
	if !ok {
		return ErrConnectionNotFound
	}
	c.heartbeat.Store(r.now().UnixNano())
	return nil
}

// LastHeartbeat returns the liveness timestamp of a connection.
func (r *Registry) LastHeartbeat(connectionID string) (time.Time, bool) {
	r.mu.RLock()
	c, ok := r.conns[connectionID]
	r.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(0, c.heartbeat.Load()), true
}

// Stale lists connections whose last heartbeat is before cutoff.
func (r *Registry) Stale(cutoff time.Time) []string {
	limit := cutoff.UnixNano()

	r.mu.RLock()
	defer r.mu.RUnlock()
	var stale []string
	for id, c := range r.conns {
		if c.heartbeat.Load() < limit {
			stale = append(stale, id)
		}
	}
	return stale
}

// Evict closes a connection's outbound queue, which drives its session
// into teardown. The entry stays registered until the session unregisters
// it, so presence is only updated by the session itself.
func (r *Registry) Evict(connectionID string) bool {
	r.mu.RLock()
	c, ok := r.conns[connectionID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	c.out.Close()
	metrics.WSEvictions.Inc()
	return true
}

// UsersWithRole lists users holding at least one connection with role.
func (r *Registry) UsersWithRole(role models.Role) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []string
	for userID, set := range r.byUser {
		for _, c := range set {
			if c.identity.Role == role {
				users = append(users, userID)
				break
			}
		}
	}
	return users
}

// Stats returns the number of live connections and connected users.
func (r *Registry) Stats() (connections, users int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns), len(r.byUser)
}
