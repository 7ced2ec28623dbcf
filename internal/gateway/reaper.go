// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package gateway

import (
	"context"
	"time"

	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/registry"
)

// Reaper evicts connections whose last heartbeat is older than the timeout.
// Eviction only closes the outbound queue; the owning session then tears
// down exactly as if the socket had failed.
type Reaper struct {
	registry *registry.Registry
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewReaper creates a Reaper.
func NewReaper(reg *registry.Registry, timeout, interval time.Duration) *Reaper {
	return &Reaper{registry: reg, timeout: timeout, interval: interval, now: time.Now}
}

// ReapOnce evicts every stale connection and returns how many were evicted.
func (r *Reaper) ReapOnce() int {
	cutoff := r.now().Add(-r.timeout)
	evicted := 0
	for _, id := range r.registry.Stale(cutoff) {
		if r.registry.Evict(id) {
			evicted++
			logging.Info().Str("connection_id", id).Dur("timeout", r.timeout).Msg("Evicting stale connection")
		}
	}
	return evicted
}

// RunWithContext reaps every interval until ctx is canceled.
func (r *Reaper) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.ReapOnce()
		}
	}
}
