// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package gateway

import (
	"errors"
	"sync"

	"github.com/tomtom215/parley/internal/protocol"
)

// ErrOutboxClosed is returned by Push after the outbox was closed.
var ErrOutboxClosed = errors.New("outbox closed")

// Outbox is the unbounded outbound queue of one connection. Any goroutine
// may Push; only the connection's writer drains it. Push never blocks, so
// fan-out to a slow socket cannot stall other users.
type Outbox struct {
	mu     sync.Mutex
	items  []protocol.Outbound
	closed bool

	notify chan struct{}
	done   chan struct{}
}

// NewOutbox creates an empty, open outbox.
func NewOutbox() *Outbox {
	return &Outbox{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends frame to the queue.
func (o *Outbox) Push(frame protocol.Outbound) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrOutboxClosed
	}
	o.items = append(o.items, frame)
	o.mu.Unlock()

	o.signal()
	return nil
}

// Prepend puts frames at the head of the queue, ahead of anything already
// queued. Queued frames for which drop returns true are discarded.
func (o *Outbox) Prepend(frames []protocol.Outbound, drop func(protocol.Outbound) bool) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrOutboxClosed
	}
	items := make([]protocol.Outbound, 0, len(frames)+len(o.items))
	items = append(items, frames...)
	for _, f := range o.items {
		if drop != nil && drop(f) {
			continue
		}
		items = append(items, f)
	}
	o.items = items
	o.mu.Unlock()

	o.signal()
	return nil
}

func (o *Outbox) signal() {
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns every queued frame.
func (o *Outbox) Drain() []protocol.Outbound {
	o.mu.Lock()
	defer o.mu.Unlock()
	items := o.items
	o.items = nil
	return items
}

// Notify fires after frames were queued.
func (o *Outbox) Notify() <-chan struct{} { return o.notify }

// Done is closed by Close.
func (o *Outbox) Done() <-chan struct{} { return o.done }

// Len returns the number of queued frames.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// Close stops the outbox. It is safe to call more than once.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.items = nil
	close(o.done)
}
