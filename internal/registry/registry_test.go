// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package registry

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/protocol"
)

var errClosed = errors.New("closed")

type fakeOutbound struct {
	mu     sync.Mutex
	frames []protocol.Outbound
	closed bool
}

func (f *fakeOutbound) Push(frame protocol.Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errClosed
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeOutbound) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeOutbound) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func user(id string) models.Identity  { return models.Identity{UserID: id, Role: models.RoleUser} }
func admin(id string) models.Identity { return models.Identity{UserID: id, Role: models.RoleAdmin} }

func TestRegisterAndCount(t *testing.T) {
	r := New()
	r.Register(user("u1"), "c1", &fakeOutbound{})
	r.Register(user("u1"), "c2", &fakeOutbound{})
	r.Register(admin("a1"), "c3", &fakeOutbound{})

	if got := r.ConnectionCount("u1"); got != 2 {
		t.Errorf("ConnectionCount(u1) = %d, want 2", got)
	}
	if got := r.ConnectionCount("nobody"); got != 0 {
		t.Errorf("ConnectionCount(nobody) = %d, want 0", got)
	}
	conns, users := r.Stats()
	if conns != 3 || users != 2 {
		t.Errorf("Stats() = (%d, %d), want (3, 2)", conns, users)
	}
}

func TestRegisterSameIDTwice(t *testing.T) {
	r := New()
	first := &fakeOutbound{}
	second := &fakeOutbound{}
	r.Register(user("u1"), "c1", first)
	r.Register(user("u1"), "c1", second)

	if got := r.ConnectionCount("u1"); got != 1 {
		t.Fatalf("ConnectionCount = %d, want 1", got)
	}
	r.SendToUser("u1", protocol.NewPong())
	if first.count() != 0 || second.count() != 1 {
		t.Errorf("frame went to first=%d second=%d, want 0/1", first.count(), second.count())
	}
}

func TestUnregister(t *testing.T) {
	r := New()
	r.Register(user("u1"), "c1", &fakeOutbound{})
	r.Register(user("u1"), "c2", &fakeOutbound{})

	removed, remaining := r.Unregister("c1")
	if !removed || remaining != 1 {
		t.Errorf("Unregister(c1) = (%v, %d), want (true, 1)", removed, remaining)
	}
	removed, remaining = r.Unregister("c1")
	if removed || remaining != 0 {
		t.Errorf("second Unregister(c1) = (%v, %d), want (false, 0)", removed, remaining)
	}
	removed, remaining = r.Unregister("c2")
	if !removed || remaining != 0 {
		t.Errorf("Unregister(c2) = (%v, %d), want (true, 0)", removed, remaining)
	}
	if _, users := r.Stats(); users != 0 {
		t.Errorf("users = %d, want 0", users)
	}
}

func TestSendToUserSkipsClosedConnection(t *testing.T) {
	r := New()
	outs := []*fakeOutbound{{}, {}, {}}
	for i, o := range outs {
		r.Register(user("u1"), string(rune('a'+i)), o)
	}
	outs[1].Close()

	if got := r.SendToUser("u1", protocol.NewPong()); got != 2 {
		t.Errorf("SendToUser = %d, want 2", got)
	}
	if outs[0].count() != 1 || outs[2].count() != 1 {
		t.Errorf("healthy connections did not receive the frame")
	}
	if got := r.SendToUser("absent", protocol.NewPong()); got != 0 {
		t.Errorf("SendToUser(absent) = %d, want 0", got)
	}
}

func TestSendToUsersDeduplicates(t *testing.T) {
	r := New()
	o := &fakeOutbound{}
	r.Register(user("u1"), "c1", o)
	r.Register(admin("a1"), "c2", &fakeOutbound{})

	if got := r.SendToUsers([]string{"u1", "u1", "a1", "missing"}, protocol.NewPong()); got != 2 {
		t.Errorf("SendToUsers = %d, want 2", got)
	}
	if o.count() != 1 {
		t.Errorf("u1 received %d frames, want 1", o.count())
	}
}

func TestSendToConnection(t *testing.T) {
	r := New()
	o := &fakeOutbound{}
	r.Register(user("u1"), "c1", o)

	if err := r.SendToConnection("c1", protocol.NewPong()); err != nil {
		t.Fatalf("SendToConnection: %v", err)
	}
	if err := r.SendToConnection("nope", protocol.NewPong()); !errors.Is(err, ErrConnectionNotFound) {
		t.Errorf("err = %v, want ErrConnectionNotFound", err)
	}
}

func TestHeartbeatAndStale(t *testing.T) {
	r := New()
	clock := time.Unix(1_000, 0)
	r.now = func() time.Time { return clock }

	r.Register(user("u1"), "old", &fakeOutbound{})
	clock = clock.Add(time.Minute)
	r.Register(user("u2"), "fresh", &fakeOutbound{})

	stale := r.Stale(clock.Add(-30 * time.Second))
	if len(stale) != 1 || stale[0] != "old" {
		t.Fatalf("Stale = %v, want [old]", stale)
	}

	if err := r.UpdateHeartbeat("old"); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}
	if stale := r.Stale(clock.Add(-30 * time.Second)); len(stale) != 0 {
		t.Errorf("Stale after heartbeat = %v, want none", stale)
	}
	if ts, ok := r.LastHeartbeat("old"); !ok || !ts.Equal(clock) {
		t.Errorf("LastHeartbeat = %v, %v", ts, ok)
	}
	if err := r.UpdateHeartbeat("missing"); !errors.Is(err, ErrConnectionNotFound) {
		t.Errorf("err = %v, want ErrConnectionNotFound", err)
	}
}

func TestEvictKeepsEntryUntilUnregister(t *testing.T) {
	r := New()
	o := &fakeOutbound{}
	r.Register(user("u1"), "c1", o)

	if !r.Evict("c1") {
		t.Fatal("Evict returned false")
	}
	if !o.closed {
		t.Error("outbound not closed")
	}
	if got := r.ConnectionCount("u1"); got != 1 {
		t.Errorf("ConnectionCount = %d, want 1 until unregister", got)
	}
	if r.Evict("missing") {
		t.Error("Evict(missing) = true")
	}
}

func TestUsersWithRole(t *testing.T) {
	r := New()
	r.Register(admin("a1"), "c1", &fakeOutbound{})
	r.Register(admin("a2"), "c2", &fakeOutbound{})
	r.Register(user("u1"), "c3", &fakeOutbound{})

	admins := r.UsersWithRole(models.RoleAdmin)
	sort.Strings(admins)
	if len(admins) != 2 || admins[0] != "a1" || admins[1] != "a2" {
		t.Errorf("UsersWithRole(admin) = %v", admins)
	}
}

func TestConcurrentRegisterAndSend(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := string(rune('A' + i%26)) + string(rune('a'+i/26))
		go func() {
			defer wg.Done()
			r.Register(user("u1"), id, &fakeOutbound{})
			r.Unregister(id)
		}()
		go func() {
			defer wg.Done()
			r.SendToUser("u1", protocol.NewPong())
		}()
	}
	wg.Wait()
	if got := r.ConnectionCount("u1"); got != 0 {
		t.Errorf("ConnectionCount = %d, want 0", got)
	}
}
