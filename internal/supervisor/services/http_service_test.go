// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/thejerf/suture/v4"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func waitListening(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c, err := net.Dial("tcp", addr); err == nil {
			_ = c.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server on %s never started listening", addr)
}

func serveInBackground(svc *HTTPServerService) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	return cancel, errCh
}

func waitServe(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestHTTPServerService_Interface(t *testing.T) {
	var _ suture.Service = (*HTTPServerService)(nil)
}

func TestHTTPServerServiceServesUntilCanceled(t *testing.T) {
	addr := freeAddr(t)
	server := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}
	cancel, errCh := serveInBackground(NewHTTPServerService(server, time.Second))
	waitListening(t, addr)

	resp, err := http.Get("http://" + addr + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	if err := waitServe(t, errCh); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Error("server still accepting after shutdown")
	}
}

func TestHTTPServerServiceDrainsUpgradedConnections(t *testing.T) {
	addr := freeAddr(t)
	closing := make(chan struct{})
	var drains atomic.Int32

	upgrader := websocket.Upgrader{}
	server := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			<-closing
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = conn.Close()
		}),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, 2*time.Second, WithDrain(func() {
		if drains.Add(1) == 1 {
			close(closing)
		}
	}))
	cancel, errCh := serveInBackground(svc)
	waitListening(t, addr)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/conversations", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	cancel()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage = %v, want going-away close", err)
	}
	if err := waitServe(t, errCh); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
	if n := drains.Load(); n != 1 {
		t.Errorf("drain ran %d times, want 1", n)
	}
}

func TestHTTPServerServiceListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	addr := l.Addr().String()

	server := &http.Server{Addr: addr, ReadHeaderTimeout: time.Second}
	_, errCh := serveInBackground(NewHTTPServerService(server, time.Second))

	err = waitServe(t, errCh)
	if err == nil || !strings.Contains(err.Error(), addr) {
		t.Errorf("Serve = %v, want bind error naming %s", err, addr)
	}
}

// stuckServer never finishes a graceful shutdown.
type stuckServer struct {
	closed     chan struct{}
	closeCalls atomic.Int32
}

func (s *stuckServer) ListenAndServe() error {
	<-s.closed
	return http.ErrServerClosed
}

func (s *stuckServer) Shutdown(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *stuckServer) Close() error {
	if s.closeCalls.Add(1) == 1 {
		close(s.closed)
	}
	return nil
}

func TestHTTPServerServiceForcesCloseAfterTimeout(t *testing.T) {
	server := &stuckServer{closed: make(chan struct{})}
	cancel, errCh := serveInBackground(NewHTTPServerService(server, 50*time.Millisecond))

	cancel()
	if err := waitServe(t, errCh); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
	if n := server.closeCalls.Load(); n != 1 {
		t.Errorf("Close called %d times, want 1", n)
	}
}

// quickServer shuts down immediately.
type quickServer struct {
	stop chan struct{}
}

func (s *quickServer) ListenAndServe() error {
	<-s.stop
	return http.ErrServerClosed
}

func (s *quickServer) Shutdown(context.Context) error {
	close(s.stop)
	return nil
}

func TestHTTPServerServiceDrainWithoutHTTPServer(t *testing.T) {
	drained := make(chan struct{})
	svc := NewHTTPServerService(&quickServer{stop: make(chan struct{})}, time.Second,
		WithDrain(func() { close(drained) }))
	cancel, errCh := serveInBackground(svc)

	cancel()
	if err := waitServe(t, errCh); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("drain hook never ran")
	}
}

func TestHTTPServerServiceDefaultTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{0, -5 * time.Second} {
		svc := NewHTTPServerService(&quickServer{stop: make(chan struct{})}, timeout)
		if svc.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout %v: shutdownTimeout = %v, want 10s", timeout, svc.shutdownTimeout)
		}
	}
	if got := NewHTTPServerService(&quickServer{}, time.Second).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}
