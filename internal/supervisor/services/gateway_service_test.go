// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockRunner struct {
	runs    atomic.Int32
	stopped atomic.Int32
	started chan struct{}
}

func newMockRunner() *mockRunner {
	return &mockRunner{started: make(chan struct{}, 1)}
}

func (m *mockRunner) RunWithContext(ctx context.Context) error {
	m.runs.Add(1)
	select {
	case m.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	m.stopped.Add(1)
	return ctx.Err()
}

func TestGatewayService_Interface(t *testing.T) {
	var _ suture.Service = (*GatewayService)(nil)
}

func TestGatewayService_Serve(t *testing.T) {
	runner := newMockRunner()
	svc := NewGatewayService(runner)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("gateway did not start")
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
	if runner.stopped.Load() != 1 {
		t.Errorf("stopped = %d, want 1", runner.stopped.Load())
	}
}

func TestGatewayService_String(t *testing.T) {
	if got := NewGatewayService(newMockRunner()).String(); got != "websocket-gateway" {
		t.Errorf("String() = %q", got)
	}
}
