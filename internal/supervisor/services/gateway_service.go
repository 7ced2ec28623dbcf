// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package services

import (
	"context"
)

// ContextRunner matches *gateway.Gateway's RunWithContext method.
//
// The gateway runs its heartbeat reaper until ctx is canceled and then
// closes every live session before returning.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// GatewayService wraps the WebSocket gateway as a supervised service.
//
//	gw := gateway.New(deps, opts)
//	tree.AddGatewayService(services.NewGatewayService(gw))
type GatewayService struct {
	gateway ContextRunner
	name    string
}

// NewGatewayService creates a new gateway service wrapper.
func NewGatewayService(gw ContextRunner) *GatewayService {
	return &GatewayService{
		gateway: gw,
		name:    "websocket-gateway",
	}
}

// Serve implements suture.Service. It returns ctx.Err() on normal shutdown.
func (g *GatewayService) Serve(ctx context.Context) error {
	return g.gateway.RunWithContext(ctx)
}

// String implements fmt.Stringer for logging.
func (g *GatewayService) String() string {
	return g.name
}
