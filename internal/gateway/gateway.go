// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/config"
	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/presence"
	"github.com/tomtom215/parley/internal/registry"
	"github.com/tomtom215/parley/internal/respond"
	"github.com/tomtom215/parley/internal/router"
	"github.com/tomtom215/parley/internal/store"
	"github.com/tomtom215/parley/internal/validation"
)

// Options tunes session behavior.
type Options struct {
	HeartbeatTimeout time.Duration
	ReapInterval     time.Duration
	WriteWait        time.Duration
	PingPeriod       time.Duration
	MaxFrameSize     int64
	FrameRate        float64
	FrameBurst       int
	Limits           validation.Limits

	// AllowedOrigins lists accepted Origin headers; "*" accepts any.
	// Requests without an Origin header (non-browser clients) are accepted.
	AllowedOrigins []string
}

// OptionsFromConfig builds Options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		HeartbeatTimeout: cfg.Gateway.HeartbeatTimeout,
		ReapInterval:     cfg.Gateway.ReapInterval,
		WriteWait:        cfg.Gateway.WriteWait,
		PingPeriod:       cfg.Gateway.PingPeriod,
		MaxFrameSize:     cfg.Gateway.MaxFrameSize,
		FrameRate:        cfg.Gateway.FrameRate,
		FrameBurst:       cfg.Gateway.FrameBurst,
		Limits: validation.Limits{
			MaxContentLength:  cfg.Messages.MaxContentLength,
			MaxAttachmentSize: cfg.Messages.MaxAttachmentSize,
			AllowedMimeTypes:  cfg.Messages.AllowedMimeTypes,
		},
		AllowedOrigins: cfg.Security.CORSOrigins,
	}
}

func (o *Options) applyDefaults() {
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = 60 * time.Second
	}
	if o.ReapInterval <= 0 {
		o.ReapInterval = 30 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = (o.HeartbeatTimeout * 9) / 10
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = 16 << 20
	}
	if o.FrameRate <= 0 {
		o.FrameRate = 20
	}
	if o.FrameBurst <= 0 {
		o.FrameBurst = 40
	}
	if o.Limits.MaxContentLength <= 0 {
		o.Limits.MaxContentLength = 10000
	}
	if o.Limits.MaxAttachmentSize <= 0 {
		o.Limits.MaxAttachmentSize = 10 << 20
	}
	if len(o.Limits.AllowedMimeTypes) == 0 {
		o.Limits.AllowedMimeTypes = validation.DefaultAllowedMimeTypes
	}
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Registry *registry.Registry
	Presence *presence.Tracker
	Router   *router.Router
	Store    store.MessageStore
	Tokens   auth.TokenValidator
	Names    auth.Directory
}

// Gateway accepts WebSocket connections and runs one session per socket.
type Gateway struct {
	deps     Deps
	opts     Options
	upgrader websocket.Upgrader
	reaper   *Reaper

	base     context.Context
	shutdown context.CancelFunc

	mu       sync.Mutex
	closed   bool
	sessions sync.WaitGroup
}

// New creates a Gateway.
func New(deps Deps, opts Options) *Gateway {
	opts.applyDefaults()
	base, cancel := context.WithCancel(context.Background())

	g := &Gateway{
		deps:     deps,
		opts:     opts,
		reaper:   NewReaper(deps.Registry, opts.HeartbeatTimeout, opts.ReapInterval),
		base:     base,
		shutdown: cancel,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      g.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return g
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range g.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Ctx(r.Context()).Warn().Str("origin", origin).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// ServeHTTP authenticates the request, upgrades it and runs the session
// until the socket closes. Authentication failures are answered with 401
// before any socket or registry state exists.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthorized, "missing token", nil)
		return
	}
	identity, err := g.deps.Tokens.Validate(r.Context(), token)
	if err != nil {
		respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid or expired token", nil)
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket authentication failed")
		return
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		respond.Error(w, r, http.StatusServiceUnavailable, respond.CodeUnavailable, "server is shutting down", nil)
		return
	}
	g.sessions.Add(1)
	g.mu.Unlock()
	defer g.sessions.Done()

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	stop := context.AfterFunc(g.base, cancel)
	defer stop()

	s := newSession(g, conn, identity, uuid.NewString())
	s.run(ctx)
}

// RunWithContext runs the heartbeat reaper until ctx is canceled, then
// closes every session and waits for them to finish tearing down.
func (g *Gateway) RunWithContext(ctx context.Context) error {
	err := g.reaper.RunWithContext(ctx)
	g.Shutdown()
	return err
}

// Shutdown closes every live session and waits for their teardown.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.shutdown()
	g.sessions.Wait()
}

// Registry exposes the connection registry, used by the health endpoint.
func (g *Gateway) Registry() *registry.Registry {
	return g.deps.Registry
}
