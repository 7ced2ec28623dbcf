// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/parley/internal/api"
	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/config"
	"github.com/tomtom215/parley/internal/gateway"
	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/presence"
	"github.com/tomtom215/parley/internal/registry"
	"github.com/tomtom215/parley/internal/router"
	"github.com/tomtom215/parley/internal/store"
	"github.com/tomtom215/parley/internal/store/badgerstore"
	"github.com/tomtom215/parley/internal/store/blob"
	"github.com/tomtom215/parley/internal/supervisor"
	"github.com/tomtom215/parley/internal/supervisor/services"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", Version).
		Str("environment", cfg.Server.Environment).
		Str("storage_backend", cfg.Storage.Backend).
		Str("presence_store", cfg.Presence.Store).
		Msg("Starting Parley gateway")

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("HTTP rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === STORAGE ===

	blobs, err := blob.NewDir(cfg.Messages.AttachmentDir, cfg.Messages.AttachmentURLPrefix)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to prepare attachment directory")
	}

	var (
		messages  store.MessageStore
		badgerDB  *badgerstore.Store
		lastSeens presence.LastSeenStore
	)
	switch cfg.Storage.Backend {
	case "badger":
		badgerDB, err = badgerstore.Open(cfg.Storage.BadgerPath, blobs)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Storage.BadgerPath).Msg("Failed to open message store")
		}
		messages = badgerDB
		logging.Info().Str("path", cfg.Storage.BadgerPath).Msg("BadgerDB message store opened")
	default:
		messages = store.NewMemoryStore(blobs)
		logging.Warn().Msg("Using in-memory message store; messages are lost on restart")
	}

	breaker := store.WithBreaker(messages, store.BreakerConfigFrom(&cfg.Storage))
	defer func() {
		if err := breaker.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing message store")
		}
	}()

	switch cfg.Presence.Store {
	case "redis":
		redisStore, err := presence.NewRedisStore(ctx, &cfg.Presence)
		if err != nil {
			logging.Fatal().Err(err).Str("addr", cfg.Presence.RedisAddr).Msg("Failed to connect to Redis")
		}
		defer func() {
			if err := redisStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing Redis client")
			}
		}()
		lastSeens = redisStore
	case "badger":
		if badgerDB == nil {
			logging.Fatal().Msg("PRESENCE_STORE=badger requires STORAGE_BACKEND=badger")
		}
		lastSeens = badgerDB
	default:
		lastSeens = presence.NewMemoryStore()
	}

	// === GATEWAY COMPONENTS ===

	names := auth.NewNameCache()
	jwtManager, err := auth.NewJWTManager(&cfg.Security, names)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	reg := registry.New()
	tracker := presence.NewTracker(reg, lastSeens)

	gw := gateway.New(gateway.Deps{
		Registry: reg,
		Presence: tracker,
		Router:   router.New(reg),
		Store:    breaker,
		Tokens:   jwtManager,
		Names:    names,
	}, gateway.OptionsFromConfig(cfg))

	handler := api.NewHandler(api.HandlerDeps{
		Registry: reg,
		Tokens:   jwtManager,
		Store:    breaker,
		Files:    blobs,
		Breaker:  breaker,
		Version:  Version,
	})
	httpRouter := api.NewRouter(handler, gw, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           httpRouter.SetupChi(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddGatewayService(services.NewGatewayService(gw))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, services.WithDrain(gw.Shutdown)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}

	logging.Info().Msg("Parley gateway stopped")
}
