// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/parley/internal/middleware"
)

// Router binds handlers and middleware into one http.Handler.
type Router struct {
	handler       *Handler
	gateway       http.Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. gateway serves the WebSocket endpoint.
func NewRouter(handler *Handler, gateway http.Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, gateway: gateway, chiMiddleware: mw}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// The gateway authenticates the upgrade itself.
	r.With(router.chiMiddleware.RateLimit(), middleware.PrometheusMetrics).
		Get("/ws/conversations", router.gateway.ServeHTTP)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/attachments", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Get("/{name}", router.handler.Attachment)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
