// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/parley/internal/logging"
)

// HTTPServer matches the *http.Server lifecycle methods so tests can
// substitute a fake.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// forceCloser is implemented by *http.Server. It is used when graceful
// shutdown runs past its deadline.
type forceCloser interface {
	Close() error
}

// HTTPOption configures an HTTPServerService.
type HTTPOption func(*HTTPServerService)

// WithDrain registers fn to run when the server begins shutting down.
// http.Server.Shutdown neither closes nor waits for hijacked connections,
// so upgraded WebSocket sessions must be closed by fn.
func WithDrain(fn func()) HTTPOption {
	return func(h *HTTPServerService) { h.drain = fn }
}

// HTTPServerService runs the HTTP listener that serves the upgrade, health,
// attachment and metrics routes.
//
// Serve returns when ListenAndServe fails or ctx is canceled. On cancel the
// server stops accepting, the drain hook closes upgraded sessions, and idle
// requests get shutdownTimeout to finish before the server is force-closed.
//
//	server := &http.Server{Addr: ":8090", Handler: router}
//	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, services.WithDrain(gw.Shutdown)))
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	drain           func()
	addr            string
}

// NewHTTPServerService creates the service. A non-positive shutdownTimeout
// defaults to 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration, opts ...HTTPOption) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	h := &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
	for _, opt := range opts {
		opt(h)
	}

	if s, ok := server.(*http.Server); ok {
		h.addr = s.Addr
		if h.drain != nil {
			s.RegisterOnShutdown(h.drain)
		}
	} else if h.drain != nil {
		h.server = drainingServer{HTTPServer: server, drain: h.drain}
	}
	return h
}

// drainingServer runs drain alongside Shutdown for servers that have no
// RegisterOnShutdown.
type drainingServer struct {
	HTTPServer
	drain func()
}

func (d drainingServer) Shutdown(ctx context.Context) error {
	go d.drain()
	return d.HTTPServer.Shutdown(ctx)
}

func (d drainingServer) Close() error {
	if c, ok := d.HTTPServer.(forceCloser); ok {
		return c.Close()
	}
	return nil
}

// Serve implements suture.Service. http.ErrServerClosed is not an error.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	logging.Info().Str("addr", h.addr).Msg("HTTP server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server on %q failed: %w", h.addr, err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		err := h.server.Shutdown(shutdownCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			logging.Warn().Dur("timeout", h.shutdownTimeout).Msg("HTTP graceful shutdown timed out, closing connections")
			if c, ok := h.server.(forceCloser); ok {
				err = c.Close()
			}
		}
		if err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer for logging.
func (h *HTTPServerService) String() string {
	return "http-server"
}
