// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/metrics"
	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/protocol"
)

// session owns one socket from activation to teardown.
//
// States: Authenticated (on construction, the token was already checked) ->
// Active (after activate) -> Closing (either loop ended) -> Closed (after
// teardown).
type session struct {
	g        *Gateway
	id       string
	identity models.Identity
	conn     *websocket.Conn
	out      *Outbox
	limiter  *rate.Limiter

	// related is the set of users notified about this user's presence.
	related []string
}

func newSession(g *Gateway, conn *websocket.Conn, identity models.Identity, id string) *session {
	return &session{
		g:        g,
		id:       id,
		identity: identity,
		conn:     conn,
		out:      NewOutbox(),
		limiter:  rate.NewLimiter(rate.Limit(g.opts.FrameRate), g.opts.FrameBurst),
	}
}

// run activates the session, drives both loops and tears down once either
// loop stops. It returns after teardown.
func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(logging.ContextWithConnection(parent, s.id, s.identity.UserID))
	defer cancel()

	s.activate(ctx)
	logging.Ctx(ctx).Info().Str("role", string(s.identity.Role)).Msg("WebSocket session active")

	// Cancelling ctx unblocks both loops: the outbox wakes the writer and
	// closing the socket fails the reader's pending read.
	stop := context.AfterFunc(ctx, func() {
		s.out.Close()
		_ = s.conn.Close()
	})
	defer stop()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		if err := s.writeLoop(ctx); err != nil && !isExpectedClose(err) {
			logging.Ctx(ctx).Debug().Err(err).Msg("WebSocket writer stopped")
		}
	}()

	if err := s.readLoop(ctx); err != nil && !isExpectedClose(err) {
		logging.Ctx(ctx).Debug().Err(err).Msg("WebSocket reader stopped")
	}
	cancel()
	<-writerDone

	s.teardown(context.WithoutCancel(ctx))
}

// activate performs Authenticated -> Active: register, mark online, replay
// missed messages and queue the Connected ack ahead of any live frame that
// arrived in the meantime.
func (s *session) activate(ctx context.Context) {
	deps := s.g.deps
	deps.Registry.Register(s.identity, s.id, s.out)

	related, err := deps.Store.ListCounterparties(ctx, s.identity.UserID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to list counterparties for presence")
	}
	s.related = related

	// Read last_seen before marking online so the replay window is the
	// previous offline period.
	var (
		lastSeen time.Time
		hasSeen  bool
		seenErr  error
	)
	if !s.identity.IsAdmin() {
		lastSeen, hasSeen, seenErr = deps.Presence.LastSeen(ctx, s.identity.UserID)
	}

	deps.Presence.MarkOnline(ctx, s.identity.UserID, s.related)

	head := []protocol.Outbound{protocol.NewConnected(s.identity.UserID)}
	replayed := map[string]struct{}{}

	switch {
	case seenErr != nil:
		logging.Ctx(ctx).Error().Err(seenErr).Msg("Failed to load last seen for replay")
		head = append(head, s.errorFrame(protocol.CodeReplayFailed, "could not load missed messages"))
	case hasSeen:
		missed, err := deps.Store.MessagesSince(ctx, s.identity.UserID, lastSeen)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Time("since", lastSeen).Msg("Missed-message replay failed")
			head = append(head, s.errorFrame(protocol.CodeReplayFailed, "could not load missed messages"))
			break
		}
		if len(missed) > 0 {
			for _, m := range missed {
				replayed[m.ID] = struct{}{}
			}
			head = append(head, protocol.NewMissedMessages(missed))
			logging.Ctx(ctx).Info().Int("count", len(missed)).Msg("Replaying missed messages")
		}
	}

	_ = s.out.Prepend(head, func(f protocol.Outbound) bool {
		mr, ok := f.(protocol.MessageReceived)
		if !ok {
			return false
		}
		_, dup := replayed[mr.Message.ID]
		return dup
	})
}

// readLoop decodes frames in arrival order and dispatches each one before
// reading the next.
func (s *session) readLoop(ctx context.Context) error {
	timeout := s.g.opts.HeartbeatTimeout

	s.conn.SetReadLimit(s.g.opts.MaxFrameSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	s.conn.SetPongHandler(func(string) error {
		_ = s.g.deps.Registry.UpdateHeartbeat(s.id)
		return s.conn.SetReadDeadline(time.Now().Add(timeout))
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if messageType != websocket.TextMessage {
			s.sendError(protocol.CodeProtocol, protocol.ErrBinaryFrame.Error())
			continue
		}
		if !s.limiter.Allow() {
			s.sendError(protocol.CodeRateLimited, "too many frames, slow down")
			continue
		}

		frame, err := protocol.Decode(data)
		if err != nil {
			s.sendError(protocol.ErrorCode(err), err.Error())
			continue
		}
		metrics.WSFramesReceived.WithLabelValues(protocol.TypeOf(frame)).Inc()

		if _, ok := frame.(protocol.Ping); ok {
			if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				return err
			}
		}
		s.dispatch(ctx, frame)
	}
}

// writeLoop drains the outbox onto the socket and sends websocket pings.
// The first write error ends it; a broken socket is never retried.
func (s *session) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.g.opts.PingPeriod)
	defer ticker.Stop()

	for {
		for _, frame := range s.out.Drain() {
			if err := s.write(frame); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.out.Done():
			s.writeClose(websocket.CloseGoingAway, "connection closed by server")
			return ErrOutboxClosed
		case <-s.out.Notify():
		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.g.opts.WriteWait)); err != nil {
				return err
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

func (s *session) write(frame protocol.Outbound) error {
	data, err := protocol.Encode(frame)
	if err != nil {
		// Not a transport failure; drop the frame and keep the session.
		logging.Error().Err(err).Str("connection_id", s.id).Msg("Failed to encode frame")
		return nil
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.g.opts.WriteWait)); err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	metrics.WSFramesSent.WithLabelValues(frame.FrameType()).Inc()
	return nil
}

func (s *session) writeClose(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.g.opts.WriteWait))
}

// teardown performs Closing -> Closed. Unregister happens before the
// offline check so presence never reports offline while a sibling
// connection is live. The offline instant is taken before Unregister:
// anything created once the user has no connection must sort at or after
// last_seen to be replayed.
func (s *session) teardown(ctx context.Context) {
	s.out.Close()
	_ = s.conn.Close()

	deps := s.g.deps
	offlineAt := time.Now()
	removed, remaining := deps.Registry.Unregister(s.id)
	if removed && remaining == 0 {
		related := s.related
		if fresh, err := deps.Store.ListCounterparties(ctx, s.identity.UserID); err == nil {
			related = fresh
		}
		deps.Presence.MarkOffline(ctx, s.identity.UserID, related, offlineAt)
	}
	logging.Ctx(ctx).Info().Int("remaining", remaining).Msg("WebSocket session closed")
}

func (s *session) errorFrame(code, message string) protocol.Error {
	metrics.WSErrors.WithLabelValues(code).Inc()
	return protocol.NewError(code, message)
}

// sendError reports a failure to this connection only.
func (s *session) sendError(code, message string) {
	_ = s.g.deps.Registry.SendToConnection(s.id, s.errorFrame(code, message))
}

func isExpectedClose(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrOutboxClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
