// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/parley/internal/config"
	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/metrics"
	"github.com/tomtom215/parley/internal/models"
)

// BreakerConfig tunes the circuit breaker around a MessageStore.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // probes allowed while half-open
	Interval         time.Duration // closed-state count reset period
	Timeout          time.Duration // open -> half-open delay
	FailureThreshold uint32        // consecutive failures that open the circuit
}

// BreakerConfigFrom reads breaker settings from the storage config.
func BreakerConfigFrom(cfg *config.StorageConfig) BreakerConfig {
	return BreakerConfig{
		Name:             "message-store",
		MaxRequests:      cfg.BreakerMaxRequests,
		Interval:         cfg.BreakerInterval,
		Timeout:          cfg.BreakerTimeout,
		FailureThreshold: cfg.BreakerFailureThreshold,
	}
}

// BreakerStore wraps a MessageStore with a circuit breaker. While the
// circuit is open every call fails fast with ErrUnavailable.
//
// ErrNotFound and ErrValidation are caller errors and do not count as
// failures.
type BreakerStore struct {
	next MessageStore
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// WithBreaker wraps next.
func WithBreaker(next MessageStore, cfg BreakerConfig) *BreakerStore {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Name == "" {
		cfg.Name = "message-store"
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= cfg.FailureThreshold
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},

		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation)
		},
	})

	return &BreakerStore{next: next, cb: cb, name: cfg.Name}
}

// State returns the current breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

// run executes fn through the breaker and records store metrics.
func run[T any](b *BreakerStore, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	metrics.RecordStoreOperation(op, time.Since(start), err)

	var zero T
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return zero, fmt.Errorf("%s: %w", op, ErrUnavailable)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return zero, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()

	typed, ok := result.(T)
	if !ok && result != nil {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

type messageAndAttachment struct {
	msg models.Message
	att models.Attachment
}

func (b *BreakerStore) CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	return run(b, "create_message", func() (models.Message, error) {
		return b.next.CreateMessage(ctx, msg)
	})
}

func (b *BreakerStore) MessagesSince(ctx context.Context, userID string, since time.Time) ([]models.Message, error) {
	return run(b, "messages_since", func() ([]models.Message, error) {
		return b.next.MessagesSince(ctx, userID, since)
	})
}

func (b *BreakerStore) MarkRead(ctx context.Context, messageID string, reader models.Identity) error {
	_, err := run(b, "mark_read", func() (struct{}, error) {
		return struct{}{}, b.next.MarkRead(ctx, messageID, reader)
	})
	return err
}

func (b *BreakerStore) SaveAttachment(ctx context.Context, messageID string, upload models.AttachmentUpload) (models.Attachment, error) {
	return run(b, "save_attachment", func() (models.Attachment, error) {
		return b.next.SaveAttachment(ctx, messageID, upload)
	})
}

func (b *BreakerStore) CreateMessageWithAttachment(ctx context.Context, msg models.NewMessage, upload models.AttachmentUpload) (models.Message, models.Attachment, error) {
	res, err := run(b, "create_message_with_attachment", func() (messageAndAttachment, error) {
		m, a, err := b.next.CreateMessageWithAttachment(ctx, msg, upload)
		return messageAndAttachment{msg: m, att: a}, err
	})
	return res.msg, res.att, err
}

func (b *BreakerStore) ListCounterparties(ctx context.Context, userID string) ([]string, error) {
	return run(b, "list_counterparties", func() ([]string, error) {
		return b.next.ListCounterparties(ctx, userID)
	})
}

func (b *BreakerStore) AttachmentByStoredName(ctx context.Context, storedName string) (models.Attachment, error) {
	return run(b, "attachment_by_name", func() (models.Attachment, error) {
		return b.next.AttachmentByStoredName(ctx, storedName)
	})
}

// Close closes the wrapped store without going through the breaker.
func (b *BreakerStore) Close() error {
	return b.next.Close()
}
