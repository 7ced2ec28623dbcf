// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/parley/internal/config"
)

// RedisStore keeps last-seen timestamps in Redis as RFC 3339 strings under
// <prefix><user_id>.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, cfg *config.PresenceConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return &RedisStore{client: client, prefix: cfg.RedisKeyPrefix}, nil
}

func (s *RedisStore) key(userID string) string { return s.prefix + userID }

func (s *RedisStore) GetLastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get last seen for %s: %w", userID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last seen for %s: %w", userID, err)
	}
	return t, true, nil
}

func (s *RedisStore) SetLastSeen(ctx context.Context, userID string, t time.Time) error {
	if err := s.client.Set(ctx, s.key(userID), t.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("set last seen for %s: %w", userID, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
