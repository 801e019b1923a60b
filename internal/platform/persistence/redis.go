package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// redisClient defines the interface we need from go-redis. This allows us
// to use a mock for testing.
type redisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisPresenceStore mirrors online/offline transitions into Redis so
// sibling services can read presence without calling this process. The
// in-process registry stays authoritative; entries carry a TTL as a
// safety net against a crashed instance leaving accounts marked online.
type RedisPresenceStore struct {
	client redisClient
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisPresenceStore is the constructor for the RedisPresenceStore.
func NewRedisPresenceStore(client redisClient, ttl time.Duration, logger zerolog.Logger) (*RedisPresenceStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	return &RedisPresenceStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "RedisPresenceStore").Logger(),
	}, nil
}

// Set records an account as online.
func (s *RedisPresenceStore) Set(ctx context.Context, accountID string, info realtime.ConnectionInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal connection info: %w", err)
	}
	if err := s.client.Set(ctx, presenceKey(accountID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set presence key: %w", err)
	}
	return nil
}

// Delete records an account as offline.
func (s *RedisPresenceStore) Delete(ctx context.Context, accountID string) error {
	if err := s.client.Del(ctx, presenceKey(accountID)).Err(); err != nil {
		return fmt.Errorf("failed to delete presence key: %w", err)
	}
	return nil
}

func presenceKey(accountID string) string { return "presence:" + accountID }
