package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers which appointment a given Idempotency-Key produced, so a
// retried booking request returns the original appointment instead of a
// duplicate-booking error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, appointmentID string, ttl time.Duration) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	const op = "idempotency.RedisStore.Get"

	val, err := s.client.Get(ctx, fmt.Sprintf("idem:%s", key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, appointmentID string, ttl time.Duration) error {
	const op = "idempotency.RedisStore.Set"

	if err := s.client.Set(ctx, fmt.Sprintf("idem:%s", key), appointmentID, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
