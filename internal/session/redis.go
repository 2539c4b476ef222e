package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps pending actions in redis so they survive restarts
// and are shared between bot replicas.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func pendingKey(adminID int64) string {
	return fmt.Sprintf("trialbot:pending:%d", adminID)
}

func (s *RedisStore) Set(ctx context.Context, adminID int64, action Action) error {
	if !action.Valid() {
		return fmt.Errorf("invalid action %q", action)
	}
	if err := s.client.Set(ctx, pendingKey(adminID), string(action), s.ttl).Err(); err != nil {
		return fmt.Errorf("saving pending action: %w", err)
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, adminID int64) (Action, error) {
	val, err := s.client.GetDel(ctx, pendingKey(adminID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoPending
	}
	if err != nil {
		return "", fmt.Errorf("taking pending action: %w", err)
	}
	return Action(val), nil
}

func (s *RedisStore) Clear(ctx context.Context, adminID int64) error {
	if err := s.client.Del(ctx, pendingKey(adminID)).Err(); err != nil {
		return fmt.Errorf("clearing pending action: %w", err)
	}
	return nil
}
