package apiclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// defaultRedisTokenKey is the Redis key the bearer token lives under when no
// custom key is configured.
const defaultRedisTokenKey = "od:" + tokenFileName

// RedisTokenStorage persists the token in Redis so several processes of the
// same deployment share one session.
type RedisTokenStorage struct {
	cli *redis.Client
	key string
}

// NewRedisTokenStorage wraps an existing Redis client. An empty key uses
// defaultRedisTokenKey.
func NewRedisTokenStorage(cli *redis.Client, key string) *RedisTokenStorage {
	if key == "" {
		key = defaultRedisTokenKey
	}
	return &RedisTokenStorage{cli: cli, key: key}
}

// Key returns the Redis key in use.
func (s *RedisTokenStorage) Key() string {
	return s.key
}

// Load implements TokenStorage.
func (s *RedisTokenStorage) Load(ctx context.Context) (string, error) {
	out := s.cli.Get(ctx, s.key)
	if out.Err() != nil {
		if errors.Is(out.Err(), redis.Nil) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("redis get token: %w", out.Err())
	}
	if out.Val() == "" {
		return "", ErrNoToken
	}
	return out.Val(), nil
}

// Save implements TokenStorage. The token is stored without expiry; session
// lifetime is controlled by the backend, not the storage.
func (s *RedisTokenStorage) Save(ctx context.Context, token string) error {
	if err := s.cli.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

// Clear implements TokenStorage.
func (s *RedisTokenStorage) Clear(ctx context.Context) error {
	if err := s.cli.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del token: %w", err)
	}
	return nil
}
