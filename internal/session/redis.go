package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisProvider stores each client's namespace as one Redis hash, without
// expiry.
type RedisProvider struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisProvider(client *redis.Client) *RedisProvider {
	return &RedisProvider{
		client:    client,
		keyPrefix: "qpinta:session:",
	}
}

func (p *RedisProvider) Storage(clientID string) Storage {
	return &redisStorage{client: p.client, key: p.keyPrefix + clientID}
}

// Close is a no-op; the Redis client is owned by the server.
func (p *RedisProvider) Close() error {
	return nil
}

type redisStorage struct {
	client *redis.Client
	key    string
}

func (s *redisStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.HGet(ctx, s.key, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read session item %s: %w", key, err)
	}
	return val, true, nil
}

func (s *redisStorage) SetItem(ctx context.Context, key, value string) error {
	if err := s.client.HSet(ctx, s.key, key, value).Err(); err != nil {
		return fmt.Errorf("failed to write session item %s: %w", key, err)
	}
	return nil
}

func (s *redisStorage) RemoveItem(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, s.key, key).Err(); err != nil {
		return fmt.Errorf("failed to remove session item %s: %w", key, err)
	}
	return nil
}
