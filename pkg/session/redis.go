package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is a Redis-backed AttributeStore for multi-instance
// deployments, where a login may start on one gateway instance and finish
// on another. TTLs are enforced by Redis key expiry.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis at url and verifies the connection.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client, used by tests.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying connection for health probes.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Put(ctx context.Context, sessionID, name, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := s.client.Set(ctx, redisKey(sessionID, name), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID, name string) (string, bool, error) {
	value, err := s.client.Get(ctx, redisKey(sessionID, name)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return value, true, nil
}

func (s *RedisStore) Take(ctx context.Context, sessionID, name string) (string, bool, error) {
	value, err := s.client.GetDel(ctx, redisKey(sessionID, name)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis getdel failed: %w", err)
	}
	return value, true, nil
}

func (s *RedisStore) Remove(ctx context.Context, sessionID, name string) error {
	if err := s.client.Del(ctx, redisKey(sessionID, name)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func redisKey(sessionID, name string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, name)
}
