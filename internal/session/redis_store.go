// Package session keeps short-lived per-user state in Redis: the temporary
// quota bypass.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"colabwize/api/internal/quota"
)

// ErrBypassExpired is returned when asked to store a bypass that has already
// ended.
var ErrBypassExpired = errors.New("bypass already expired")

// bypassData is the JSON stored for each active bypass
type bypassData struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisStore implements bypass storage using Redis
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and verifies the connection
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "quota-bypass:",
	}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

// EnableBypass stores b for userID. The key expires with the bypass.
func (s *RedisStore) EnableBypass(ctx context.Context, userID string, b quota.Bypass) error {
	ttl := time.Until(b.ExpiresAt)
	if ttl <= 0 {
		return ErrBypassExpired
	}

	jsonData, err := json.Marshal(bypassData{
		UserID:    userID,
		ExpiresAt: b.ExpiresAt,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal bypass: %w", err)
	}

	if err := s.client.Set(ctx, s.key(userID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save bypass: %w", err)
	}
	return nil
}

// LookupBypass returns the stored bypass for userID. ok is false when none
// is stored.
func (s *RedisStore) LookupBypass(ctx context.Context, userID string) (b quota.Bypass, ok bool, err error) {
	jsonData, err := s.client.Get(ctx, s.key(userID)).Result()
	if err == redis.Nil {
		return quota.Bypass{}, false, nil
	}
	if err != nil {
		return quota.Bypass{}, false, fmt.Errorf("lookup bypass: %w", err)
	}

	var data bypassData
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return quota.Bypass{}, false, fmt.Errorf("unmarshal bypass: %w", err)
	}
	return quota.Bypass{ExpiresAt: data.ExpiresAt}, true, nil
}

// DisableBypass deletes the bypass for userID
func (s *RedisStore) DisableBypass(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("disable bypass: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
