package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"likha/internal/models"
)

// redisRateLimitStore keeps rate-limit records in Redis with the
// retention window enforced by key TTL. Selected over the database store
// when REDIS_ADDR is configured, keeping throttling churn off the
// primary database.
type redisRateLimitStore struct {
	client *redis.Client
}

// NewRedisRateLimitStore creates the Redis-backed store.
func NewRedisRateLimitStore(client *redis.Client) RateLimitStore {
	return &redisRateLimitStore{client: client}
}

func (s *redisRateLimitStore) key(key, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, key)
}

func (s *redisRateLimitStore) Get(ctx context.Context, key, endpoint string) (*models.RateLimitRecord, error) {
	raw, err := s.client.Get(ctx, s.key(key, endpoint)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var record models.RateLimitRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode rate limit record: %w", err)
	}
	return &record, nil
}

func (s *redisRateLimitStore) Save(ctx context.Context, record *models.RateLimitRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode rate limit record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(record.ClientKey, record.Endpoint), raw, rateLimitRetention).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisRateLimitStore) Delete(ctx context.Context, key, endpoint string) error {
	if err := s.client.Del(ctx, s.key(key, endpoint)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
