// Package cache holds the per-user state kept outside the event store:
// category corrections, dismissed suggestions and analyzed patterns.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Keys are namespaced as cadence:user:{user_id}:{name}.
func userKey(userID uuid.UUID, name string) string {
	return fmt.Sprintf("cadence:user:%s:%s", userID, name)
}

const (
	correctionsKey = "corrections"
	dismissedKey   = "dismissed"
	patternsKey    = "patterns"
)

// RedisCorrectionStore keeps corrections in one hash per user.
type RedisCorrectionStore struct {
	client *redis.Client
}

// NewRedisCorrectionStore creates a Redis-backed correction store.
func NewRedisCorrectionStore(client *redis.Client) *RedisCorrectionStore {
	return &RedisCorrectionStore{client: client}
}

// Load implements calendarDomain.CorrectionStore.
func (s *RedisCorrectionStore) Load(ctx context.Context, userID uuid.UUID) (calendarDomain.Corrections, error) {
	values, err := s.client.HGetAll(ctx, userKey(userID, correctionsKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("load corrections: %w", err)
	}
	return calendarDomain.Corrections(values), nil
}

// Save implements calendarDomain.CorrectionStore.
func (s *RedisCorrectionStore) Save(ctx context.Context, userID uuid.UUID, normalizedTitle, category string) error {
	return s.client.HSet(ctx, userKey(userID, correctionsKey), normalizedTitle, category).Err()
}

// RedisDismissalStore keeps dismissed suggestion ids in one set per user.
type RedisDismissalStore struct {
	client *redis.Client
}

// NewRedisDismissalStore creates a Redis-backed dismissal store.
func NewRedisDismissalStore(client *redis.Client) *RedisDismissalStore {
	return &RedisDismissalStore{client: client}
}

// Dismiss implements domain.DismissalStore.
func (s *RedisDismissalStore) Dismiss(ctx context.Context, userID uuid.UUID, suggestionID string) error {
	return s.client.SAdd(ctx, userKey(userID, dismissedKey), suggestionID).Err()
}

// Dismissed implements domain.DismissalStore.
func (s *RedisDismissalStore) Dismissed(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	ids, err := s.client.SMembers(ctx, userKey(userID, dismissedKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("load dismissed suggestions: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// RedisPatternCache stores patterns as JSON with an expiry.
type RedisPatternCache struct {
	client *redis.Client
}

// NewRedisPatternCache creates a Redis-backed pattern cache.
func NewRedisPatternCache(client *redis.Client) *RedisPatternCache {
	return &RedisPatternCache{client: client}
}

// Get implements domain.PatternCache.
func (c *RedisPatternCache) Get(ctx context.Context, userID uuid.UUID) (*domain.UserPatterns, error) {
	data, err := c.client.Get(ctx, userKey(userID, patternsKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var patterns domain.UserPatterns
	if err := json.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("decode cached patterns: %w", err)
	}
	return &patterns, nil
}

// Set implements domain.PatternCache. A zero ttl stores without expiry.
func (c *RedisPatternCache) Set(ctx context.Context, userID uuid.UUID, patterns domain.UserPatterns, ttl time.Duration) error {
	data, err := json.Marshal(patterns)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userKey(userID, patternsKey), data, ttl).Err()
}

// Invalidate implements domain.PatternCache.
func (c *RedisPatternCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, userKey(userID, patternsKey)).Err()
}
