package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/chynybekuuludastan/story_generator/internal/models"
)

const (
	// Cache key prefixes
	KeyPrefixStory      = "story:"
	KeyPrefixTokenBlock = "token_blacklist:"

	// Default TTL for cached items
	DefaultTTL = 1 * time.Hour
)

// Repository represents a Redis cache repository
type Repository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRepository creates a new Redis cache repository; a zero ttl uses DefaultTTL
func NewRepository(client *redis.Client, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{
		client: client,
		ttl:    ttl,
	}
}

func storyKey(userID, storyID uuid.UUID) string {
	return KeyPrefixStory + userID.String() + ":" + storyID.String()
}

// CacheStory stores a story in the cache under its owner
func (r *Repository) CacheStory(ctx context.Context, story *models.Story) error {
	if r.client == nil {
		return nil // Skip if Redis is not available
	}

	data, err := json.Marshal(story)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	return r.client.Set(ctx, storyKey(story.UserID, story.ID), data, r.ttl).Err()
}

// GetStory retrieves a story from the cache; a miss returns nil without error
func (r *Repository) GetStory(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, error) {
	if r.client == nil {
		return nil, nil
	}

	data, err := r.client.Get(ctx, storyKey(userID, storyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss, not an error
		}
		return nil, err
	}

	var story models.Story
	if err := json.Unmarshal(data, &story); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}
	// json:"-" drops the owner, restore it from the key
	story.UserID = userID

	return &story, nil
}

// InvalidateStory removes a story from the cache
func (r *Repository) InvalidateStory(ctx context.Context, userID, storyID uuid.UUID) error {
	if r.client == nil {
		return nil
	}
	return r.client.Del(ctx, storyKey(userID, storyID)).Err()
}

// BlacklistToken marks a JWT as revoked until it would have expired anyway
func (r *Repository) BlacklistToken(ctx context.Context, token string, ttl time.Duration) error {
	if r.client == nil {
		return errors.New("redis client not available")
	}
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, KeyPrefixTokenBlock+token, 1, ttl).Err()
}

// IsTokenBlacklisted reports whether a JWT was revoked
func (r *Repository) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	if r.client == nil {
		return false, nil
	}
	n, err := r.client.Exists(ctx, KeyPrefixTokenBlock+token).Result()
	return n > 0, err
}
