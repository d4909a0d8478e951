package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chynybekuuludastan/story_generator/internal/models"
)

func TestRepositoryWithoutRedis(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(nil, 0)
	userID, storyID := uuid.New(), uuid.New()

	assert.Equal(t, DefaultTTL, repo.ttl)
	assert.NoError(t, repo.CacheStory(ctx, &models.Story{ID: storyID, UserID: userID}))

	story, err := repo.GetStory(ctx, userID, storyID)
	require.NoError(t, err)
	assert.Nil(t, story)

	assert.NoError(t, repo.InvalidateStory(ctx, userID, storyID))
	assert.Error(t, repo.BlacklistToken(ctx, "token", DefaultTTL))

	blocked, err := repo.IsTokenBlacklisted(ctx, "token")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestStoryKeyIsScopedToOwner(t *testing.T) {
	storyID := uuid.New()
	assert.NotEqual(t, storyKey(uuid.New(), storyID), storyKey(uuid.New(), storyID))
	assert.Contains(t, storyKey(uuid.Nil, storyID), KeyPrefixStory)
}
