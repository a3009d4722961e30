package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCorrectionStore(t *testing.T) {
	store := NewMemoryCorrectionStore()
	ctx := context.Background()
	user, other := uuid.New(), uuid.New()

	require.NoError(t, store.Save(ctx, user, "standup", "focus"))
	require.NoError(t, store.Save(ctx, user, "standup", "meeting"))

	got, err := store.Load(ctx, user)
	require.NoError(t, err)
	category, ok := got.Lookup("standup")
	assert.True(t, ok)
	assert.Equal(t, "meeting", category)

	got["standup"] = "mutated"
	again, _ := store.Load(ctx, user)
	assert.Equal(t, "meeting", again["standup"])

	empty, err := store.Load(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryDismissalStore(t *testing.T) {
	store := NewMemoryDismissalStore()
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, store.Dismiss(ctx, user, "busy-day-2024-03-04"))
	require.NoError(t, store.Dismiss(ctx, user, "busy-day-2024-03-04"))

	got, err := store.Dismissed(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"busy-day-2024-03-04": true}, got)
}

func TestMemoryPatternCache_Expiry(t *testing.T) {
	c := NewMemoryPatternCache()
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	user := uuid.New()

	miss, err := c.Get(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, c.Set(ctx, user, domain.DefaultPatterns(), time.Hour))
	hit, err := c.Get(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 9, hit.WorkStartHour)

	now = now.Add(time.Hour)
	expired, err := c.Get(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, expired)

	require.NoError(t, c.Set(ctx, user, domain.DefaultPatterns(), 0))
	require.NoError(t, c.Invalidate(ctx, user))
	gone, _ := c.Get(ctx, user)
	assert.Nil(t, gone)
}

func TestUserKey(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	assert.Equal(t, "cadence:user:00000000-0000-0000-0000-000000000001:patterns", userKey(id, patternsKey))
}

// TestRedisStores runs against a live server when REDIS_URL is set.
func TestRedisStores(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	defer client.Close()

	ctx := context.Background()
	user := uuid.New()
	t.Cleanup(func() {
		client.Del(ctx, userKey(user, correctionsKey), userKey(user, dismissedKey), userKey(user, patternsKey))
	})

	corrections := NewRedisCorrectionStore(client)
	require.NoError(t, corrections.Save(ctx, user, "gym", "health"))
	loaded, err := corrections.Load(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "health", loaded["gym"])

	dismissals := NewRedisDismissalStore(client)
	require.NoError(t, dismissals.Dismiss(ctx, user, "imminent-1"))
	dismissed, err := dismissals.Dismissed(ctx, user)
	require.NoError(t, err)
	assert.True(t, dismissed["imminent-1"])

	patterns := NewRedisPatternCache(client)
	require.NoError(t, patterns.Set(ctx, user, domain.DefaultPatterns(), time.Minute))
	cached, err := patterns.Get(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, []int{9, 10, 14}, cached.ProductiveHours)
	require.NoError(t, patterns.Invalidate(ctx, user))
	cached, err = patterns.Get(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
