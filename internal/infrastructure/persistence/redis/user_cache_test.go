package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/internal/domain/models"
	"github.com/turtacn/perimeter/internal/infrastructure/monitoring"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/logger"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleUser() *models.User {
	return &models.User{
		ID:           42,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		Status:       models.UserStatusActive,
		Roles:        []models.Role{{ID: 1, Name: "USER"}},
	}
}

func TestUserCache_MissThenHit(t *testing.T) {
	mr, client := newMiniredis(t)
	cache := NewUserCache(client, monitoring.NewNoopMetrics())
	ctx := context.Background()

	got, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, sampleUser()))
	assert.True(t, mr.Exists(constants.UserCacheKeyPrefix+"alice"))
	assert.Equal(t, constants.UserCacheTTL, mr.TTL(constants.UserCacheKeyPrefix+"alice"))

	got, err = cache.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "42", got.Subject())
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)
	assert.Equal(t, []string{"USER"}, got.RoleNames())
}

func TestUserCache_ReadsThroughFromRedis(t *testing.T) {
	_, client := newMiniredis(t)
	writer := NewUserCache(client, monitoring.NewNoopMetrics())
	reader := NewUserCache(client, monitoring.NewNoopMetrics())
	ctx := context.Background()

	require.NoError(t, writer.Set(ctx, sampleUser()))

	got, err := reader.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(42), got.ID)
}

func TestUserCache_CorruptEntryIsAMiss(t *testing.T) {
	mr, client := newMiniredis(t)
	require.NoError(t, mr.Set(constants.UserCacheKeyPrefix+"alice", "{not json"))
	cache := NewUserCache(client, monitoring.NewNoopMetrics())

	got, err := cache.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists(constants.UserCacheKeyPrefix+"alice"))
}

func TestUserCache_RedisDown(t *testing.T) {
	mr, client := newMiniredis(t)
	cache := NewUserCache(client, monitoring.NewNoopMetrics())
	mr.Close()

	_, err := cache.Get(context.Background(), "alice")
	assert.Error(t, err)
}

func TestUserCache_LocalOnly(t *testing.T) {
	cache := NewUserCache(nil, monitoring.NewNoopMetrics())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleUser()))
	got, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
}

func TestRedisConnection_Ping(t *testing.T) {
	mr, _ := newMiniredis(t)
	conn := NewRedisConnection(&config.RedisConfig{Address: mr.Addr()}, logger.NewNoopLogger())
	defer conn.Close()

	assert.NoError(t, conn.Ping(context.Background()))
	mr.Close()
	assert.Error(t, conn.Ping(context.Background()))
}
