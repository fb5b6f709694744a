package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/perimeter/internal/domain/models"
	"github.com/turtacn/perimeter/internal/domain/repository"
	"github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
)

// userCache is a two-level cache: an in-process go-cache in front of Redis.
type userCache struct {
	client  *redis.Client
	local   *gocache.Cache
	ttl     time.Duration
	metrics service.Metrics
}

// NewUserCache creates a repository.UserCache. client may be nil, in which
// case only the in-process level is used.
func NewUserCache(client *redis.Client, metrics service.Metrics) repository.UserCache {
	return &userCache{
		client:  client,
		local:   gocache.New(constants.UserCacheL1TTL, 2*constants.UserCacheL1TTL),
		ttl:     constants.UserCacheTTL,
		metrics: metrics,
	}
}

func userKey(username string) string {
	return constants.UserCacheKeyPrefix + username
}

func (c *userCache) Get(ctx context.Context, username string) (*models.User, error) {
	key := userKey(username)
	if v, ok := c.local.Get(key); ok {
		c.metrics.RecordCacheAccess("local", true)
		user := v.(models.User)
		return &user, nil
	}
	c.metrics.RecordCacheAccess("local", false)

	if c.client == nil {
		return nil, nil
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			c.metrics.RecordCacheAccess("redis", false)
			return nil, nil
		}
		return nil, errors.ErrServiceUnavailable.WithMessage("redis get failed").WithCause(err)
	}
	c.metrics.RecordCacheAccess("redis", true)

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.client.Del(ctx, key).Err()
		return nil, nil
	}
	c.local.Set(key, user, gocache.DefaultExpiration)
	return &user, nil
}

func (c *userCache) Set(ctx context.Context, user *models.User) error {
	key := userKey(user.Username)
	c.local.Set(key, *user, gocache.DefaultExpiration)
	if c.client == nil {
		return nil
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return errors.ErrUnknown.WithCause(err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return errors.ErrServiceUnavailable.WithMessage("redis set failed").WithCause(err)
	}
	return nil
}
