package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"civicconnect-be/logger"
	"civicconnect-be/models"

	"github.com/redis/go-redis/v9"
)

const roleCachePrefix = "role:"

// RedisRoleCache keeps resolutions in Redis under role:<uid>:<claims>, so a
// stale token carrying different claims never reads another token's entry.
type RedisRoleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRoleCache(client *redis.Client, ttl time.Duration) *RedisRoleCache {
	return &RedisRoleCache{client: client, ttl: ttl}
}

func roleCacheKey(uid string, claimsOrg bool) string {
	return roleCachePrefix + uid + ":" + strconv.FormatBool(claimsOrg)
}

func (c *RedisRoleCache) Get(ctx context.Context, p models.Principal) (models.Resolution, bool) {
	raw, err := c.client.Get(ctx, roleCacheKey(p.UID, p.ClaimsOrganization())).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.WithUser(p.UID, "role_cache").WithError(err).Warn("role cache read failed")
		}
		return models.Resolution{}, false
	}
	var res models.Resolution
	if err := json.Unmarshal(raw, &res); err != nil {
		return models.Resolution{}, false
	}
	return res, true
}

func (c *RedisRoleCache) Set(ctx context.Context, p models.Principal, res models.Resolution) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, roleCacheKey(p.UID, p.ClaimsOrganization()), raw, c.ttl).Err(); err != nil {
		logger.WithUser(p.UID, "role_cache").WithError(err).Warn("role cache write failed")
	}
}

func (c *RedisRoleCache) Invalidate(ctx context.Context, uid string) {
	err := c.client.Del(ctx, roleCacheKey(uid, false), roleCacheKey(uid, true)).Err()
	if err != nil {
		logger.WithUser(uid, "role_cache").WithError(err).Warn("role cache invalidation failed")
	}
}
