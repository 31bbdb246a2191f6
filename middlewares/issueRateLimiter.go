package middlewares

import (
	"net/http"
	"time"

	"civicconnect-be/apperrors"
	"civicconnect-be/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const issueLimitWindow = 24 * time.Hour

// IssueRateLimiter caps issue creations per user per day with a Redis
// counter. A nil client disables the limit.
func IssueRateLimiter(client *redis.Client, queuePrefix string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}
		userID := UserIDFrom(c)
		if userID == "" {
			abortWithError(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "User not authenticated")
			return
		}

		ctx := c.Request.Context()
		userKey := queuePrefix + ":" + userID

		count, err := client.Incr(ctx, userKey).Result()
		if err != nil {
			logger.WithUser(userID, "rate_limit").WithError(err).Error("redis error incrementing count")
			abortWithError(c, http.StatusServiceUnavailable, apperrors.CodeUnavailable, "Rate limiter unavailable")
			return
		}

		// TTL is set on the first increment of each window.
		if count == 1 {
			if err := client.Expire(ctx, userKey, issueLimitWindow).Err(); err != nil {
				logger.WithUser(userID, "rate_limit").WithError(err).Error("redis error setting TTL")
				abortWithError(c, http.StatusServiceUnavailable, apperrors.CodeUnavailable, "Rate limiter unavailable")
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := client.TTL(ctx, userKey).Result()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"code":        apperrors.CodeRateLimited,
				"retry_after": retryAfter.Seconds(),
			})
			return
		}

		c.Next()
	}
}
