package controllers

import (
	"context"
	"net/http"
	"time"

	"civicconnect-be/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// HealthController serves /api/health with store and optional Redis checks.
type HealthController struct {
	store store.Store
	redis *redis.Client
	env   string
}

func NewHealthController(s store.Store, redisClient *redis.Client, env string) *HealthController {
	return &HealthController{store: s, redis: redisClient, env: env}
}

func (h *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{}
	allOK := true

	if err := h.store.Ping(ctx); err != nil {
		checks["store"] = "down: " + err.Error()
		allOK = false
	} else {
		checks["store"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down: " + err.Error()
			allOK = false
		} else {
			checks["redis"] = "ok"
		}
	}

	body := gin.H{
		"status":      "ok",
		"time":        time.Now().UTC().Format(time.RFC3339),
		"environment": h.env,
		"checks":      checks,
	}
	if !allOK {
		body["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
