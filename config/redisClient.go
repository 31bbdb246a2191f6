package config

import (
	"context"
	"fmt"
	"time"

	"civicconnect-be/logger"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client for REDIS_ADDRESS, or nil when Redis is not
// configured. Callers treat a nil client as "no cache, no daily limit".
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	logger.WithComponent("config").WithField("address", cfg.Address).Info("Connected to Redis")
	return client, nil
}
