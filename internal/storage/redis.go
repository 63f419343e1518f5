package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/minus-twelve/construct/types"
)

const DefaultPrefix = "construct:"

// NewRedisClient connects to Redis and pings it once. The returned prefix is
// cfg.Prefix or DefaultPrefix when unset.
func NewRedisClient(ctx context.Context, cfg types.RedisConfig) (*redis.Client, string, error) {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, "", fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return client, prefix, nil
}
