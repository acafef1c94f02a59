package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/config"
)

// NewClient builds the Redis client. An unreachable server is logged, not
// fatal: the only consumer is the rate limiter, which fails open.
func NewClient(cfg config.RedisConfig, log zerolog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("address", cfg.Address).Msg("error connecting to Redis")
	} else {
		log.Info().Str("address", cfg.Address).Msg("connected to Redis")
	}

	return client
}
