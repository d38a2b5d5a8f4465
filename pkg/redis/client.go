package redis

import (
	"github.com/redis/go-redis/v9"

	"icebackfill/config"
)

// NewRedisClient builds a client from config. No package-level state: the
// client is passed explicitly to whoever needs it.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
