package bootstrap

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/kvstore"
	"github.com/jonesrussell/index-checker/internal/logger"
)

const redisKeyPrefix = "index-checker:"

// KV is the server's key-value store and, when Redis backs it, the client
// used for health checks.
type KV struct {
	kvstore.Store
	redis *redis.Client
}

// Ping reports whether the backing store is reachable. The memory store always is.
func (k *KV) Ping(ctx context.Context) error {
	if k.redis == nil {
		return nil
	}
	return k.redis.Ping(ctx).Err()
}

// Redis reports whether the store is Redis-backed.
func (k *KV) Redis() bool {
	return k.redis != nil
}

// Close releases the Redis connection, if any.
func (k *KV) Close() {
	if k.redis != nil {
		_ = k.redis.Close()
	}
}

// SetupKVStore returns a Redis-backed store when Redis is enabled and
// reachable, and an in-memory store otherwise.
func SetupKVStore(cfg *config.Config, log logger.Logger) *KV {
	if !cfg.Redis.Enabled {
		log.Info("Redis disabled, using in-memory key-value store")
		return &KV{Store: kvstore.NewMemory()}
	}

	client, err := kvstore.NewRedisClient(kvstore.RedisConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis not available, using in-memory key-value store",
			logger.String("redis_address", cfg.Redis.Address),
			logger.Error(err),
		)
		return &KV{Store: kvstore.NewMemory()}
	}

	log.Info("Redis key-value store initialized", logger.String("redis_address", cfg.Redis.Address))
	return &KV{Store: kvstore.NewRedis(client, redisKeyPrefix), redis: client}
}
