package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV implements KV on top of a Redis client. Redis owns entry expiry
// via per-key TTLs, so the list never needs its own sweeper.
type RedisKV struct {
	rdb *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisKV(cfg RedisConfig) *RedisKV {
	return &RedisKV{rdb: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisKV) Close() error {
	return r.rdb.Close()
}
