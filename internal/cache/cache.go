// Package cache keeps read-mostly catalog pages in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"koop-backend/internal/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrMiss is returned by GetJSON when the key is absent.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	Del(ctx context.Context, keys ...string) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// Open returns a Redis cache when an address is configured and reachable, Noop otherwise.
func Open(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) Cache {
	if cfg.Addr == "" {
		return Noop{}
	}
	rc := NewRedisCache(cfg)
	if err := rc.Ping(ctx); err != nil {
		log.Warn("redis unreachable, catalog cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = rc.Close()
		return Noop{}
	}
	return rc
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *RedisCache) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Noop never stores anything; every read misses.
type Noop struct{}

func (Noop) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (Noop) GetJSON(context.Context, string, any) error                { return ErrMiss }
func (Noop) Del(context.Context, ...string) error                      { return nil }
