package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "kpi:"

// RedisCache holds the short-lived counters and locks used to throttle logins.
// Keys are namespaced so the instance can be shared with other services.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redisURL and fails if the server does not answer.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

// Hit increments the counter at key and returns the new count. The window
// starts with the first hit and is not extended by later ones.
func (r *RedisCache) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, keyPrefix+key)
		pipe.ExpireNX(ctx, keyPrefix+key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Lock sets key for d.
func (r *RedisCache) Lock(ctx context.Context, key string, d time.Duration) error {
	return r.client.Set(ctx, keyPrefix+key, 1, d).Err()
}

// LockTTL reports whether key is set and how long it has left. A lock without
// expiry reports zero remaining.
func (r *RedisCache) LockTTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := r.client.TTL(ctx, keyPrefix+key).Result()
	if err != nil {
		return 0, false, err
	}
	switch {
	case ttl > 0:
		return ttl, true, nil
	case ttl == -1:
		return 0, true, nil
	}
	return 0, false, nil
}

// Clear removes keys.
func (r *RedisCache) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	return r.client.Del(ctx, prefixed...).Err()
}

// Ping is used by the health check.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
