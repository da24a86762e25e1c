package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	window time.Duration
	prefix string
}

// NewRedisStore shares the attempt counters across process instances.
func NewRedisStore(client *redis.Client, prefix string, window time.Duration) Store {
	return &redisStore{client: client, window: window, prefix: prefix}
}

func (s *redisStore) key(key string) string { return s.prefix + ":" + key }

func (s *redisStore) Hit(ctx context.Context, key string) (int, time.Duration, error) {
	k := s.key(key)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, s.window)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("redis hit: %w", err)
	}

	resetIn := ttl.Val()
	if resetIn < 0 {
		resetIn = s.window
	}
	return int(incr.Val()), resetIn, nil
}

func (s *redisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis reset: %w", err)
	}
	return nil
}

type redisThrottle struct {
	client *redis.Client
	window time.Duration
	prefix string
}

func NewRedisThrottle(client *redis.Client, prefix string, window time.Duration) Throttle {
	return &redisThrottle{client: client, window: window, prefix: prefix}
}

func (t *redisThrottle) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := t.client.SetNX(ctx, t.prefix+":"+key, 1, t.window).Result()
	if err != nil {
		return false, fmt.Errorf("redis throttle: %w", err)
	}
	return ok, nil
}
