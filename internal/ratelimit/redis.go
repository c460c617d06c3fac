package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares buckets across server instances. Each key is a counter
// whose TTL is the window: the first INCR arms the expiry and the key
// vanishing is the window-elapse reset.
type RedisStore struct {
	rdb    *redis.Client
	window time.Duration
	prefix string
}

func NewRedisStore(rdb *redis.Client, window time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, window: window, prefix: "ratelimit:"}
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int, error) {
	k := s.prefix + key
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Count(ctx context.Context, key string) (int, time.Duration, error) {
	k := s.prefix + key
	count, err := s.rdb.Get(ctx, k).Int()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	ttl, err := s.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		ttl = 0
	}
	return count, ttl, nil
}
