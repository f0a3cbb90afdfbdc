package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// UsageCounter keeps daily counters of issuance and denial outcomes.
type UsageCounter interface {
	Increment(ctx context.Context, name string) (int64, error)
	Get(ctx context.Context, name string) (int64, error)
}

const counterRetention = 8 * 24 * time.Hour

type redisUsageCounter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisUsageCounter returns a Redis-backed counter, or nil when no client is configured.
func NewRedisUsageCounter(client *redis.Client, prefix string, now func() time.Time) UsageCounter {
	if client == nil {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &redisUsageCounter{client: client, prefix: prefix, now: now}
}

func (r *redisUsageCounter) Increment(ctx context.Context, name string) (int64, error) {
	key := r.key(name)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *redisUsageCounter) Get(ctx context.Context, name string) (int64, error) {
	val, err := r.client.Get(ctx, r.key(name)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return val, err
}

func (r *redisUsageCounter) key(name string) string {
	return r.prefix + ":usage:" + r.now().UTC().Format("20060102") + ":" + name
}
