package cache

import (
	"context"
	"time"
)

// LayeredCache serves reads from a local MemoryCache and falls back to Redis,
// copying what it finds into memory for at most MemoryTTL. Writes and deletes
// go to Redis first so another replica never reads a value this one dropped.
type LayeredCache struct {
	local  *MemoryCache
	remote *RedisCache
	maxTTL time.Duration
}

func NewLayeredCache(remote *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{MemoryMaxSize: 1000, MemoryTTL: 30 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LayeredCache{
		local:  NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		remote: remote,
		maxTTL: cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := lc.remote.Set(ctx, key, data, expiration); err != nil {
		return err
	}
	return lc.local.Set(ctx, key, data, lc.localTTL(expiration))
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, ok := lc.local.raw(key); ok {
		return decode(data, dest)
	}

	data, ttl, err := lc.remote.raw(ctx, key)
	if err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, data, lc.localTTL(ttl))
	return decode(data, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	err := lc.remote.Delete(ctx, keys...)
	_ = lc.local.Delete(ctx, keys...)
	return err
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	err := lc.remote.DeleteByPattern(ctx, pattern)
	_ = lc.local.DeleteByPattern(ctx, pattern)
	return err
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.local.Exists(ctx, keys...); ok {
		return true, nil
	}
	return lc.remote.Exists(ctx, keys...)
}

func (lc *LayeredCache) Close() error {
	_ = lc.local.Close()
	return lc.remote.Close()
}

// localTTL is the remote expiration clipped to maxTTL; zero means no remote expiry.
func (lc *LayeredCache) localTTL(remote time.Duration) time.Duration {
	if remote > 0 && remote < lc.maxTTL {
		return remote
	}
	return lc.maxTTL
}

var _ Service = (*LayeredCache)(nil)
