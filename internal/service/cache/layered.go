package cache

import (
	"context"
	"io"
	"time"
)

// LayeredCache fronts a shared cache (Redis) with the in-process TTL cache.
// Writes go through to both; reads backfill L1 from L2 for at most l1TTL.
type LayeredCache struct {
	l1    *TTLCache
	l2    BytesCache
	l1TTL time.Duration
}

// NewLayeredCache creates a two-level cache. l1TTL <= 0 defaults to 30s.
func NewLayeredCache(l2 BytesCache, l1TTL time.Duration) *LayeredCache {
	if l1TTL <= 0 {
		l1TTL = 30 * time.Second
	}
	return &LayeredCache{l1: NewTTLCache(), l2: l2, l1TTL: l1TTL}
}

func (lc *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := lc.l1.GetBytes(ctx, key); ok {
		return b, true, nil
	}
	b, ok, err := lc.l2.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = lc.l1.SetBytes(ctx, key, b, lc.l1TTL)
	return b, true, nil
}

// SetBytes writes L2 first; L1 is only filled once the shared copy exists.
func (lc *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := lc.l2.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	l1TTL := lc.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	return lc.l1.SetBytes(ctx, key, value, l1TTL)
}

// Ping checks L2 when it supports health checks.
func (lc *LayeredCache) Ping(ctx context.Context) error {
	if p, ok := lc.l2.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes L2 when it holds resources.
func (lc *LayeredCache) Close() error {
	if c, ok := lc.l2.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ BytesCache = (*LayeredCache)(nil)
