package splatcard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eringen/splatcard/assetdb"
)

// RenderCache stores rendered cards by trigger phrase. *assetdb.Store and
// *RedisRenderCache implement it.
type RenderCache interface {
	GetRender(ctx context.Context, trigger string) (assetdb.RenderCacheEntry, bool, error)
	UpsertRender(ctx context.Context, e assetdb.RenderCacheEntry) error
	ClearRenders(ctx context.Context) (int64, error)
	PurgeExpiredRenders(ctx context.Context, now time.Time) (int64, error)
}

const renderKeyPrefix = "splatcard:render:"

// RedisOptions configures the Redis render cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // default "splatcard:render:"
}

// RedisRenderCache keeps renders in Redis hashes that expire natively.
type RedisRenderCache struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRenderCache connects and pings Redis.
func NewRedisRenderCache(ctx context.Context, opts RedisOptions) (*RedisRenderCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = renderKeyPrefix
	}
	return &RedisRenderCache{client: client, prefix: prefix, now: time.Now}, nil
}

func (c *RedisRenderCache) key(trigger string) string { return c.prefix + trigger }

// GetRender returns the entry for trigger; expired entries read as absent.
func (c *RedisRenderCache) GetRender(ctx context.Context, trigger string) (assetdb.RenderCacheEntry, bool, error) {
	if strings.TrimSpace(trigger) == "" {
		return assetdb.RenderCacheEntry{}, false, assetdb.ErrEmptyKey
	}
	vals, err := c.client.HGetAll(ctx, c.key(trigger)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return assetdb.RenderCacheEntry{}, false, nil
		}
		return assetdb.RenderCacheEntry{}, false, err
	}
	data, ok := vals["data"]
	if !ok {
		return assetdb.RenderCacheEntry{}, false, nil
	}
	e := assetdb.RenderCacheEntry{Trigger: trigger, Data: []byte(data)}
	if raw := vals["expires_at"]; raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return assetdb.RenderCacheEntry{}, false, fmt.Errorf("render %q: bad expiry %q: %w", trigger, raw, err)
		}
		e.ExpiresAt = t
	}
	if e.Expired(c.now()) {
		return assetdb.RenderCacheEntry{}, false, nil
	}
	return e, true, nil
}

// UpsertRender replaces the entry for e.Trigger and sets its Redis expiry.
func (c *RedisRenderCache) UpsertRender(ctx context.Context, e assetdb.RenderCacheEntry) error {
	if strings.TrimSpace(e.Trigger) == "" {
		return assetdb.ErrEmptyKey
	}
	key := c.key(e.Trigger)
	expires := ""
	if !e.ExpiresAt.IsZero() {
		expires = e.ExpiresAt.UTC().Format(time.RFC3339)
	}
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "data", e.Data, "expires_at", expires)
		if !e.ExpiresAt.IsZero() {
			p.ExpireAt(ctx, key, e.ExpiresAt)
		}
		return nil
	})
	return err
}

// ClearRenders deletes every key under the cache prefix.
func (c *RedisRenderCache) ClearRenders(ctx context.Context) (int64, error) {
	var n int64
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		deleted, err := c.client.Del(ctx, batch...).Result()
		n += deleted
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return n, err
	}
	return n, flush()
}

// PurgeExpiredRenders is a no-op: Redis evicts expired keys itself.
func (c *RedisRenderCache) PurgeExpiredRenders(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Close closes the Redis client.
func (c *RedisRenderCache) Close() error {
	return c.client.Close()
}
