package splatcard

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/splatcard/assetdb"
)

// exerciseRenderCache checks the behaviour every RenderCache backend shares.
func exerciseRenderCache(t *testing.T, rc RenderCache) {
	t.Helper()
	ctx := context.Background()
	future := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	if _, ok, err := rc.GetRender(ctx, "absent"); err != nil || ok {
		t.Fatalf("GetRender(absent) ok=%v err=%v", ok, err)
	}

	if err := rc.UpsertRender(ctx, assetdb.RenderCacheEntry{Trigger: "live", Data: []byte("v1"), ExpiresAt: future}); err != nil {
		t.Fatalf("UpsertRender: %v", err)
	}
	if err := rc.UpsertRender(ctx, assetdb.RenderCacheEntry{Trigger: "live", Data: []byte("v2"), ExpiresAt: future}); err != nil {
		t.Fatalf("UpsertRender overwrite: %v", err)
	}
	e, ok, err := rc.GetRender(ctx, "live")
	if err != nil || !ok {
		t.Fatalf("GetRender(live) ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(e.Data, []byte("v2")) || !e.ExpiresAt.Equal(future) {
		t.Fatalf("entry = %q/%v, want v2/%v", e.Data, e.ExpiresAt, future)
	}

	if err := rc.UpsertRender(ctx, assetdb.RenderCacheEntry{Trigger: "forever", Data: []byte("f")}); err != nil {
		t.Fatalf("UpsertRender no expiry: %v", err)
	}
	if e, ok, _ := rc.GetRender(ctx, "forever"); !ok || !e.ExpiresAt.IsZero() {
		t.Fatalf("entry without expiry: ok=%v expires=%v", ok, e.ExpiresAt)
	}

	past := time.Now().Add(-time.Minute)
	if err := rc.UpsertRender(ctx, assetdb.RenderCacheEntry{Trigger: "stale", Data: []byte("s"), ExpiresAt: past}); err != nil {
		t.Fatalf("UpsertRender stale: %v", err)
	}
	if _, ok, _ := rc.GetRender(ctx, "stale"); ok {
		t.Fatalf("expired entry read as present")
	}
	if _, err := rc.PurgeExpiredRenders(ctx, time.Now()); err != nil {
		t.Fatalf("PurgeExpiredRenders: %v", err)
	}

	if err := rc.UpsertRender(ctx, assetdb.RenderCacheEntry{Data: []byte("x")}); !errors.Is(err, assetdb.ErrEmptyKey) {
		t.Fatalf("empty trigger err = %v", err)
	}

	n, err := rc.ClearRenders(ctx)
	if err != nil {
		t.Fatalf("ClearRenders: %v", err)
	}
	if n < 2 {
		t.Fatalf("ClearRenders removed %d, want at least 2", n)
	}
	for _, trig := range []string{"live", "forever"} {
		if _, ok, _ := rc.GetRender(ctx, trig); ok {
			t.Fatalf("%s survived ClearRenders", trig)
		}
	}
}

func TestSQLiteRenderCache(t *testing.T) {
	store, err := assetdb.Open(filepath.Join(t.TempDir(), "image.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	exerciseRenderCache(t, store)
}

func TestRedisRenderCache(t *testing.T) {
	addr := os.Getenv("SPLATCARD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SPLATCARD_TEST_REDIS_ADDR not set")
	}
	rc, err := NewRedisRenderCache(context.Background(), RedisOptions{
		Addr:   addr,
		Prefix: "splatcard:test:" + t.Name() + ":",
	})
	if err != nil {
		t.Fatalf("NewRedisRenderCache: %v", err)
	}
	defer rc.Close()
	t.Cleanup(func() { rc.ClearRenders(context.Background()) })
	exerciseRenderCache(t, rc)
}

func TestRedisRenderCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := NewRedisRenderCache(ctx, RedisOptions{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatalf("expected ping error for unreachable redis")
	}
}
