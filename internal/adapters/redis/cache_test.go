package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisad "cinema_catalog/internal/adapters/redis"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestCache_SetGetDel(t *testing.T) {
	_, c := newClient(t)
	cache := redisad.NewFromClient(c)
	ctx := context.Background()

	var out map[string]int
	if ok, err := cache.Get(ctx, "catalog:x", &out); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := cache.Set(ctx, "catalog:x", map[string]int{"a": 1}, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, err := cache.Get(ctx, "catalog:x", &out); err != nil || !ok || out["a"] != 1 {
		t.Fatalf("expected hit with a=1, got ok=%v err=%v out=%v", ok, err, out)
	}
	if err := cache.Del(ctx, "catalog:x"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if ok, _ := cache.Get(ctx, "catalog:x", &out); ok {
		t.Fatalf("expected miss after del")
	}
}

func TestCache_InvalidatePrefix(t *testing.T) {
	mr, c := newClient(t)
	cache := redisad.NewFromClient(c)
	ctx := context.Background()

	for _, k := range []string{"catalog:movies", "catalog:movie:1", "catalog:movie:2", "other:key"} {
		if err := mr.Set(k, "v"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	n, err := cache.InvalidatePrefix(ctx, "catalog:")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 keys removed, got %d", n)
	}
	if !mr.Exists("other:key") {
		t.Fatalf("unrelated key must survive")
	}
}

func TestRunLock_ExclusiveAndOwnerRelease(t *testing.T) {
	mr, c := newClient(t)
	lock := redisad.NewRunLock(c, time.Minute)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, _ := lock.Acquire(ctx, "run-2"); ok {
		t.Fatalf("second acquire must fail while held")
	}
	// a non-owner release is a no-op
	if err := lock.Release(ctx, "run-2"); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if ok, _ := lock.Acquire(ctx, "run-2"); ok {
		t.Fatalf("lock must still be held by run-1")
	}
	if err := lock.Release(ctx, "run-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := lock.Acquire(ctx, "run-2"); !ok {
		t.Fatalf("expected acquire after release")
	}

	// expiry frees a lock whose holder vanished
	mr.FastForward(2 * time.Minute)
	if ok, _ := lock.Acquire(ctx, "run-3"); !ok {
		t.Fatalf("expected acquire after ttl expiry")
	}
}
