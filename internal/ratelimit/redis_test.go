package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newTestRedisWindow(t *testing.T, rdb *redis.Client, rule Rule, namespace string) *RedisWindow {
	t.Helper()
	l, err := NewRedisWindow(rdb, rule, "ratelimit", namespace)
	if err != nil {
		t.Fatalf("failed to create redis limiter: %v", err)
	}
	return l
}

func TestRedisWindow_AdmitsThenRejects(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := newTestRedisWindow(t, rdb, Rule{Limit: 3, Window: time.Minute}, "subscribe")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Check(ctx, "198.51.100.5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.Allowed || d.Remaining != 3-(i+1) {
			t.Fatalf("request %d: unexpected decision %+v", i+1, d)
		}
	}

	d, err := l.Check(ctx, "198.51.100.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("expected rejection, got %+v", d)
	}

	got, err := mr.Get("ratelimit:subscribe:198.51.100.5")
	if err != nil {
		t.Fatalf("counter key missing: %v", err)
	}
	if got != "3" {
		t.Fatalf("rejected attempt must not increment the counter, got %s", got)
	}
}

func TestRedisWindow_ExpiresWithWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := newTestRedisWindow(t, rdb, Rule{Limit: 1, Window: time.Minute}, "contact")
	ctx := context.Background()

	if d, _ := l.Check(ctx, "k"); !d.Allowed {
		t.Fatal("first request should be allowed")
	}
	if d, _ := l.Check(ctx, "k"); d.Allowed {
		t.Fatal("second request should be limited")
	}

	mr.FastForward(time.Minute + time.Second)

	d, err := l.Check(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || d.Remaining != 0 {
		t.Fatalf("expected fresh window, got %+v", d)
	}
}

func TestRedisWindow_NamespacesAreIndependent(t *testing.T) {
	_, rdb := newTestRedis(t)
	contact := newTestRedisWindow(t, rdb, Rule{Limit: 1, Window: time.Minute}, "contact")
	subscribe := newTestRedisWindow(t, rdb, Rule{Limit: 1, Window: time.Minute}, "subscribe")
	ctx := context.Background()

	if d, _ := contact.Check(ctx, "k"); !d.Allowed {
		t.Fatal("contact should be allowed")
	}
	if d, _ := subscribe.Check(ctx, "k"); !d.Allowed {
		t.Fatal("subscribe has its own budget and should be allowed")
	}
}

func TestRedisWindow_ReportsConnectionErrors(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := newTestRedisWindow(t, rdb, Rule{Limit: 1, Window: time.Minute}, "contact")
	mr.Close()

	if _, err := l.Check(context.Background(), "k"); err == nil {
		t.Fatal("expected error when redis is unavailable")
	}
}

func TestNewRedisWindowValidatesRule(t *testing.T) {
	_, rdb := newTestRedis(t)
	if _, err := NewRedisWindow(rdb, Rule{Limit: 0, Window: time.Minute}, "p", "n"); err == nil {
		t.Fatal("expected error for zero limit")
	}
	if _, err := NewRedisWindow(nil, Rule{Limit: 1, Window: time.Minute}, "p", "n"); err == nil {
		t.Fatal("expected error for nil client")
	}
}
