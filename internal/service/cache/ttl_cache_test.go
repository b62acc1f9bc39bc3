package cache

import (
	"context"
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := NewTTLCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.SetBytes(ctx, "BTCUSDT", []byte("x"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if b, ok, _ := c.GetBytes(ctx, "BTCUSDT"); !ok || string(b) != "x" {
		t.Fatalf("expected hit, got ok=%v b=%q", ok, b)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.GetBytes(ctx, "BTCUSDT"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", c.Len())
	}
}

func TestTTLCacheCopiesValue(t *testing.T) {
	c := NewTTLCache()
	ctx := context.Background()
	v := []byte("abc")
	_ = c.SetBytes(ctx, "k", v, 0)
	v[0] = 'z'
	b, ok, _ := c.GetBytes(ctx, "k")
	if !ok || string(b) != "abc" {
		t.Fatalf("stored value mutated: %q", b)
	}
}
