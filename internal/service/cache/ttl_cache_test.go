package cache

import (
	"context"
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	if err := c.SetBytes(ctx, "chart:bitcoin", []byte("x"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if b, ok, _ := c.GetBytes(ctx, "chart:bitcoin"); !ok || string(b) != "x" {
		t.Fatalf("expected hit, got %q %v", b, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.GetBytes(ctx, "chart:bitcoin"); ok {
		t.Fatalf("expected expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted")
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache()
	type payload struct {
		Coin string `json:"coin"`
		N    int    `json:"n"`
	}
	if err := SetJSON(ctx, c, "k", payload{Coin: "bitcoin", N: 91}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	ok, err := GetJSON(ctx, c, "k", &got)
	if err != nil || !ok || got.N != 91 || got.Coin != "bitcoin" {
		t.Fatalf("got %+v ok=%v err=%v", got, ok, err)
	}
	if ok, _ := GetJSON(ctx, c, "missing", &got); ok {
		t.Fatalf("expected miss")
	}
}
