package ratelimit

import "testing"

func TestLimiterPerKey(t *testing.T) {
	l := New(0.001, 2)
	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst should be allowed")
	}
	if l.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share buckets")
	}
}
