package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemCacheExpiry(t *testing.T) {
	fake := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	c := NewMemCache()
	c.now = func() time.Time { return fake }

	c.Set("mods:test", []string{"alice", "bob"}, time.Hour)

	got, ok := c.Get("mods:test")
	if !ok {
		t.Fatalf("expected hit immediately after Set")
	}
	if len(got) != 2 || got[0] != "alice" {
		t.Errorf("got %v, want [alice bob]", got)
	}

	fake = fake.Add(61 * time.Minute)
	if _, ok := c.Get("mods:test"); ok {
		t.Errorf("expected miss after TTL expiry")
	}
}

func TestKeyNamespacing(t *testing.T) {
	if ModeratorsKey("foo") == ContributorsKey("foo") {
		t.Errorf("moderator and contributor keys must not collide")
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCache(rdb, context.Background())

	if _, ok := c.Get("contribs:test"); ok {
		t.Fatalf("expected miss before Set")
	}

	c.Set("contribs:test", []string{"carol"}, time.Hour)
	got, ok := c.Get("contribs:test")
	if !ok {
		t.Fatalf("expected hit after Set")
	}
	if len(got) != 1 || got[0] != "carol" {
		t.Errorf("got %v, want [carol]", got)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok := c.Get("contribs:test"); ok {
		t.Errorf("expected miss after TTL expiry")
	}
}
