package api

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})
	return m, client
}

func TestRedisDeduperAddRemove(t *testing.T) {
	_, client := newTestRedis(t)
	deduper := NewRedisDeduper(client, time.Minute)
	ctx := context.Background()

	added, err := deduper.Add(ctx, "org", "k1")
	if err != nil || !added {
		t.Fatalf("expected first add to succeed, added=%v err=%v", added, err)
	}
	added, err = deduper.Add(ctx, "org", "k1")
	if err != nil || added {
		t.Fatalf("expected duplicate add to be rejected, added=%v err=%v", added, err)
	}
	if err := deduper.Remove(ctx, "org", "k1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	added, err = deduper.Add(ctx, "org", "k1")
	if err != nil || !added {
		t.Fatalf("expected add after remove to succeed, added=%v err=%v", added, err)
	}
}

func TestRedisDeduperKeyNamespacing(t *testing.T) {
	m, client := newTestRedis(t)
	deduper := NewRedisDeduper(client, time.Minute)
	ctx := context.Background()
	const (
		orgID = "org"
		key   = "k1"
	)

	if _, err := deduper.Add(ctx, orgID, key); err != nil {
		t.Fatalf("add: %v", err)
	}
	if added, _ := deduper.Add(ctx, "other-org", key); !added {
		t.Fatalf("expected keys to be scoped per organization")
	}

	expectedKey := orgID + ":" + dedupeKeyPrefix + ":" + key
	if !m.Exists(expectedKey) {
		t.Fatalf("expected redis key %q to exist", expectedKey)
	}
	if ttl := m.TTL(expectedKey); ttl != time.Minute {
		t.Fatalf("unexpected ttl: %v", ttl)
	}
}
