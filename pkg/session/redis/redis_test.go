package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"stockflow/pkg/session/redis"
)

func TestRegistryAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	defer client.Close()
	r := redis.New(client)

	tok := "test-token-" + time.Now().Format(time.RFC3339Nano)
	if ok, err := r.IsRevoked(ctx, tok); err != nil || ok {
		t.Fatalf("fresh token: ok=%v err=%v", ok, err)
	}
	if err := r.Revoke(ctx, tok, time.Now().Add(500*time.Millisecond)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, err := r.IsRevoked(ctx, tok); err != nil || !ok {
		t.Fatalf("revoked token: ok=%v err=%v", ok, err)
	}
	time.Sleep(700 * time.Millisecond)
	if ok, _ := r.IsRevoked(ctx, tok); ok {
		t.Fatal("expected key to expire")
	}

	if err := r.Revoke(ctx, "stale", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("revoking an expired token should be a no-op: %v", err)
	}
}
