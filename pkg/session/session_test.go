package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"stockflow/pkg/session"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestRevokedUntilExpiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := session.NewRegistryWithClock(c.now)

	if ok, _ := r.IsRevoked(ctx, "tok"); ok {
		t.Fatal("unknown token reported revoked")
	}
	r.Revoke(ctx, "tok", c.now().Add(5*time.Minute))
	if ok, _ := r.IsRevoked(ctx, "tok"); !ok {
		t.Fatal("expected revoked right after revoke")
	}

	c.advance(5 * time.Minute)
	if ok, _ := r.IsRevoked(ctx, "tok"); ok {
		t.Fatal("expected expired entry to report false")
	}
	if r.Len() != 0 {
		t.Fatalf("expected expired entry pruned, %d left", r.Len())
	}
}

func TestRevokeOverwrites(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(0, 0)}
	r := session.NewRegistryWithClock(c.now)
	r.Revoke(ctx, "tok", c.now().Add(time.Minute))
	r.Revoke(ctx, "tok", c.now().Add(time.Hour))
	c.advance(10 * time.Minute)
	if ok, _ := r.IsRevoked(ctx, "tok"); !ok {
		t.Fatal("later expiry must win")
	}
	if r.Len() != 1 {
		t.Fatalf("expected a single entry, got %d", r.Len())
	}
}

func TestConcurrentRevocations(t *testing.T) {
	ctx := context.Background()
	r := session.NewRegistry()
	exp := time.Now().Add(time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := string(rune('a' + i%26))
			r.Revoke(ctx, tok, exp)
			r.IsRevoked(ctx, tok)
		}(i)
	}
	wg.Wait()
	if r.Len() != 26 {
		t.Fatalf("expected 26 tokens, got %d", r.Len())
	}
}
