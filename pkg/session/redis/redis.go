// Package redis keeps revoked tokens in Redis so every instance sees them.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "session:revoked:"

// Registry implements session.Revoker on Redis. Keys expire with the token.
type Registry struct {
	client goredis.UniversalClient
	now    func() time.Time
}

// New creates a Redis-backed registry.
func New(client goredis.UniversalClient) *Registry {
	return &Registry{client: client, now: time.Now}
}

func key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Revoke stores the token until expiresAt. An already expired token is ignored.
func (r *Registry) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, key(token), "1", ttl).Err()
}

// IsRevoked reports whether the token key still exists.
func (r *Registry) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
