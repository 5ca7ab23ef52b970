package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist remembers revoked token IDs until their natural expiry to support logout.
type TokenBlacklist struct {
	rc     *redis.Client
	memory *expiringSet
}

// NewTokenBlacklist prefers Redis when rc is non-nil and keeps entries in memory otherwise.
func NewTokenBlacklist(rc *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rc: rc, memory: newExpiringSet()}
}

// Revoke stores the token ID until expiresAt.
func (b *TokenBlacklist) Revoke(ctx context.Context, id string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return b.rc.Set(ctx, blacklistPrefix+id, "1", ttl).Err()
	}
	b.memory.add(id, expiresAt)
	return nil
}

// IsRevoked checks if the token ID was revoked before natural expiration.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, id string) bool {
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := b.rc.Exists(ctx, blacklistPrefix+id).Result()
		if err != nil {
			// Fail open to avoid locking everyone out during a Redis outage
			Sugar.Warnf("token blacklist lookup failed: %v", err)
			return false
		}
		return n > 0
	}
	return b.memory.has(id)
}
