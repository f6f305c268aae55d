package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:v1:"

// RevocationList records logged-out token ids in Redis until their natural
// expiry. Session tokens are otherwise stateless, so this is the only way a
// logout can take effect server-side. All operations fail open: a cache outage
// degrades the system to purely client-side logout instead of locking
// everyone out.
type RevocationList struct {
	cache *redis.Client
}

// NewRevocationList builds a revocation list. A nil client yields a no-op list.
func NewRevocationList(cache *redis.Client) *RevocationList {
	return &RevocationList{cache: cache}
}

// Revoke records the token id until the token would have expired anyway.
func (r *RevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if r == nil || r.cache == nil || tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.cache.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether the token id has been revoked.
func (r *RevocationList) IsRevoked(ctx context.Context, tokenID string) bool {
	if r == nil || r.cache == nil || tokenID == "" {
		return false
	}
	_, err := r.cache.Get(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		// redis.Nil means not revoked; other errors fail open.
		return false
	}
	return true
}
