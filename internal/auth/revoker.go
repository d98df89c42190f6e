package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"
)

const defaultRevocationPrefix = "gstore:session:revoked"

// Revoker records sessions that were signed out before their token expired.
type Revoker interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// RedisRevoker keeps revoked session ids in Redis until the token would have expired.
type RedisRevoker struct {
	client *red.Client
	prefix string
}

// NewRedisRevoker builds a revoker over client. An empty prefix selects the default.
func NewRedisRevoker(client *red.Client, prefix string) *RedisRevoker {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}
	return &RedisRevoker{client: client, prefix: prefix}
}

func (r *RedisRevoker) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	key := r.key(sessionID)
	if key == "" {
		return fmt.Errorf("session id is required")
	}
	if ttl <= 0 {
		// already expired, nothing left to deny
		return nil
	}
	if err := r.client.Set(ctx, key, "signed_out", ttl).Err(); err != nil {
		return fmt.Errorf("redis set session revocation: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	key := r.key(sessionID)
	if key == "" {
		return false, fmt.Errorf("session id is required")
	}
	if err := r.client.Get(ctx, key).Err(); err != nil {
		if errors.Is(err, red.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get session revocation: %w", err)
	}
	return true, nil
}

func (r *RedisRevoker) key(sessionID string) string {
	trimmed := strings.TrimSpace(sessionID)
	if trimmed == "" {
		return ""
	}
	return r.prefix + ":" + trimmed
}

// NopRevoker is used when no Redis is configured; sign-out then only clears the cookie.
type NopRevoker struct{}

func (NopRevoker) Revoke(context.Context, string, time.Duration) error { return nil }

func (NopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }
