package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	dedupKeyPrefix  = "notifier:dedup"
	defaultDedupTTL = 24 * time.Hour
)

// DedupGuard remembers which events were already handled so a trigger that
// fires twice for the same row does not email admins twice.
type DedupGuard struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewDedupGuard(client goredis.Cmdable, ttl time.Duration) (*DedupGuard, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &DedupGuard{client: client, ttl: ttl}, nil
}

// Claim returns true when key was not seen within the TTL. The claim is
// recorded atomically, so only one concurrent caller wins.
func (g *DedupGuard) Claim(ctx context.Context, key string) (bool, error) {
	k, err := dedupKey(key)
	if err != nil {
		return false, err
	}

	ok, err := g.client.SetNX(ctx, k, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim dedup key: %w", err)
	}
	return ok, nil
}

// Release forgets key so the event can be handled again, e.g. after every
// send failed.
func (g *DedupGuard) Release(ctx context.Context, key string) error {
	k, err := dedupKey(key)
	if err != nil {
		return err
	}
	if err := g.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("failed to release dedup key: %w", err)
	}
	return nil
}

func dedupKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("dedup key is required")
	}
	return dedupKeyPrefix + ":" + key, nil
}
