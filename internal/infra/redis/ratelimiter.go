package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/application-notifier/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultSendsPerSec int64 = 10
	backoffStep              = 10 * time.Millisecond
	backoffMax               = 50 * time.Millisecond
	windowSeconds            = 1
	rateKeyPrefix            = "notifier:sendrate"
)

// Fixed one-second window: the first INCR of a window sets its expiry.
var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.RateLimiter = (*SendRateLimiter)(nil)

// SendRateLimiter caps outbound emails per second across every process
// sharing the same Redis.
type SendRateLimiter struct {
	client      goredis.Scripter
	limitPerSec int64
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewSendRateLimiter(client *goredis.Client, limitPerSec int) (*SendRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newSendRateLimiter(client, int64(limitPerSec), time.Now, sleepWithContext), nil
}

func newSendRateLimiter(
	client goredis.Scripter,
	limitPerSec int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) *SendRateLimiter {
	if limitPerSec <= 0 {
		limitPerSec = defaultSendsPerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &SendRateLimiter{
		client:      client,
		limitPerSec: limitPerSec,
		now:         nowFn,
		sleep:       sleepFn,
	}
}

func (l *SendRateLimiter) Limit() int64 {
	if l == nil {
		return 0
	}
	return l.limitPerSec
}

func (l *SendRateLimiter) Allow(ctx context.Context, scope string) (bool, error) {
	if l == nil || l.client == nil {
		return false, fmt.Errorf("send rate limiter is not initialized")
	}

	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		return false, fmt.Errorf("rate limit scope is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key := fmt.Sprintf("%s:%s:%d", rateKeyPrefix, scope, l.now().UTC().Unix())
	ok, err := allowScript.Run(ctx, l.client, []string{key}, l.limitPerSec, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate send rate: %w", err)
	}
	return ok == 1, nil
}

// Wait blocks until a send slot in scope is free or ctx is done. The poll
// interval grows by backoffStep up to backoffMax.
func (l *SendRateLimiter) Wait(ctx context.Context, scope string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	delay := backoffStep
	for {
		ok, err := l.Allow(ctx, scope)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := l.sleep(ctx, delay); err != nil {
			return err
		}
		delay = min(delay+backoffStep, backoffMax)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
