package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestSendRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)

	now := time.Unix(1_700_000_000, 0)
	limiter := newSendRateLimiter(rdb, 2, func() time.Time { return now }, sleepWithContext)

	for i, want := range []bool{true, true, false} {
		allowed, err := limiter.Allow(context.Background(), "email")
		if err != nil {
			t.Fatalf("Allow() #%d error = %v", i+1, err)
		}
		if allowed != want {
			t.Fatalf("Allow() #%d = %v, want %v", i+1, allowed, want)
		}
	}

	now = now.Add(time.Second)
	allowed, err := limiter.Allow(context.Background(), "email")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("next one-second window should allow a send")
	}
}

func TestSendRateLimiterScopesAreIndependent(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)

	now := time.Unix(1_700_000_100, 0)
	limiter := newSendRateLimiter(rdb, 1, func() time.Time { return now }, sleepWithContext)

	tests := []struct {
		scope string
		want  bool
	}{
		{scope: "http", want: true},
		{scope: "ses", want: true},
		{scope: " HTTP ", want: false},
	}
	for _, tt := range tests {
		allowed, err := limiter.Allow(context.Background(), tt.scope)
		if err != nil {
			t.Fatalf("Allow(%q) error = %v", tt.scope, err)
		}
		if allowed != tt.want {
			t.Fatalf("Allow(%q) = %v, want %v", tt.scope, allowed, tt.want)
		}
	}

	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty scope")
	}
}

func TestSendRateLimiterDefaultLimit(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)
	limiter := newSendRateLimiter(rdb, 0, nil, nil)
	if limiter.Limit() != defaultSendsPerSec {
		t.Fatalf("Limit() = %d, want %d", limiter.Limit(), defaultSendsPerSec)
	}
}

func TestSendRateLimiterWait(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)

	now := time.Unix(1_700_000_200, 0)
	var delays []time.Duration
	limiter := newSendRateLimiter(
		rdb,
		1,
		func() time.Time { return now },
		func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			if len(delays) == 3 {
				now = now.Add(time.Second)
			}
			return nil
		},
	)

	if allowed, err := limiter.Allow(context.Background(), "email"); err != nil || !allowed {
		t.Fatalf("Allow() = %v, %v", allowed, err)
	}
	if err := limiter.Wait(context.Background(), "email"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("sleep calls = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("sleep #%d = %v, want %v", i+1, delays[i], want[i])
		}
	}
}

func TestSendRateLimiterWaitContextDeadline(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)

	now := time.Unix(1_700_000_300, 0)
	limiter := newSendRateLimiter(rdb, 1, func() time.Time { return now }, sleepWithContext)

	if allowed, err := limiter.Allow(context.Background(), "email"); err != nil || !allowed {
		t.Fatalf("Allow() = %v, %v", allowed, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "email"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func newTestRedisClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return rdb, mr
}
