package ratelimit

import (
	"context"
	"errors"
	"testing"
)

func TestUnlimited(t *testing.T) {
	t.Parallel()

	var l RateLimiter = Unlimited{}
	for i := 0; i < 1000; i++ {
		allowed, err := l.Allow(context.Background(), "email")
		if err != nil || !allowed {
			t.Fatalf("Allow() = %v, %v", allowed, err)
		}
	}

	if err := l.Wait(context.Background(), "email"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, "email"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait(canceled) error = %v, want context.Canceled", err)
	}
}
