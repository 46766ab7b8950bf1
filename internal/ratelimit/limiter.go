package ratelimit

import "context"

// RateLimiter throttles outbound sends per scope. A scope is usually the
// email provider name, so every worker sharing a provider shares a budget.
type RateLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
	Wait(ctx context.Context, scope string) error
}

// Unlimited never throttles. It is used when no send rate is configured.
type Unlimited struct{}

var _ RateLimiter = Unlimited{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

func (Unlimited) Wait(ctx context.Context, _ string) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
