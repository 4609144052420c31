package ratelimit

import "context"

// RateLimiter controls outbound send throughput per delivery channel.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
