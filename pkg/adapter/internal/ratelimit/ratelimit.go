// Package ratelimit throttles outbound calls to extraction providers so a
// burst of claimed chunks can't overrun a provider's own rate limit.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket limiter configured in requests per second.
type Limiter struct {
	limiter *rate.Limiter
}

// New builds a Limiter allowing rps requests per second with the given
// burst. A non-positive rps disables throttling.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, burst)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
