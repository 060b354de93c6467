/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
)

// LeakyBucketLimiter implements GCRA (Generic Cell Rate Algorithm). It's a leaky bucket variant algorithm.
// More details and good explanation of this alg is provided here: https://brandur.org/rate-limiting#gcra.
// Unlike FixedWindowRegistry, it spreads requests evenly and keeps at most maxKeys clients (LRU).
type LeakyBucketLimiter struct {
	limiter *throttled.GCRARateLimiterCtx
}

var _ Limiter = (*LeakyBucketLimiter)(nil)

// NewLeakyBucketLimiter creates a new leaky bucket rate limiter.
func NewLeakyBucketLimiter(maxRate Rate, maxBurst, maxKeys int) (*LeakyBucketLimiter, error) {
	gcraStore, err := memstore.NewCtx(maxKeys)
	if err != nil {
		return nil, fmt.Errorf("new in-memory store: %w", err)
	}
	quota := throttled.RateQuota{
		MaxRate:  throttled.PerDuration(maxRate.Count, maxRate.Duration),
		MaxBurst: maxBurst,
	}
	gcraLimiter, err := throttled.NewGCRARateLimiterCtx(gcraStore, quota)
	if err != nil {
		return nil, fmt.Errorf("new GCRA rate limiter: %w", err)
	}
	return &LeakyBucketLimiter{gcraLimiter}, nil
}

// CheckAndRecord implements Limiter.
func (l *LeakyBucketLimiter) CheckAndRecord(ctx context.Context, key string, now time.Time) (Decision, error) {
	limited, res, err := l.limiter.RateLimitCtx(ctx, key, 1)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{
		Allow:     !limited,
		Limit:     res.Limit,
		Remaining: max(0, res.Remaining),
		ResetAt:   now.Add(res.ResetAfter),
	}
	if limited {
		d.RetryAfter = res.RetryAfter
	}
	return d, nil
}
