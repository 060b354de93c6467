/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"math"
	"time"
)

// Rate describes the frequency of requests.
type Rate struct {
	Count    int
	Duration time.Duration
}

// Decision is the outcome of recording a single request.
type Decision struct {
	Allow bool

	// Limit is the max number of requests in a window.
	Limit int

	// Remaining is never negative.
	Remaining int

	// ResetAt is the moment when the current window of the client ends.
	ResetAt time.Time

	// RetryAfter is set for rejected requests only.
	RetryAfter time.Duration

	// Delay is how long an allowed request should be held before it is served.
	Delay time.Duration
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// ResetUnix returns ResetAt as unix seconds rounded up.
func (d Decision) ResetUnix() int64 {
	return int64(math.Ceil(float64(d.ResetAt.UnixMilli()) / 1000))
}

// Limiter records a request of the client and decides whether it may proceed.
type Limiter interface {
	CheckAndRecord(ctx context.Context, key string, now time.Time) (Decision, error)
}
