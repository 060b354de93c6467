/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Default parameter values for RateLimitingRoundTripper.
const (
	DefaultRateLimitingBurst       = 1
	DefaultRateLimitingWaitTimeout = 15 * time.Second
)

// RateLimitingRoundTripperAdaptation makes the limiter follow the limit announced by the remote API.
// Resend, for example, returns it in the "Ratelimit-Limit" response header.
type RateLimitingRoundTripperAdaptation struct {
	ResponseHeaderName string
	// SlackPercent is the share of the announced limit that is left unused.
	SlackPercent int
}

// RateLimitingRoundTripperOpts represents options for RateLimitingRoundTripper.
type RateLimitingRoundTripperOpts struct {
	Burst       int
	WaitTimeout time.Duration
	Adaptation  RateLimitingRoundTripperAdaptation
}

// RateLimitingRoundTripper keeps outgoing requests under the given number per second.
// Requests over the limit wait for their turn but not longer than WaitTimeout.
type RateLimitingRoundTripper struct {
	Delegate    http.RoundTripper
	RateLimit   int
	Burst       int
	WaitTimeout time.Duration
	Adaptation  RateLimitingRoundTripperAdaptation

	limiter *rate.Limiter
}

// NewRateLimitingRoundTripper creates a new RateLimitingRoundTripper with the given number of requests per second.
func NewRateLimitingRoundTripper(delegate http.RoundTripper, rateLimit int) (*RateLimitingRoundTripper, error) {
	return NewRateLimitingRoundTripperWithOpts(delegate, rateLimit, RateLimitingRoundTripperOpts{})
}

// NewRateLimitingRoundTripperWithOpts creates a new RateLimitingRoundTripper with options.
// Zero options are replaced with defaults.
func NewRateLimitingRoundTripperWithOpts(
	delegate http.RoundTripper, rateLimit int, opts RateLimitingRoundTripperOpts,
) (*RateLimitingRoundTripper, error) {
	if rateLimit <= 0 {
		return nil, fmt.Errorf("rate limit should be positive, got %d", rateLimit)
	}
	switch {
	case opts.Burst < 0:
		return nil, fmt.Errorf("burst should not be negative, got %d", opts.Burst)
	case opts.Burst == 0:
		opts.Burst = DefaultRateLimitingBurst
	}
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = DefaultRateLimitingWaitTimeout
	}
	if opts.Adaptation.SlackPercent < 0 || opts.Adaptation.SlackPercent > 100 {
		return nil, fmt.Errorf("slack percent should be in range [0..100], got %d", opts.Adaptation.SlackPercent)
	}
	return &RateLimitingRoundTripper{
		Delegate:    delegate,
		RateLimit:   rateLimit,
		Burst:       opts.Burst,
		WaitTimeout: opts.WaitTimeout,
		Adaptation:  opts.Adaptation,
		limiter:     rate.NewLimiter(rate.Limit(rateLimit), opts.Burst),
	}, nil
}

// CurrentLimit returns the number of requests per second the round tripper currently allows.
func (rt *RateLimitingRoundTripper) CurrentLimit() int {
	return int(rt.limiter.Limit())
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *RateLimitingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	waitCtx, cancel := context.WithTimeout(r.Context(), rt.WaitTimeout)
	err := rt.limiter.Wait(waitCtx)
	cancel()
	if err != nil {
		if r.Body != nil {
			_ = r.Body.Close() // Per RoundTripper contract.
		}
		if errors.Is(r.Context().Err(), context.Canceled) {
			return nil, r.Context().Err()
		}
		return nil, &RateLimitingWaitError{Inner: err}
	}

	resp, err := rt.Delegate.RoundTrip(r)
	if err != nil {
		return resp, err
	}
	if rt.Adaptation.ResponseHeaderName != "" {
		rt.adapt(resp.Header.Get(rt.Adaptation.ResponseHeaderName))
	}
	return resp, nil
}

// adapt lowers the limit to the announced one (minus slack) and restores
// the configured limit when the header disappears or announces more.
func (rt *RateLimitingRoundTripper) adapt(headerValue string) {
	newLimit := rt.RateLimit
	if announced, err := strconv.Atoi(headerValue); err == nil && announced >= 0 {
		announced = announced * (100 - rt.Adaptation.SlackPercent) / 100
		newLimit = min(max(announced, 1), rt.RateLimit) // Never stop sending completely.
	}
	if rt.limiter.Limit() != rate.Limit(newLimit) {
		rt.limiter.SetLimit(rate.Limit(newLimit))
	}
}

// RateLimitingWaitError is returned when a request could not get its turn within the wait timeout.
type RateLimitingWaitError struct {
	Inner error
}

func (e *RateLimitingWaitError) Error() string {
	return fmt.Sprintf("wait due to client side rate limiting: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *RateLimitingWaitError) Unwrap() error {
	return e.Inner
}
