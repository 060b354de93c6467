/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package retry provides backoff policies for operations that talk to remote providers.
package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy defines backoff strategy.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// The PolicyFunc type is an adapter to allow the use of ordinary functions as retry.Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements retry.Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// ExponentialBackoffPolicy repeats up to maxRetries times.
// The n-th retry (counting from 1) waits exactly initialInterval * multiplier^(n-1), without jitter.
type ExponentialBackoffPolicy struct {
	initialInterval time.Duration
	multiplier      float64
	maxRetries      int
}

// NewExponentialBackoffPolicy returns a policy with the given initial interval, growth multiplier and max retry count.
// Zero maxRetries means no limit.
func NewExponentialBackoffPolicy(initialInterval time.Duration, multiplier float64, maxRetries int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{initialInterval, multiplier, maxRetries}
}

// NewDoublingBackoffPolicy returns a policy where every next delay is twice the previous one.
func NewDoublingBackoffPolicy(initialInterval time.Duration, maxRetries int) ExponentialBackoffPolicy {
	return NewExponentialBackoffPolicy(initialInterval, 2, maxRetries)
}

// NewBackOff implements retry.Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	eb.Multiplier = p.multiplier
	eb.RandomizationFactor = 0
	eb.MaxInterval = time.Duration(math.MaxInt64)
	eb.MaxElapsedTime = 0
	var bf backoff.BackOff = eb
	if p.maxRetries > 0 {
		bf = backoff.WithMaxRetries(eb, uint64(p.maxRetries))
	}
	bf.Reset()
	return bf
}

// Delays returns the sequence of delays the policy produces, stopping after limit items
// or when the policy gives up.
func Delays(p Policy, limit int) []time.Duration {
	bf := p.NewBackOff()
	var res []time.Duration
	for i := 0; i < limit; i++ {
		d := bf.NextBackOff()
		if d == backoff.Stop {
			break
		}
		res = append(res, d)
	}
	return res
}
