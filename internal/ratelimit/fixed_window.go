/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultMaxDelay caps the delay applied to requests above the DelayAfter threshold.
const DefaultMaxDelay = 5 * time.Second

// FixedWindowParams configures FixedWindowRegistry.
type FixedWindowParams struct {
	// Max is the number of requests allowed per client in one window.
	Max int
	// Window is the length of a window.
	Window time.Duration

	// DelayAfter enables delaying of requests whose number in the window exceeds it (0 disables delaying).
	DelayAfter int
	// TimeWait is the delay added per each request above DelayAfter.
	TimeWait time.Duration
	// MaxDelay limits the delay. DefaultMaxDelay is used when it is 0.
	MaxDelay time.Duration
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// FixedWindowRegistry holds one counter per client key.
// It's safe for concurrent use.
type FixedWindowRegistry struct {
	params  FixedWindowParams
	mu      sync.Mutex
	entries map[string]*windowEntry
}

var _ Limiter = (*FixedWindowRegistry)(nil)

// NewFixedWindowRegistry creates an empty registry.
func NewFixedWindowRegistry(params FixedWindowParams) (*FixedWindowRegistry, error) {
	if params.Max <= 0 {
		return nil, fmt.Errorf("max requests should be positive, got %d", params.Max)
	}
	if params.Window <= 0 {
		return nil, fmt.Errorf("window should be positive, got %s", params.Window)
	}
	if params.DelayAfter < 0 {
		return nil, fmt.Errorf("delay threshold should not be negative, got %d", params.DelayAfter)
	}
	if params.MaxDelay == 0 {
		params.MaxDelay = DefaultMaxDelay
	}
	return &FixedWindowRegistry{params: params, entries: make(map[string]*windowEntry)}, nil
}

// Params returns the effective parameters of the registry.
func (r *FixedWindowRegistry) Params() FixedWindowParams {
	return r.params
}

// CheckAndRecord implements Limiter. It never returns an error.
func (r *FixedWindowRegistry) CheckAndRecord(_ context.Context, key string, now time.Time) (Decision, error) {
	return r.Record(key, now), nil
}

// Record counts a request of the client made at the given moment.
// The first request of a client, or the first one after its window elapsed, starts a new window.
func (r *FixedWindowRegistry) Record(key string, now time.Time) Decision {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &windowEntry{count: 1, resetAt: now.Add(r.params.Window)}
		r.entries[key] = e
	} else {
		e.count++
	}
	count, resetAt := e.count, e.resetAt
	r.mu.Unlock()

	d := Decision{
		Allow:     count <= r.params.Max,
		Limit:     r.params.Max,
		Remaining: max(0, r.params.Max-count),
		ResetAt:   resetAt,
	}
	if !d.Allow {
		d.RetryAfter = resetAt.Sub(now)
		return d
	}
	if r.params.DelayAfter > 0 && count > r.params.DelayAfter {
		d.Delay = min(r.params.TimeWait*time.Duration(count-r.params.DelayAfter), r.params.MaxDelay)
	}
	return d
}

// Sweep removes all entries whose window ended before now and returns how many were removed.
func (r *FixedWindowRegistry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, e := range r.entries {
		if e.resetAt.Before(now) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (r *FixedWindowRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reset drops all entries.
func (r *FixedWindowRegistry) Reset() {
	r.mu.Lock()
	r.entries = make(map[string]*windowEntry)
	r.mu.Unlock()
}
