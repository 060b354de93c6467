/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit implements per-client request counting.
//
// FixedWindowRegistry is the default algorithm: every client key owns a counter that
// resets entirely when its window elapses, and a periodic sweep drops expired counters.
// LeakyBucketLimiter is a GCRA-based alternative that produces the same Decision shape.
//
// Both keep their state in process memory, so limits are enforced per instance only.
package ratelimit
