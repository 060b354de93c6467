/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func mustNewRegistry(t *testing.T, params FixedWindowParams) *FixedWindowRegistry {
	t.Helper()
	reg, err := NewFixedWindowRegistry(params)
	require.NoError(t, err)
	return reg
}

func TestNewFixedWindowRegistry_InvalidParams(t *testing.T) {
	_, err := NewFixedWindowRegistry(FixedWindowParams{Max: 0, Window: time.Minute})
	require.EqualError(t, err, "max requests should be positive, got 0")
	_, err = NewFixedWindowRegistry(FixedWindowParams{Max: 1})
	require.EqualError(t, err, "window should be positive, got 0s")
	_, err = NewFixedWindowRegistry(FixedWindowParams{Max: 1, Window: time.Second, DelayAfter: -1})
	require.EqualError(t, err, "delay threshold should not be negative, got -1")

	reg := mustNewRegistry(t, FixedWindowParams{Max: 1, Window: time.Second})
	require.Equal(t, DefaultMaxDelay, reg.Params().MaxDelay)
}

func TestFixedWindowRegistry_Record(t *testing.T) {
	t.Run("remaining decreases and requests above max are denied", func(t *testing.T) {
		const maxRequests = 100
		reg := mustNewRegistry(t, FixedWindowParams{Max: maxRequests, Window: time.Minute})

		for n := 1; n <= maxRequests; n++ {
			d := reg.Record("1.2.3.4", testNow.Add(time.Duration(n)*100*time.Millisecond))
			require.True(t, d.Allow, "request #%d", n)
			require.Equal(t, maxRequests-n, d.Remaining, "request #%d", n)
			require.Equal(t, maxRequests, d.Limit)
			require.Equal(t, testNow.Add(100*time.Millisecond+time.Minute), d.ResetAt)
			require.Zero(t, d.RetryAfter)
		}

		d := reg.Record("1.2.3.4", testNow.Add(20*time.Second))
		require.False(t, d.Allow)
		require.Equal(t, 0, d.Remaining)
		require.Equal(t, 40*time.Second+100*time.Millisecond, d.RetryAfter)
		require.Equal(t, 41, d.RetryAfterSeconds())

		// Denied requests keep counting, remaining never goes negative.
		d = reg.Record("1.2.3.4", testNow.Add(21*time.Second))
		require.False(t, d.Allow)
		require.Equal(t, 0, d.Remaining)
	})

	t.Run("new window starts only after reset time is passed", func(t *testing.T) {
		reg := mustNewRegistry(t, FixedWindowParams{Max: 2, Window: time.Minute})
		require.True(t, reg.Record("c", testNow).Allow)
		require.True(t, reg.Record("c", testNow).Allow)
		require.False(t, reg.Record("c", testNow.Add(30*time.Second)).Allow)

		// At exactly the reset moment the window is still active.
		require.False(t, reg.Record("c", testNow.Add(time.Minute)).Allow)

		d := reg.Record("c", testNow.Add(time.Minute+time.Millisecond))
		require.True(t, d.Allow)
		require.Equal(t, 1, d.Remaining)
		require.Equal(t, testNow.Add(2*time.Minute+time.Millisecond), d.ResetAt)
	})

	t.Run("clients are counted independently", func(t *testing.T) {
		reg := mustNewRegistry(t, FixedWindowParams{Max: 1, Window: time.Minute})
		require.True(t, reg.Record("a", testNow).Allow)
		require.False(t, reg.Record("a", testNow).Allow)
		require.True(t, reg.Record("b", testNow).Allow)
		require.Equal(t, 2, reg.Len())
	})

	t.Run("requests above delay threshold are delayed with a cap", func(t *testing.T) {
		reg := mustNewRegistry(t, FixedWindowParams{
			Max: 100, Window: time.Minute, DelayAfter: 80, TimeWait: time.Second,
		})
		var delays []time.Duration
		for n := 1; n <= 100; n++ {
			d := reg.Record("k", testNow)
			require.True(t, d.Allow)
			delays = append(delays, d.Delay)
		}
		for n := 1; n <= 80; n++ {
			require.Zero(t, delays[n-1], "request #%d", n)
		}
		require.Equal(t, time.Second, delays[80])
		require.Equal(t, 4*time.Second, delays[83])
		require.Equal(t, 5*time.Second, delays[84])
		require.Equal(t, 5*time.Second, delays[99])

		d := reg.Record("k", testNow)
		require.False(t, d.Allow)
		require.Zero(t, d.Delay)
	})

	t.Run("zero delay threshold disables delaying", func(t *testing.T) {
		reg := mustNewRegistry(t, FixedWindowParams{Max: 3, Window: time.Minute, TimeWait: time.Second})
		for i := 0; i < 3; i++ {
			require.Zero(t, reg.Record("k", testNow).Delay)
		}
	})
}

func TestFixedWindowRegistry_Sweep(t *testing.T) {
	reg := mustNewRegistry(t, FixedWindowParams{Max: 10, Window: time.Minute})
	reg.Record("old", testNow)
	reg.Record("fresh", testNow.Add(50*time.Second))
	require.Equal(t, 2, reg.Len())

	require.Equal(t, 0, reg.Sweep(testNow.Add(time.Minute)))
	require.Equal(t, 2, reg.Len())

	require.Equal(t, 1, reg.Sweep(testNow.Add(time.Minute+time.Second)))
	require.Equal(t, 1, reg.Len())

	// The remaining entry is still inside its window and keeps its count.
	d := reg.Record("fresh", testNow.Add(time.Minute+time.Second))
	require.Equal(t, 8, d.Remaining)

	reg.Reset()
	require.Equal(t, 0, reg.Len())
}

func TestFixedWindowRegistry_Concurrent(t *testing.T) {
	const workers, perWorker, maxRequests = 8, 50, 300
	reg := mustNewRegistry(t, FixedWindowParams{Max: maxRequests, Window: time.Hour})

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				d, err := reg.CheckAndRecord(context.Background(), "shared", testNow)
				require.NoError(t, err)
				if d.Allow {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
				reg.Record(fmt.Sprintf("own-%d", i), testNow)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, maxRequests, allowed)
	require.Equal(t, workers+1, reg.Len())
}

func TestDecision_ResetUnix(t *testing.T) {
	d := Decision{ResetAt: time.UnixMilli(1_700_000_000_001)}
	require.Equal(t, int64(1_700_000_001), d.ResetUnix())
	d = Decision{ResetAt: time.UnixMilli(1_700_000_000_000)}
	require.Equal(t, int64(1_700_000_000), d.ResetUnix())
}
