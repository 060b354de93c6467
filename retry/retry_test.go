/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package retry

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

func TestDoublingBackoffPolicy(t *testing.T) {
	t.Run("delays double without jitter", func(t *testing.T) {
		p := NewDoublingBackoffPolicy(time.Second, 4)
		require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, Delays(p, 10))
	})

	t.Run("every NewBackOff starts from the initial interval", func(t *testing.T) {
		p := NewDoublingBackoffPolicy(100*time.Millisecond, 2)
		require.Equal(t, Delays(p, 5), Delays(p, 5))
		require.Len(t, Delays(p, 5), 2)
	})

	t.Run("unlimited", func(t *testing.T) {
		p := NewDoublingBackoffPolicy(time.Millisecond, 0)
		require.Len(t, Delays(p, 20), 20)
	})
}

func TestExponentialBackoffPolicy_Multiplier(t *testing.T) {
	p := NewExponentialBackoffPolicy(10*time.Millisecond, 3, 3)
	require.Equal(t, []time.Duration{10 * time.Millisecond, 30 * time.Millisecond, 90 * time.Millisecond}, Delays(p, 3))
}

func TestPolicyFunc(t *testing.T) {
	p := PolicyFunc(func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2) })
	require.Equal(t, []time.Duration{0, 0}, Delays(p, 5))
}
