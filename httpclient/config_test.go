/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blackeyesartisan/shopkit/config"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig("http")
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(""), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, DefaultTimeout, cfg.Timeout)
		require.False(t, cfg.RateLimits.Enabled)
		require.True(t, cfg.Log.Enabled)
		require.Equal(t, LoggingModeFailed, cfg.Log.Mode)
		require.True(t, cfg.Metrics.Enabled)
	})

	t.Run("rate limits", func(t *testing.T) {
		data := `
http:
  timeout: 5s
  rateLimits:
    enabled: true
    limit: 2
    burst: 2
    adaptation:
      responseHeader: Ratelimit-Limit
      slackPercent: 10
  log:
    mode: all
    slowRequestThreshold: 500ms
`
		cfg := NewConfig("http")
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(data), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, 5*time.Second, cfg.Timeout)
		require.Equal(t, RateLimitConfig{
			Enabled:     true,
			Limit:       2,
			Burst:       2,
			WaitTimeout: DefaultRateLimitingWaitTimeout,
			Adaptation:  RateLimitingRoundTripperAdaptation{ResponseHeaderName: "Ratelimit-Limit", SlackPercent: 10},
		}, cfg.RateLimits)
		require.Equal(t, LoggingModeAll, cfg.Log.Mode)
		require.Equal(t, 500*time.Millisecond, cfg.Log.SlowRequestThreshold)
	})

	t.Run("invalid limit", func(t *testing.T) {
		data := "http:\n  rateLimits:\n    enabled: true\n    limit: 0\n"
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(data), config.DataTypeYAML, NewConfig("http"))
		require.EqualError(t, err, "http.rateLimits.limit: should be positive")
	})
}
