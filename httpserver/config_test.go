/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blackeyesartisan/shopkit/config"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(""), config.DataTypeYAML, cfg))
		require.Equal(t, DefaultAddress, cfg.Address)
		require.Equal(t, EnvironmentDevelopment, cfg.Environment)
		require.False(t, cfg.IsProduction())
		require.Zero(t, cfg.CacheMaxAge())
		require.Equal(t, config.ByteSize(12*1024*1024), cfg.Limits.MaxBodySize)
		require.Equal(t, TimeoutsConfig{
			Write:      DefaultTimeoutsWrite,
			Read:       DefaultTimeoutsRead,
			ReadHeader: DefaultTimeoutsReadHeader,
			Idle:       DefaultTimeoutsIdle,
			Shutdown:   DefaultTimeoutsShutdown,
		}, cfg.Timeouts)
		require.Equal(t, time.Second, cfg.Log.SlowRequestThreshold)
		require.Empty(t, cfg.UpstreamURL)
	})

	t.Run("yaml config", func(t *testing.T) {
		cfgData := `
server:
  address: "127.0.0.1:9000"
  environment: production
  version: 2.0.1
  upstreamURL: http://localhost:9001
  timeouts:
    write: 1h
    shutdown: 30s
  limits:
    maxBodySize: 1M
  log:
    requestStart: true
    excludedEndpoints: [/health, /metrics]
    slowRequestThreshold: 2s
`
		cfg := NewConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg))
		require.Equal(t, "127.0.0.1:9000", cfg.Address)
		require.True(t, cfg.IsProduction())
		require.Equal(t, ProductionCacheMaxAge, cfg.CacheMaxAge())
		require.Equal(t, "2.0.1", cfg.Version)
		require.Equal(t, "http://localhost:9001", cfg.UpstreamURL)
		require.Equal(t, time.Hour, cfg.Timeouts.Write)
		require.Equal(t, 30*time.Second, cfg.Timeouts.Shutdown)
		require.Equal(t, DefaultTimeoutsRead, cfg.Timeouts.Read)
		require.Equal(t, config.ByteSize(1024*1024), cfg.Limits.MaxBodySize)
		require.Equal(t, LogConfig{
			RequestStart:         true,
			ExcludedEndpoints:    []string{"/health", "/metrics"},
			SlowRequestThreshold: 2 * time.Second,
		}, cfg.Log)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			cfgData string
			wantErr string
		}{
			{
				name:    "unknown environment",
				cfgData: "server:\n  environment: staging",
				wantErr: `server.environment: unknown value "staging", should be one of [development production]`,
			},
			{
				name:    "relative upstream",
				cfgData: "server:\n  upstreamURL: /api",
				wantErr: "server.upstreamURL: should be an absolute URL",
			},
			{
				name:    "negative timeout",
				cfgData: "server:\n  timeouts:\n    idle: -1s",
				wantErr: "server.timeouts.idle: should not be negative",
			},
			{
				name:    "tls without cert",
				cfgData: "server:\n  tls:\n    enabled: true",
				wantErr: "server.tls.enabled: cert and key should be set when TLS is enabled",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, NewConfig())
				require.EqualError(t, err, tt.wantErr)
			})
		}
	})
}

func TestCacheConfig(t *testing.T) {
	cfg := NewCacheConfig()
	require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(""), config.DataTypeYAML, cfg))
	require.False(t, cfg.Enabled())

	cfg = NewCacheConfig()
	require.NoError(t, config.NewDefaultLoader("").LoadFromReader(
		bytes.NewBufferString("cache:\n  redisURL: redis://localhost:6379/1"), config.DataTypeYAML, cfg))
	require.True(t, cfg.Enabled())

	err := config.NewDefaultLoader("").LoadFromReader(
		bytes.NewBufferString("cache:\n  redisURL: http://localhost"), config.DataTypeYAML, NewCacheConfig())
	require.ErrorContains(t, err, "cache.redisURL: ")
}
