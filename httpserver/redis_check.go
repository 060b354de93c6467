/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/blackeyesartisan/shopkit/config"
)

// CacheHealthCheckName is the name under which the Redis check is reported.
const CacheHealthCheckName = "cache"

const cfgKeyCacheRedisURL = "redisURL"

// CacheConfig represents the configuration of the Redis instance used by the commerce API as a cache.
// The edge only checks its reachability.
type CacheConfig struct {
	RedisURL string
}

var _ config.Config = (*CacheConfig)(nil)
var _ config.KeyPrefixProvider = (*CacheConfig)(nil)

// NewCacheConfig creates a new instance of the CacheConfig.
func NewCacheConfig() *CacheConfig {
	return &CacheConfig{}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *CacheConfig) KeyPrefix() string {
	return "cache"
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *CacheConfig) SetProviderDefaults(_ config.DataProvider) {}

// Set sets cache configuration values from config.DataProvider.
func (c *CacheConfig) Set(dp config.DataProvider) error {
	var err error
	if c.RedisURL, err = dp.GetString(cfgKeyCacheRedisURL); err != nil {
		return err
	}
	if c.RedisURL != "" {
		if _, err = redis.ParseURL(c.RedisURL); err != nil {
			return dp.WrapKeyErr(cfgKeyCacheRedisURL, err)
		}
	}
	return nil
}

// Enabled reports whether the Redis URL is configured.
func (c *CacheConfig) Enabled() bool {
	return c.RedisURL != ""
}

// NewRedisClient creates a Redis client from the configured URL.
func NewRedisClient(cfg *CacheConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewRedisPingCheck returns a non-critical health check that pings Redis.
func NewRedisPingCheck(client redis.UniversalClient) HealthCheck {
	return HealthCheck{
		Name:     CacheHealthCheckName,
		Critical: false,
		Check: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			return nil
		},
	}
}
