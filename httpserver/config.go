/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"net/url"
	"time"

	"github.com/blackeyesartisan/shopkit/config"
)

const cfgDefaultKeyPrefix = "server"

const (
	cfgKeyServerAddress                 = "address"
	cfgKeyServerUnixSocketPath          = "unixSocketPath"
	cfgKeyServerEnvironment             = "environment"
	cfgKeyServerVersion                 = "version"
	cfgKeyServerUpstreamURL             = "upstreamURL"
	cfgKeyServerTLSEnabled              = "tls.enabled"
	cfgKeyServerTLSCert                 = "tls.cert"
	cfgKeyServerTLSKey                  = "tls.key"
	cfgKeyServerTimeoutsWrite           = "timeouts.write"
	cfgKeyServerTimeoutsRead            = "timeouts.read"
	cfgKeyServerTimeoutsReadHeader      = "timeouts.readHeader"
	cfgKeyServerTimeoutsIdle            = "timeouts.idle"
	cfgKeyServerTimeoutsShutdown        = "timeouts.shutdown"
	cfgKeyServerLimitsMaxBodySize       = "limits.maxBodySize"
	cfgKeyServerLogRequestStart         = "log.requestStart"
	cfgKeyServerLogExcludedEndpoints    = "log.excludedEndpoints"
	cfgKeyServerLogSlowRequestThreshold = "log.slowRequestThreshold"
)

// Environment is the deployment environment of the server.
type Environment string

// Known environments.
const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentProduction  Environment = "production"
)

// Default values.
const (
	DefaultAddress              = ":8080"
	DefaultTimeoutsWrite        = time.Minute
	DefaultTimeoutsRead         = 15 * time.Second
	DefaultTimeoutsReadHeader   = 10 * time.Second
	DefaultTimeoutsIdle         = time.Minute
	DefaultTimeoutsShutdown     = 5 * time.Second
	DefaultMaxBodySize          = "12M"
	DefaultSlowRequestThreshold = time.Second
	DefaultVersion              = "1.0.0"

	ProductionCacheMaxAge = 60 * time.Second
)

// Config represents a set of configuration parameters for HTTPServer.
type Config struct {
	Address        string
	UnixSocketPath string
	Environment    Environment
	Version        string
	// UpstreamURL is the commerce API that /store/* and /admin/* requests are proxied to.
	UpstreamURL string
	TLS         TLSConfig
	Timeouts    TimeoutsConfig
	Limits      LimitsConfig
	Log         LogConfig

	keyPrefix string
}

// TLSConfig contains configuration parameters needed to initialize(or not) secure server.
type TLSConfig struct {
	Enabled     bool
	Certificate string
	Key         string
}

// TimeoutsConfig represents a set of configuration parameters for HTTPServer relating to timeouts.
type TimeoutsConfig struct {
	Write      time.Duration
	Read       time.Duration
	ReadHeader time.Duration
	Idle       time.Duration
	Shutdown   time.Duration
}

// LimitsConfig represents a set of configuration parameters for HTTPServer relating to limits.
type LimitsConfig struct {
	// MaxBodySize is the maximum size of the request body for /admin/* routes.
	MaxBodySize config.ByteSize
}

// LogConfig represents a set of configuration parameters for HTTPServer relating to logging.
type LogConfig struct {
	RequestStart         bool
	ExcludedEndpoints    []string
	SlowRequestThreshold time.Duration
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
}

// NewConfigWithKeyPrefix creates a new instance of the Config with a key prefix.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for HTTPServer in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyServerAddress, DefaultAddress)
	dp.SetDefault(cfgKeyServerEnvironment, string(EnvironmentDevelopment))
	dp.SetDefault(cfgKeyServerVersion, DefaultVersion)
	dp.SetDefault(cfgKeyServerTimeoutsWrite, DefaultTimeoutsWrite)
	dp.SetDefault(cfgKeyServerTimeoutsRead, DefaultTimeoutsRead)
	dp.SetDefault(cfgKeyServerTimeoutsReadHeader, DefaultTimeoutsReadHeader)
	dp.SetDefault(cfgKeyServerTimeoutsIdle, DefaultTimeoutsIdle)
	dp.SetDefault(cfgKeyServerTimeoutsShutdown, DefaultTimeoutsShutdown)
	dp.SetDefault(cfgKeyServerLimitsMaxBodySize, DefaultMaxBodySize)
	dp.SetDefault(cfgKeyServerLogSlowRequestThreshold, DefaultSlowRequestThreshold)
}

// Set sets HTTPServer configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Address, err = dp.GetString(cfgKeyServerAddress); err != nil {
		return err
	}
	if c.UnixSocketPath, err = dp.GetString(cfgKeyServerUnixSocketPath); err != nil {
		return err
	}
	env, err := dp.GetStringFromSet(cfgKeyServerEnvironment,
		[]string{string(EnvironmentDevelopment), string(EnvironmentProduction)}, true)
	if err != nil {
		return err
	}
	c.Environment = Environment(env)
	if c.Version, err = dp.GetString(cfgKeyServerVersion); err != nil {
		return err
	}
	if c.UpstreamURL, err = dp.GetString(cfgKeyServerUpstreamURL); err != nil {
		return err
	}
	if c.UpstreamURL != "" {
		u, parseErr := url.Parse(c.UpstreamURL)
		if parseErr != nil {
			return dp.WrapKeyErr(cfgKeyServerUpstreamURL, parseErr)
		}
		if u.Scheme == "" || u.Host == "" {
			return dp.WrapKeyErr(cfgKeyServerUpstreamURL, fmt.Errorf("should be an absolute URL"))
		}
	}

	if err = c.setTLS(dp); err != nil {
		return err
	}
	if err = c.setTimeouts(dp); err != nil {
		return err
	}

	maxBodySize, err := dp.GetSizeInBytes(cfgKeyServerLimitsMaxBodySize)
	if err != nil {
		return err
	}
	c.Limits.MaxBodySize = config.ByteSize(maxBodySize)

	if c.Log.RequestStart, err = dp.GetBool(cfgKeyServerLogRequestStart); err != nil {
		return err
	}
	if c.Log.ExcludedEndpoints, err = dp.GetStringSlice(cfgKeyServerLogExcludedEndpoints); err != nil {
		return err
	}
	if c.Log.SlowRequestThreshold, err = dp.GetDuration(cfgKeyServerLogSlowRequestThreshold); err != nil {
		return err
	}
	return nil
}

func (c *Config) setTLS(dp config.DataProvider) error {
	var err error
	if c.TLS.Enabled, err = dp.GetBool(cfgKeyServerTLSEnabled); err != nil {
		return err
	}
	if c.TLS.Certificate, err = dp.GetString(cfgKeyServerTLSCert); err != nil {
		return err
	}
	if c.TLS.Key, err = dp.GetString(cfgKeyServerTLSKey); err != nil {
		return err
	}
	if c.TLS.Enabled && (c.TLS.Certificate == "" || c.TLS.Key == "") {
		return dp.WrapKeyErr(cfgKeyServerTLSEnabled, fmt.Errorf("cert and key should be set when TLS is enabled"))
	}
	return nil
}

func (c *Config) setTimeouts(dp config.DataProvider) error {
	for _, item := range []struct {
		key string
		dst *time.Duration
	}{
		{cfgKeyServerTimeoutsWrite, &c.Timeouts.Write},
		{cfgKeyServerTimeoutsRead, &c.Timeouts.Read},
		{cfgKeyServerTimeoutsReadHeader, &c.Timeouts.ReadHeader},
		{cfgKeyServerTimeoutsIdle, &c.Timeouts.Idle},
		{cfgKeyServerTimeoutsShutdown, &c.Timeouts.Shutdown},
	} {
		dur, err := dp.GetDuration(item.key)
		if err != nil {
			return err
		}
		if dur < 0 {
			return dp.WrapKeyErr(item.key, fmt.Errorf("should not be negative"))
		}
		*item.dst = dur
	}
	return nil
}

// IsProduction reports whether the server runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// CacheMaxAge returns max-age used by the cache-control middleware for storefront GET responses.
func (c *Config) CacheMaxAge() time.Duration {
	if c.IsProduction() {
		return ProductionCacheMaxAge
	}
	return 0
}
