/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"time"

	"github.com/blackeyesartisan/shopkit/config"
)

// DefaultTimeout is a default timeout for a single request including reading the response body.
const DefaultTimeout = 30 * time.Second

const (
	cfgKeyTimeout                  = "timeout"
	cfgKeyRateLimitsEnabled        = "rateLimits.enabled"
	cfgKeyRateLimitsLimit          = "rateLimits.limit"
	cfgKeyRateLimitsBurst          = "rateLimits.burst"
	cfgKeyRateLimitsWaitTimeout    = "rateLimits.waitTimeout"
	cfgKeyRateLimitsAdaptiveHeader = "rateLimits.adaptation.responseHeader"
	cfgKeyRateLimitsAdaptiveSlack  = "rateLimits.adaptation.slackPercent"
	cfgKeyLogEnabled               = "log.enabled"
	cfgKeyLogMode                  = "log.mode"
	cfgKeyLogSlowRequestThreshold  = "log.slowRequestThreshold"
	cfgKeyMetricsEnabled           = "metrics.enabled"
)

// Config represents options of an HTTP client used for talking to a third-party API.
type Config struct {
	Timeout    time.Duration
	RateLimits RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig

	keyPrefix string
}

// RateLimitConfig limits the rate of outgoing requests.
type RateLimitConfig struct {
	Enabled     bool
	Limit       int
	Burst       int
	WaitTimeout time.Duration
	Adaptation  RateLimitingRoundTripperAdaptation
}

// LogConfig configures logging of outgoing requests.
type LogConfig struct {
	Enabled              bool
	Mode                 LoggingMode
	SlowRequestThreshold time.Duration
}

// MetricsConfig configures collecting of metrics for outgoing requests.
type MetricsConfig struct {
	Enabled bool
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new Config that is read under the given key prefix.
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix implements config.KeyPrefixProvider.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults implements config.Config.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultTimeout)
	dp.SetDefault(cfgKeyRateLimitsWaitTimeout, DefaultRateLimitingWaitTimeout)
	dp.SetDefault(cfgKeyLogEnabled, true)
	dp.SetDefault(cfgKeyLogMode, string(LoggingModeFailed))
	dp.SetDefault(cfgKeyMetricsEnabled, true)
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, fmt.Errorf("should not be negative"))
	}
	if err = c.setRateLimits(dp); err != nil {
		return err
	}

	if c.Log.Enabled, err = dp.GetBool(cfgKeyLogEnabled); err != nil {
		return err
	}
	mode, err := dp.GetStringFromSet(cfgKeyLogMode,
		[]string{string(LoggingModeNone), string(LoggingModeAll), string(LoggingModeFailed)}, true)
	if err != nil {
		return err
	}
	c.Log.Mode = LoggingMode(mode)
	if c.Log.SlowRequestThreshold, err = dp.GetDuration(cfgKeyLogSlowRequestThreshold); err != nil {
		return err
	}

	c.Metrics.Enabled, err = dp.GetBool(cfgKeyMetricsEnabled)
	return err
}

func (c *Config) setRateLimits(dp config.DataProvider) error {
	var err error
	if c.RateLimits.Enabled, err = dp.GetBool(cfgKeyRateLimitsEnabled); err != nil {
		return err
	}
	if !c.RateLimits.Enabled {
		return nil
	}
	if c.RateLimits.Limit, err = dp.GetInt(cfgKeyRateLimitsLimit); err != nil {
		return err
	}
	if c.RateLimits.Limit <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsLimit, fmt.Errorf("should be positive"))
	}
	if c.RateLimits.Burst, err = dp.GetInt(cfgKeyRateLimitsBurst); err != nil {
		return err
	}
	if c.RateLimits.Burst < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsBurst, fmt.Errorf("should not be negative"))
	}
	if c.RateLimits.WaitTimeout, err = dp.GetDuration(cfgKeyRateLimitsWaitTimeout); err != nil {
		return err
	}
	if c.RateLimits.Adaptation.ResponseHeaderName, err = dp.GetString(cfgKeyRateLimitsAdaptiveHeader); err != nil {
		return err
	}
	if c.RateLimits.Adaptation.SlackPercent, err = dp.GetInt(cfgKeyRateLimitsAdaptiveSlack); err != nil {
		return err
	}
	if c.RateLimits.Adaptation.SlackPercent < 0 || c.RateLimits.Adaptation.SlackPercent > 100 {
		return dp.WrapKeyErr(cfgKeyRateLimitsAdaptiveSlack, fmt.Errorf("should be in range [0..100]"))
	}
	return nil
}
