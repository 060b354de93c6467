/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"time"

	"github.com/blackeyesartisan/shopkit/config"
	"github.com/blackeyesartisan/shopkit/internal/ratelimit"
)

// RateLimitAlg is a rate limiting algorithm.
type RateLimitAlg string

// Supported rate limiting algorithms.
const (
	RateLimitAlgFixedWindow RateLimitAlg = "fixed_window"
	RateLimitAlgLeakyBucket RateLimitAlg = "leaky_bucket"
)

// Default values of the rate limiting configuration.
// Delaying is off by default (DefaultRateLimitDelayAfter is 0), the CMS deployment
// turns it on with delayAfter: 80.
const (
	DefaultRateLimitMax        = 100
	DefaultRateLimitWindow     = time.Minute
	DefaultRateLimitDelayAfter = 0
	DefaultRateLimitTimeWait   = time.Second
	DefaultRateLimitMaxKeys    = 10000
)

const (
	cfgKeyRateLimitEnabled       = "enabled"
	cfgKeyRateLimitAlg           = "alg"
	cfgKeyRateLimitMax           = "max"
	cfgKeyRateLimitWindow        = "window"
	cfgKeyRateLimitDelayAfter    = "delayAfter"
	cfgKeyRateLimitTimeWait      = "timeWait"
	cfgKeyRateLimitMaxDelay      = "maxDelay"
	cfgKeyRateLimitHeaders       = "headers"
	cfgKeyRateLimitMessage       = "message"
	cfgKeyRateLimitWhitelist     = "whitelist"
	cfgKeyRateLimitSweepInterval = "sweepInterval"
	cfgKeyRateLimitBurst         = "leakyBucket.burst"
	cfgKeyRateLimitMaxKeys       = "leakyBucket.maxKeys"
)

// RateLimitConfig represents the configuration of rate limiting of incoming requests.
// SweepInterval is ratelimit.DefaultSweepInterval by default,
// deployments with long windows may use ratelimit.LongSweepInterval.
type RateLimitConfig struct {
	Enabled       bool
	Alg           RateLimitAlg
	Max           int
	Window        time.Duration
	DelayAfter    int
	TimeWait      time.Duration
	MaxDelay      time.Duration
	Headers       bool
	Message       string
	Whitelist     []string
	SweepInterval time.Duration
	LeakyBucket   LeakyBucketConfig
}

// LeakyBucketConfig contains parameters used only by the leaky bucket algorithm.
type LeakyBucketConfig struct {
	Burst   int
	MaxKeys int
}

var _ config.Config = (*RateLimitConfig)(nil)
var _ config.KeyPrefixProvider = (*RateLimitConfig)(nil)

// NewRateLimitConfig creates a new RateLimitConfig.
func NewRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{}
}

// KeyPrefix implements config.KeyPrefixProvider.
func (c *RateLimitConfig) KeyPrefix() string {
	return "rateLimit"
}

// SetProviderDefaults implements config.Config.
func (c *RateLimitConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyRateLimitEnabled, true)
	dp.SetDefault(cfgKeyRateLimitAlg, string(RateLimitAlgFixedWindow))
	dp.SetDefault(cfgKeyRateLimitMax, DefaultRateLimitMax)
	dp.SetDefault(cfgKeyRateLimitWindow, DefaultRateLimitWindow)
	dp.SetDefault(cfgKeyRateLimitDelayAfter, DefaultRateLimitDelayAfter)
	dp.SetDefault(cfgKeyRateLimitTimeWait, DefaultRateLimitTimeWait)
	dp.SetDefault(cfgKeyRateLimitMaxDelay, ratelimit.DefaultMaxDelay)
	dp.SetDefault(cfgKeyRateLimitHeaders, true)
	dp.SetDefault(cfgKeyRateLimitMessage, DefaultRateLimitMessage)
	dp.SetDefault(cfgKeyRateLimitSweepInterval, ratelimit.DefaultSweepInterval)
	dp.SetDefault(cfgKeyRateLimitMaxKeys, DefaultRateLimitMaxKeys)
}

// Set implements config.Config.
func (c *RateLimitConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyRateLimitEnabled); err != nil {
		return err
	}
	alg, err := dp.GetStringFromSet(cfgKeyRateLimitAlg,
		[]string{string(RateLimitAlgFixedWindow), string(RateLimitAlgLeakyBucket)}, true)
	if err != nil {
		return err
	}
	c.Alg = RateLimitAlg(alg)

	if c.Max, err = dp.GetInt(cfgKeyRateLimitMax); err != nil {
		return err
	}
	if c.Max <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitMax, fmt.Errorf("should be positive"))
	}
	if c.Window, err = dp.GetDuration(cfgKeyRateLimitWindow); err != nil {
		return err
	}
	if c.Window <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitWindow, fmt.Errorf("should be positive"))
	}
	if c.DelayAfter, err = dp.GetInt(cfgKeyRateLimitDelayAfter); err != nil {
		return err
	}
	if c.DelayAfter < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitDelayAfter, fmt.Errorf("should not be negative"))
	}
	if c.TimeWait, err = dp.GetDuration(cfgKeyRateLimitTimeWait); err != nil {
		return err
	}
	if c.MaxDelay, err = dp.GetDuration(cfgKeyRateLimitMaxDelay); err != nil {
		return err
	}
	if c.Headers, err = dp.GetBool(cfgKeyRateLimitHeaders); err != nil {
		return err
	}
	if c.Message, err = dp.GetString(cfgKeyRateLimitMessage); err != nil {
		return err
	}
	if c.Whitelist, err = dp.GetStringSlice(cfgKeyRateLimitWhitelist); err != nil {
		return err
	}
	if c.SweepInterval, err = dp.GetDuration(cfgKeyRateLimitSweepInterval); err != nil {
		return err
	}
	if c.SweepInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitSweepInterval, fmt.Errorf("should be positive"))
	}
	if c.LeakyBucket.Burst, err = dp.GetInt(cfgKeyRateLimitBurst); err != nil {
		return err
	}
	if c.LeakyBucket.MaxKeys, err = dp.GetInt(cfgKeyRateLimitMaxKeys); err != nil {
		return err
	}
	return nil
}

// NewRateLimiterFromConfig creates a RateLimiter with the configured algorithm.
// Message, headers and whitelist from the configuration override the same options.
func NewRateLimiterFromConfig(cfg *RateLimitConfig, opts RateLimitOpts) (*RateLimiter, error) {
	opts.Message = cfg.Message
	opts.DisableHeaders = !cfg.Headers
	opts.Whitelist = cfg.Whitelist
	if cfg.Alg == RateLimitAlgLeakyBucket {
		return NewLeakyBucketRateLimiter(cfg.Max, cfg.Window, cfg.LeakyBucket.Burst, cfg.LeakyBucket.MaxKeys, opts)
	}
	return NewRateLimiter(RateLimitParams{
		Max:        cfg.Max,
		Window:     cfg.Window,
		DelayAfter: cfg.DelayAfter,
		TimeWait:   cfg.TimeWait,
		MaxDelay:   cfg.MaxDelay,
	}, opts)
}
