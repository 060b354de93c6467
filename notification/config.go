/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package notification

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/blackeyesartisan/shopkit/config"
	"github.com/blackeyesartisan/shopkit/httpclient"
	"github.com/blackeyesartisan/shopkit/notification/resend"
)

const cfgDefaultKeyPrefix = "notification"

const (
	cfgKeyAPIKey     = "apiKey"
	cfgKeyFrom       = "from"
	cfgKeyBaseURL    = "baseURL"
	cfgKeyMaxRetries = "maxRetries"
	cfgKeyRetryDelay = "retryDelay"
	cfgKeyTemplates  = "templates"
	cfgKeyHTTP       = "http"
)

// Config represents the configuration of the email notifications.
type Config struct {
	// APIKey is the Resend API key. Notifications are disabled when it's empty.
	APIKey     string
	From       string
	BaseURL    string
	MaxRetries int
	RetryDelay time.Duration
	Templates  map[string]TemplateOverride
	// HTTP configures the client used for talking to Resend.
	HTTP *httpclient.Config

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new instance of the Config with the given key prefix.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix, HTTP: httpclient.NewConfig("")}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyBaseURL, resend.DefaultBaseURL)
	dp.SetDefault(cfgKeyMaxRetries, DefaultMaxRetries)
	dp.SetDefault(cfgKeyRetryDelay, DefaultRetryDelay)
	c.HTTP.SetProviderDefaults(config.NewKeyPrefixedDataProvider(dp, cfgKeyHTTP))
}

// Set sets notification configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.APIKey, err = dp.GetString(cfgKeyAPIKey); err != nil {
		return err
	}
	if c.From, err = dp.GetString(cfgKeyFrom); err != nil {
		return err
	}
	if c.From != "" {
		if _, err = mail.ParseAddress(c.From); err != nil {
			return dp.WrapKeyErr(cfgKeyFrom, err)
		}
	}
	if c.Enabled() && c.From == "" {
		return dp.WrapKeyErr(cfgKeyFrom, fmt.Errorf("should be set when apiKey is set"))
	}
	if c.BaseURL, err = dp.GetString(cfgKeyBaseURL); err != nil {
		return err
	}

	if c.MaxRetries, err = dp.GetInt(cfgKeyMaxRetries); err != nil {
		return err
	}
	if c.MaxRetries <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxRetries, fmt.Errorf("should be positive"))
	}
	if c.RetryDelay, err = dp.GetDuration(cfgKeyRetryDelay); err != nil {
		return err
	}
	if c.RetryDelay < 0 {
		return dp.WrapKeyErr(cfgKeyRetryDelay, fmt.Errorf("should not be negative"))
	}

	c.Templates = nil
	if dp.IsSet(cfgKeyTemplates) {
		if err = dp.UnmarshalKey(cfgKeyTemplates, &c.Templates); err != nil {
			return err
		}
	}

	return c.HTTP.Set(config.NewKeyPrefixedDataProvider(dp, cfgKeyHTTP))
}

// Enabled reports whether the Resend API key is configured.
func (c *Config) Enabled() bool {
	return c.APIKey != ""
}
