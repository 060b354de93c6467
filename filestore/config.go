/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package filestore

import (
	"fmt"
	"net/url"

	"github.com/blackeyesartisan/shopkit/config"
	"github.com/blackeyesartisan/shopkit/httpclient"
)

const cfgDefaultKeyPrefix = "fileStorage"

const (
	cfgKeySizeLimit                   = "sizeLimit"
	cfgKeyCloudinaryCloudName         = "cloudinary.cloudName"
	cfgKeyCloudinaryAPIKey            = "cloudinary.apiKey"
	cfgKeyCloudinaryAPISecret         = "cloudinary.apiSecret"
	cfgKeyCloudinaryFolder            = "cloudinary.folder"
	cfgKeyCloudinaryUploadPreset      = "cloudinary.uploadPreset"
	cfgKeyCloudinaryAPIBaseURL        = "cloudinary.apiBaseURL"
	cfgKeyCloudinaryDeliveryBaseURL   = "cloudinary.deliveryBaseURL"
	cfgKeyCloudinaryMaxParallelDelete = "cloudinary.maxParallelDeletes"
	cfgKeyLocalDir                    = "local.dir"
	cfgKeyLocalBaseURL                = "local.baseURL"
	cfgKeyHTTP                        = "http"
)

// Default values.
const (
	DefaultCloudinaryFolder            = "medusa"
	DefaultCloudinaryAPIBaseURL        = "https://api.cloudinary.com"
	DefaultCloudinaryDeliveryBaseURL   = "https://res.cloudinary.com"
	DefaultCloudinaryMaxParallelDelete = 10
	DefaultLocalDir                    = "static"
	DefaultLocalBaseURL                = "http://localhost:8080/static"
)

// Config represents the configuration of the file storage.
type Config struct {
	SizeLimit  config.ByteSize
	Cloudinary CloudinaryConfig
	Local      LocalConfig
	// HTTP configures the client used for talking to the cloud storage.
	HTTP *httpclient.Config

	keyPrefix string
}

// CloudinaryConfig contains the Cloudinary credentials and upload parameters.
type CloudinaryConfig struct {
	CloudName          string
	APIKey             string
	APISecret          string
	Folder             string
	UploadPreset       string
	APIBaseURL         string
	DeliveryBaseURL    string
	MaxParallelDeletes int
}

// LocalConfig contains the parameters of the local disk storage.
type LocalConfig struct {
	Dir     string
	BaseURL string
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
	dp.SetDefault(cfgKeySizeLimit, DefaultSizeLimit)
	dp.SetDefault(cfgKeyCloudinaryFolder, DefaultCloudinaryFolder)
	dp.SetDefault(cfgKeyCloudinaryAPIBaseURL, DefaultCloudinaryAPIBaseURL)
	dp.SetDefault(cfgKeyCloudinaryDeliveryBaseURL, DefaultCloudinaryDeliveryBaseURL)
	dp.SetDefault(cfgKeyCloudinaryMaxParallelDelete, DefaultCloudinaryMaxParallelDelete)
	dp.SetDefault(cfgKeyLocalDir, DefaultLocalDir)
	dp.SetDefault(cfgKeyLocalBaseURL, DefaultLocalBaseURL)
	c.HTTP.SetProviderDefaults(config.NewKeyPrefixedDataProvider(dp, cfgKeyHTTP))
}

// Set sets file storage configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	sizeLimit, err := dp.GetSizeInBytes(cfgKeySizeLimit)
	if err != nil {
		return err
	}
	c.SizeLimit = config.ByteSize(sizeLimit)

	if err = c.setCloudinary(dp); err != nil {
		return err
	}

	if c.Local.Dir, err = dp.GetString(cfgKeyLocalDir); err != nil {
		return err
	}
	if c.Local.BaseURL, err = dp.GetString(cfgKeyLocalBaseURL); err != nil {
		return err
	}
	if err = checkAbsoluteURL(dp, cfgKeyLocalBaseURL, c.Local.BaseURL); err != nil {
		return err
	}

	return c.HTTP.Set(config.NewKeyPrefixedDataProvider(dp, cfgKeyHTTP))
}

func (c *Config) setCloudinary(dp config.DataProvider) error {
	var err error
	if c.Cloudinary.CloudName, err = dp.GetString(cfgKeyCloudinaryCloudName); err != nil {
		return err
	}
	if c.Cloudinary.APIKey, err = dp.GetString(cfgKeyCloudinaryAPIKey); err != nil {
		return err
	}
	if c.Cloudinary.APISecret, err = dp.GetString(cfgKeyCloudinaryAPISecret); err != nil {
		return err
	}
	if c.Cloudinary.Folder, err = dp.GetString(cfgKeyCloudinaryFolder); err != nil {
		return err
	}
	if c.Cloudinary.UploadPreset, err = dp.GetString(cfgKeyCloudinaryUploadPreset); err != nil {
		return err
	}
	if c.Cloudinary.APIBaseURL, err = dp.GetString(cfgKeyCloudinaryAPIBaseURL); err != nil {
		return err
	}
	if err = checkAbsoluteURL(dp, cfgKeyCloudinaryAPIBaseURL, c.Cloudinary.APIBaseURL); err != nil {
		return err
	}
	if c.Cloudinary.DeliveryBaseURL, err = dp.GetString(cfgKeyCloudinaryDeliveryBaseURL); err != nil {
		return err
	}
	if err = checkAbsoluteURL(dp, cfgKeyCloudinaryDeliveryBaseURL, c.Cloudinary.DeliveryBaseURL); err != nil {
		return err
	}
	if c.Cloudinary.MaxParallelDeletes, err = dp.GetInt(cfgKeyCloudinaryMaxParallelDelete); err != nil {
		return err
	}
	if c.Cloudinary.MaxParallelDeletes <= 0 {
		return dp.WrapKeyErr(cfgKeyCloudinaryMaxParallelDelete, fmt.Errorf("should be positive"))
	}
	return nil
}

// CloudinaryEnabled reports whether all Cloudinary credentials are set.
// The local disk storage is used otherwise.
func (c *Config) CloudinaryEnabled() bool {
	return c.Cloudinary.CloudName != "" && c.Cloudinary.APIKey != "" && c.Cloudinary.APISecret != ""
}

// CloudinaryPartiallyConfigured reports whether some but not all Cloudinary credentials are set.
func (c *Config) CloudinaryPartiallyConfigured() bool {
	anySet := c.Cloudinary.CloudName != "" || c.Cloudinary.APIKey != "" || c.Cloudinary.APISecret != ""
	return anySet && !c.CloudinaryEnabled()
}

func checkAbsoluteURL(dp config.DataProvider, key, value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return dp.WrapKeyErr(key, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return dp.WrapKeyErr(key, fmt.Errorf("should be an absolute URL"))
	}
	return nil
}
