/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package app

import (
	"path/filepath"
	"strings"

	"github.com/blackeyesartisan/shopkit/config"
	"github.com/blackeyesartisan/shopkit/filestore"
	"github.com/blackeyesartisan/shopkit/httpserver"
	"github.com/blackeyesartisan/shopkit/httpserver/middleware"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/notification"
	"github.com/blackeyesartisan/shopkit/profserver"
)

// EnvVarsPrefix is the prefix of the environment variables that override the configuration file.
const EnvVarsPrefix = "SHOPKIT"

// Config aggregates configurations of all the edge components.
type Config struct {
	Log          *log.Config
	Server       *httpserver.Config
	RateLimit    *middleware.RateLimitConfig
	Cache        *httpserver.CacheConfig
	Notification *notification.Config
	FileStorage  *filestore.Config
	ProfServer   *profserver.Config
}

// NewConfig creates a new Config.
func NewConfig() *Config {
	return &Config{
		Log:          log.NewConfig(),
		Server:       httpserver.NewConfig(),
		RateLimit:    middleware.NewRateLimitConfig(),
		Cache:        httpserver.NewCacheConfig(),
		Notification: notification.NewConfig(),
		FileStorage:  filestore.NewConfig(),
		ProfServer:   profserver.NewConfig(),
	}
}

// LoadConfig loads the configuration from the file (if path is not empty) and the environment variables.
// The data type is determined by the file extension, YAML is used by default.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	loader := config.NewDefaultLoader(EnvVarsPrefix)
	if path == "" {
		if err := loader.LoadFromEnv(cfg.Log, cfg.others()...); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err := loader.LoadFromFile(path, dataTypeFromPath(path), cfg.Log, cfg.others()...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) others() []config.Config {
	return []config.Config{c.Server, c.RateLimit, c.Cache, c.Notification, c.FileStorage, c.ProfServer}
}

func dataTypeFromPath(path string) config.DataType {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return config.DataTypeJSON
	}
	return config.DataTypeYAML
}
