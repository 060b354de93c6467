/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"fmt"

	"github.com/blackeyesartisan/shopkit/config"
)

const cfgKeyPrefix = "log"

const (
	cfgKeyLevel                  = "level"
	cfgKeyFormat                 = "format"
	cfgKeyOutput                 = "output"
	cfgKeyNoColor                = "nocolor"
	cfgKeyFilePath               = "file.path"
	cfgKeyFileRotationCompress   = "file.rotation.compress"
	cfgKeyFileRotationMaxSize    = "file.rotation.maxSize"
	cfgKeyFileRotationMaxBackups = "file.rotation.maxBackups"
	cfgKeyFileRotationMaxAgeDays = "file.rotation.maxAgeDays"
	cfgKeyAddCaller              = "addCaller"
	cfgKeyMaskingEnabled         = "masking.enabled"
	cfgKeyMaskingUseDefaultRules = "masking.useDefaultRules"
	cfgKeyMaskingRules           = "masking.rules"
)

// Default and restriction values.
const (
	DefaultFileRotationMaxSize    = "250M"
	MinFileRotationMaxSizeBytes   = 1024 * 1024
	DefaultFileRotationMaxBackups = 10
)

// Level defines possible values for log levels.
type Level string

// Logging levels.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Format defines possible values for log formats.
type Format string

// Logging formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output defines possible values for log outputs.
type Output string

// Logging outputs.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// Config represents a set of configuration parameters for logging.
type Config struct {
	Level     Level
	Format    Format
	Output    Output
	NoColor   bool
	File      FileOutputConfig
	AddCaller bool
	Masking   MaskingConfig
}

// FileOutputConfig is a configuration for file log output.
type FileOutputConfig struct {
	Path     string
	Rotation FileRotationConfig
}

// FileRotationConfig is a configuration for file log rotation.
type FileRotationConfig struct {
	Compress   bool
	MaxSize    config.ByteSize
	MaxBackups int
	MaxAgeDays int
}

// MaskingConfig is a configuration for log field masking.
type MaskingConfig struct {
	Enabled         bool
	UseDefaultRules bool
	Rules           []MaskingRuleConfig
}

// MaskingRuleConfig is a configuration for a single masking rule.
type MaskingRuleConfig struct {
	Field   string            `mapstructure:"field"`
	Formats []FieldMaskFormat `mapstructure:"formats"`
	Masks   []MaskConfig      `mapstructure:"masks"`
}

// MaskConfig is a configuration for a single mask.
type MaskConfig struct {
	RegExp string `mapstructure:"regexp"`
	Mask   string `mapstructure:"mask"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return cfgKeyPrefix
}

// SetProviderDefaults sets default configuration values for logger in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLevel, string(LevelInfo))
	dp.SetDefault(cfgKeyFormat, string(FormatJSON))
	dp.SetDefault(cfgKeyOutput, string(OutputStdout))
	dp.SetDefault(cfgKeyFileRotationMaxSize, DefaultFileRotationMaxSize)
	dp.SetDefault(cfgKeyFileRotationMaxBackups, DefaultFileRotationMaxBackups)
	dp.SetDefault(cfgKeyMaskingEnabled, true)
	dp.SetDefault(cfgKeyMaskingUseDefaultRules, true)
}

// Set sets logger configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	level, err := dp.GetStringFromSet(cfgKeyLevel,
		[]string{string(LevelError), string(LevelWarn), string(LevelInfo), string(LevelDebug)}, true)
	if err != nil {
		return err
	}
	c.Level = Level(level)

	format, err := dp.GetStringFromSet(cfgKeyFormat, []string{string(FormatJSON), string(FormatText)}, true)
	if err != nil {
		return err
	}
	c.Format = Format(format)

	output, err := dp.GetStringFromSet(cfgKeyOutput,
		[]string{string(OutputStdout), string(OutputStderr), string(OutputFile)}, true)
	if err != nil {
		return err
	}
	c.Output = Output(output)

	if c.NoColor, err = dp.GetBool(cfgKeyNoColor); err != nil {
		return err
	}
	if c.AddCaller, err = dp.GetBool(cfgKeyAddCaller); err != nil {
		return err
	}
	if err = c.setFileOutput(dp); err != nil {
		return err
	}

	if c.Masking.Enabled, err = dp.GetBool(cfgKeyMaskingEnabled); err != nil {
		return err
	}
	if c.Masking.UseDefaultRules, err = dp.GetBool(cfgKeyMaskingUseDefaultRules); err != nil {
		return err
	}
	return dp.UnmarshalKey(cfgKeyMaskingRules, &c.Masking.Rules)
}

func (c *Config) setFileOutput(dp config.DataProvider) error {
	var err error
	if c.File.Path, err = dp.GetString(cfgKeyFilePath); err != nil {
		return err
	}
	if c.File.Path == "" && c.Output == OutputFile {
		return dp.WrapKeyErr(cfgKeyFilePath, fmt.Errorf("cannot be empty when %q output is used", OutputFile))
	}
	if c.File.Rotation.Compress, err = dp.GetBool(cfgKeyFileRotationCompress); err != nil {
		return err
	}
	maxSize, err := dp.GetSizeInBytes(cfgKeyFileRotationMaxSize)
	if err != nil {
		return err
	}
	if maxSize < MinFileRotationMaxSizeBytes {
		return dp.WrapKeyErr(cfgKeyFileRotationMaxSize,
			fmt.Errorf("should be >= %s", config.ByteSize(MinFileRotationMaxSizeBytes)))
	}
	c.File.Rotation.MaxSize = config.ByteSize(maxSize)
	if c.File.Rotation.MaxBackups, err = dp.GetInt(cfgKeyFileRotationMaxBackups); err != nil {
		return err
	}
	if c.File.Rotation.MaxAgeDays, err = dp.GetInt(cfgKeyFileRotationMaxAgeDays); err != nil {
		return err
	}
	if c.File.Rotation.MaxAgeDays < 0 {
		return dp.WrapKeyErr(cfgKeyFileRotationMaxAgeDays, fmt.Errorf("should be >= 0"))
	}
	return nil
}
