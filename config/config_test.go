/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type testLimiterConfig struct {
	Max       int
	Window    time.Duration
	Whitelist []string
	Alg       string
}

func (c *testLimiterConfig) KeyPrefix() string { return "rateLimit" }

func (c *testLimiterConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("max", 100)
	dp.SetDefault("window", "1m")
	dp.SetDefault("alg", "fixed_window")
}

func (c *testLimiterConfig) Set(dp DataProvider) error {
	var err error
	if c.Max, err = dp.GetInt("max"); err != nil {
		return err
	}
	if c.Window, err = dp.GetDuration("window"); err != nil {
		return err
	}
	if c.Whitelist, err = dp.GetStringSlice("whitelist"); err != nil {
		return err
	}
	c.Alg, err = dp.GetStringFromSet("alg", []string{"fixed_window", "leaky_bucket"}, true)
	return err
}

type testStorageConfig struct {
	SizeLimit uint64
}

func (c *testStorageConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("fileStorage.sizeLimit", "10MB")
}

func (c *testStorageConfig) Set(dp DataProvider) error {
	var err error
	c.SizeLimit, err = dp.GetSizeInBytes("fileStorage.sizeLimit")
	return err
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults are used for missing keys", func(t *testing.T) {
		limCfg, stCfg := &testLimiterConfig{}, &testStorageConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, limCfg, stCfg)
		require.NoError(t, err)
		require.Equal(t, 100, limCfg.Max)
		require.Equal(t, time.Minute, limCfg.Window)
		require.Empty(t, limCfg.Whitelist)
		require.Equal(t, "fixed_window", limCfg.Alg)
		require.Equal(t, uint64(10*1024*1024), stCfg.SizeLimit)
	})

	t.Run("values are read under the key prefix", func(t *testing.T) {
		cfgData := `
rateLimit:
  max: 5
  window: 30s
  whitelist: [127.0.0.1, 10.0.0.1]
  alg: LEAKY_BUCKET
`
		limCfg := &testLimiterConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(cfgData), DataTypeYAML, limCfg)
		require.NoError(t, err)
		require.Equal(t, 5, limCfg.Max)
		require.Equal(t, 30*time.Second, limCfg.Window)
		require.Equal(t, []string{"127.0.0.1", "10.0.0.1"}, limCfg.Whitelist)
		require.Equal(t, "leaky_bucket", limCfg.Alg)
	})

	t.Run("unknown enum value is reported with the full key", func(t *testing.T) {
		limCfg := &testLimiterConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"rateLimit":{"alg":"token_bucket"}}`), DataTypeJSON, limCfg)
		require.EqualError(t, err, `rateLimit.alg: unknown value "token_bucket", should be one of [fixed_window leaky_bucket]`)
	})
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("SHOPKITTEST_RATELIMIT_MAX", "7")
	t.Setenv("SHOPKITTEST_RATELIMIT_WHITELIST", "1.1.1.1, 2.2.2.2")

	limCfg := &testLimiterConfig{}
	require.NoError(t, NewDefaultLoader("SHOPKITTEST").LoadFromEnv(limCfg))
	require.Equal(t, 7, limCfg.Max)
	require.Equal(t, []string{"1.1.1.1", "2.2.2.2"}, limCfg.Whitelist)
}

func TestByteSize(t *testing.T) {
	var holder struct {
		Limit ByteSize `yaml:"limit"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("limit: 10MB"), &holder))
	require.Equal(t, ByteSize(10*1024*1024), holder.Limit)
	require.Equal(t, "10M", holder.Limit.String())

	require.NoError(t, yaml.Unmarshal([]byte("limit: 2048"), &holder))
	require.Equal(t, ByteSize(2048), holder.Limit)

	_, err := ParseByteSize("-1")
	require.Error(t, err)
	_, err = ParseByteSize("ten megs")
	require.Error(t, err)
}
