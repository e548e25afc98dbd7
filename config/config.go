// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the application settings from defaults, an optional
// config file, FOODMAP_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/htlee1999/food-map/spatial"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables read by Load.
const EnvPrefix = "FOODMAP"

// Config holds every tunable of the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Region   RegionConfig   `mapstructure:"region"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Import   ImportConfig   `mapstructure:"import"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig locates the JSON file used when the database is unreachable.
type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// RegionConfig describes the area places are expected to be in.
type RegionConfig struct {
	Name       string              `mapstructure:"name"`
	Bounds     spatial.BoundingBox `mapstructure:"bounds"`
	Subregions []string            `mapstructure:"subregions"`
}

type GeocoderConfig struct {
	// Provider is onemap or google.
	Provider     string        `mapstructure:"provider"`
	BaseURL      string        `mapstructure:"base_url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	BaseDelay    time.Duration `mapstructure:"base_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	GoogleAPIKey string        `mapstructure:"google_api_key"`
}

type ImportConfig struct {
	BatchSize  int           `mapstructure:"batch_size"`
	BatchDelay time.Duration `mapstructure:"batch_delay"`
}

type FetchConfig struct {
	// ProxyURL is the same-origin proxy endpoint. Pages are fetched directly
	// when empty.
	ProxyURL  string `mapstructure:"proxy_url"`
	UserAgent string `mapstructure:"user_agent"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Providers accepted in geocoder.provider.
const (
	ProviderOneMap = "onemap"
	ProviderGoogle = "google"
)

// DefaultSubregions are well known Singapore areas tried, in order, when a
// place name alone cannot be geocoded.
var DefaultSubregions = []string{
	"Marina Bay", "Orchard", "Chinatown", "Little India", "Clarke Quay",
	"Sentosa", "Jurong", "Tampines", "Woodlands", "Ang Mo Kio",
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3001)
	v.SetDefault("database.path", "db/foodmap.duckdb")
	v.SetDefault("cache.path", "data/places.json")
	v.SetDefault("region.name", "Singapore")
	v.SetDefault("region.bounds.min_lat", spatial.Singapore.MinLat)
	v.SetDefault("region.bounds.max_lat", spatial.Singapore.MaxLat)
	v.SetDefault("region.bounds.min_lng", spatial.Singapore.MinLng)
	v.SetDefault("region.bounds.max_lng", spatial.Singapore.MaxLng)
	v.SetDefault("region.subregions", DefaultSubregions)
	v.SetDefault("geocoder.provider", ProviderOneMap)
	v.SetDefault("geocoder.base_url", "")
	v.SetDefault("geocoder.max_retries", 2)
	v.SetDefault("geocoder.base_delay", time.Second)
	v.SetDefault("geocoder.timeout", 10*time.Second)
	v.SetDefault("geocoder.rate_limit", 4.0)
	v.SetDefault("geocoder.cache_ttl", time.Hour)
	v.SetDefault("geocoder.google_api_key", "")
	v.SetDefault("import.batch_size", 5)
	v.SetDefault("import.batch_delay", 500*time.Millisecond)
	v.SetDefault("fetch.proxy_url", "")
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("log.level", "info")
}

// Load reads the configuration. configFile is optional; flags already bound
// to v take precedence over the environment, which takes precedence over
// the file.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration obtained from defaults alone.
func Default() *Config {
	cfg, err := Load(viper.New(), "")
	if err != nil {
		panic(fmt.Errorf("default configuration is invalid: %w", err))
	}

	return cfg
}

// Validate checks the values that would otherwise fail deep inside the
// import pipeline.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Region.Name) == "" {
		errs = append(errs, errors.New("region.name must not be empty"))
	}

	if err := c.Region.Bounds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("region.bounds: %w", err))
	}

	switch c.Geocoder.Provider {
	case ProviderOneMap, ProviderGoogle:
	default:
		errs = append(errs, fmt.Errorf("geocoder.provider must be %s or %s, got %q", ProviderOneMap, ProviderGoogle, c.Geocoder.Provider))
	}

	if c.Geocoder.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("geocoder.max_retries must be at least 1, got %d", c.Geocoder.MaxRetries))
	}

	if c.Geocoder.BaseDelay < 0 || c.Geocoder.RateLimit < 0 || c.Geocoder.CacheTTL < 0 {
		errs = append(errs, errors.New("geocoder delays, rate limit and cache ttl must not be negative"))
	}

	if c.Import.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("import.batch_size must be at least 1, got %d", c.Import.BatchSize))
	}

	if c.Import.BatchDelay < 0 {
		errs = append(errs, errors.New("import.batch_delay must not be negative"))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	return errors.Join(errs...)
}
