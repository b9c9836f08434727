/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the application configuration from
// $WORKDIR/appconfig/<env>.yaml with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the application level metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Port        string `mapstructure:"port"`
}

// InMemoryCacheConfig configures the in-memory cache driver. Expirations
// are in seconds; negative values disable expiry/cleanup.
type InMemoryCacheConfig struct {
	DefaultExpiration int `mapstructure:"defaultExpiration"`
	CleanupInterval   int `mapstructure:"cleanupInterval"`
}

// RedisCacheConfig configures the redis cache driver.
type RedisCacheConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Database int32  `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig selects and configures the persistence driver.
type CacheConfig struct {
	Driver   string              `mapstructure:"driver"`
	Redis    RedisCacheConfig    `mapstructure:"redis"`
	InMemory InMemoryCacheConfig `mapstructure:"inmemory"`
}

// AniListConfig configures the upstream GraphQL client.
type AniListConfig struct {
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryCount     int           `mapstructure:"retryCount"`
	RetryInterval  time.Duration `mapstructure:"retryInterval"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
}

// RefreshConfig configures the stats refresh cycle.
type RefreshConfig struct {
	Secret      string        `mapstructure:"secret"`
	Concurrency int           `mapstructure:"concurrency"`
	UserTimeout time.Duration `mapstructure:"userTimeout"`
}

// WarmConfig configures the cache warm cycle.
type WarmConfig struct {
	Token         string        `mapstructure:"token"`
	Concurrency   int           `mapstructure:"concurrency"`
	RenderTimeout time.Duration `mapstructure:"renderTimeout"`
}

// RenderCacheConfig bounds the in-process artifact cache.
type RenderCacheConfig struct {
	MaxEntries int           `mapstructure:"maxEntries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// Config is the root configuration object.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Cache       CacheConfig       `mapstructure:"cache"`
	AniList     AniListConfig     `mapstructure:"anilist"`
	Refresh     RefreshConfig     `mapstructure:"refresh"`
	Warm        WarmConfig        `mapstructure:"warm"`
	RenderCache RenderCacheConfig `mapstructure:"renderCache"`
}

// LoadConfig reads appconfig/<env>.yaml relative to $WORKDIR (or the
// current directory when WORKDIR is unset) and unmarshals it. Environment
// variables override file values, e.g. REFRESH_SECRET overrides
// refresh.secret.
func LoadConfig(env string) (*Config, error) {
	workdir := os.Getenv("WORKDIR")
	if workdir == "" {
		workdir = "."
	}

	v := viper.New()
	v.SetConfigName(env)
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(workdir, "appconfig"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", env, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.inmemory.defaultExpiration", -1)
	v.SetDefault("cache.inmemory.cleanupInterval", -1)
	v.SetDefault("anilist.url", "https://graphql.anilist.co")
	v.SetDefault("anilist.timeout", 10*time.Second)
	v.SetDefault("anilist.retryCount", 2)
	v.SetDefault("anilist.retryInterval", 500*time.Millisecond)
	v.SetDefault("refresh.concurrency", 4)
	v.SetDefault("refresh.userTimeout", 30*time.Second)
	v.SetDefault("warm.concurrency", 8)
	v.SetDefault("warm.renderTimeout", 15*time.Second)
	v.SetDefault("renderCache.maxEntries", 500)
	v.SetDefault("renderCache.ttl", 24*time.Hour)
}
