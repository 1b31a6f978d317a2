// Package config loads pagewalk configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sternrassler/apicore/pkg/logging"
)

// EnvPrefix prefixes environment overrides, e.g. PAGEWALK_API_BASE_URL.
const EnvPrefix = "PAGEWALK"

// Load loads the configuration from file and environment.
// A missing config file is not an error when configPath is empty.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pagewalk")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pagewalk"))
		}
		v.AddConfigPath("/etc/pagewalk/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.user_agent", "pagewalk/1.0")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.retry", true)

	v.SetDefault("auth.api_key.in", "header")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.prefix", "pagewalk")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.remaining_header", "X-RateLimit-Remaining")
	v.SetDefault("rate_limit.reset_header", "X-RateLimit-Reset")
	v.SetDefault("rate_limit.critical", 5)
	v.SetDefault("rate_limit.warning", 20)
	v.SetDefault("rate_limit.throttle_delay", "1s")

	v.SetDefault("pagination.max_concurrency", 4)
	v.SetDefault("pagination.timeout", "2m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.addr", ":8080")
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must be >= 0 (got %s)", cfg.API.Timeout)
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	if cfg.Auth.APIKey.Value != "" {
		if cfg.Auth.APIKey.Name == "" {
			return fmt.Errorf("auth.api_key.name is required when auth.api_key.value is set")
		}
		if cfg.Auth.APIKey.In != "header" && cfg.Auth.APIKey.In != "query" {
			return fmt.Errorf("auth.api_key.in must be header or query (got %q)", cfg.Auth.APIKey.In)
		}
	}

	if cfg.Proxy.Address != "" && (cfg.Proxy.Port < 0 || cfg.Proxy.Port > 65535) {
		return fmt.Errorf("proxy.port out of range: %d", cfg.Proxy.Port)
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required when cache is enabled")
	}
	if cfg.Cache.DefaultTTL < 0 {
		return fmt.Errorf("cache.default_ttl must be >= 0 (got %s)", cfg.Cache.DefaultTTL)
	}

	if cfg.RateLimit.Enabled {
		if cfg.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required when rate_limit is enabled")
		}
		if cfg.RateLimit.Critical < 0 || cfg.RateLimit.Warning < cfg.RateLimit.Critical {
			return fmt.Errorf("rate_limit thresholds must satisfy 0 <= critical <= warning (got %d, %d)",
				cfg.RateLimit.Critical, cfg.RateLimit.Warning)
		}
	}

	if cfg.Pagination.MaxConcurrency < 1 {
		return fmt.Errorf("pagination.max_concurrency must be >= 1 (got %d)", cfg.Pagination.MaxConcurrency)
	}

	return nil
}
