package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Proxy      ProxyConfig      `mapstructure:"proxy"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Server     ServerConfig     `mapstructure:"server"`
}

// APIConfig holds the target API connection details
type APIConfig struct {
	BaseURL   string            `mapstructure:"base_url"`
	UserAgent string            `mapstructure:"user_agent"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	Retry     bool              `mapstructure:"retry"`
	Headers   map[string]string `mapstructure:"headers"`
}

// AuthConfig selects at most one credential set
type AuthConfig struct {
	BearerToken string       `mapstructure:"bearer_token"`
	Basic       BasicConfig  `mapstructure:"basic"`
	APIKey      APIKeyConfig `mapstructure:"api_key"`
}

// BasicConfig holds HTTP basic credentials
type BasicConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// APIKeyConfig holds an API key sent in a header or the query string
type APIKeyConfig struct {
	Name  string `mapstructure:"name"`
	Value string `mapstructure:"value"`
	In    string `mapstructure:"in"`
}

// ProxyConfig holds outbound proxy settings
type ProxyConfig struct {
	Address  string `mapstructure:"address"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig holds the Redis response cache settings
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	RedisAddr  string        `mapstructure:"redis_addr"`
	RedisDB    int           `mapstructure:"redis_db"`
	Prefix     string        `mapstructure:"prefix"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// RateLimitConfig holds the response-header budget tracking settings.
// State shares the Redis instance of the cache section.
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RemainingHeader string        `mapstructure:"remaining_header"`
	ResetHeader     string        `mapstructure:"reset_header"`
	Critical        int           `mapstructure:"critical"`
	Warning         int           `mapstructure:"warning"`
	ThrottleDelay   time.Duration `mapstructure:"throttle_delay"`
}

// PaginationConfig holds traversal settings
type PaginationConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	LogHeaders bool   `mapstructure:"log_headers"`
	LogBodies  bool   `mapstructure:"log_bodies"`
}

// ServerConfig configures the demo server of the serve command
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}
