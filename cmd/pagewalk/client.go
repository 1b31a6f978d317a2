package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/apicore/internal/config"
	"github.com/Sternrassler/apicore/pkg/apicall"
	"github.com/Sternrassler/apicore/pkg/auth"
	"github.com/Sternrassler/apicore/pkg/cache"
	"github.com/Sternrassler/apicore/pkg/logging"
	"github.com/Sternrassler/apicore/pkg/ratelimit"
	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// client is everything a walk needs to issue calls.
type client struct {
	global apicall.GlobalConfig
	auth   request.Authenticator
	close  func()
}

func newClient(ctx context.Context, c *config.Config) (*client, error) {
	tcfg := transport.DefaultConfig()
	tcfg.Timeout = c.API.Timeout
	if c.API.UserAgent != "" {
		tcfg.UserAgent = c.API.UserAgent
	}
	if c.Proxy.Address != "" {
		tcfg.Proxy = &transport.ProxySettings{
			Address:  c.Proxy.Address,
			Port:     c.Proxy.Port,
			Username: c.Proxy.Username,
			Password: c.Proxy.Password,
		}
	}

	closeFn := func() {}
	if c.Cache.Enabled || c.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr: c.Cache.RedisAddr,
			DB:   c.Cache.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", c.Cache.RedisAddr, err)
		}
		closeFn = func() { redisClient.Close() }

		if c.Cache.Enabled {
			manager, err := cache.NewManager(redisClient, cache.Config{
				Prefix:     c.Cache.Prefix,
				DefaultTTL: c.Cache.DefaultTTL,
			})
			if err != nil {
				closeFn()
				return nil, err
			}
			tcfg.Cache = manager
			logger.Info().Str("redis", c.Cache.RedisAddr).Msg("Response cache enabled")
		}

		if c.RateLimit.Enabled {
			tracker, err := ratelimit.NewTracker(redisClient, ratelimit.Config{
				Prefix:          c.Cache.Prefix,
				RemainingHeader: c.RateLimit.RemainingHeader,
				ResetHeader:     c.RateLimit.ResetHeader,
				Critical:        c.RateLimit.Critical,
				Warning:         c.RateLimit.Warning,
				ThrottleDelay:   c.RateLimit.ThrottleDelay,
			}, logging.NewLogger("ratelimit"))
			if err != nil {
				closeFn()
				return nil, err
			}
			tcfg.RateLimit = tracker
			logger.Info().Str("remaining_header", c.RateLimit.RemainingHeader).Msg("Rate limit tracking enabled")
		}
	}

	tr, err := transport.NewHTTPTransport(tcfg)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	headers := make(map[string]any, len(c.API.Headers))
	for k, v := range c.API.Headers {
		headers[k] = v
	}

	managers, authenticator := authFromConfig(c.Auth)
	baseURL := strings.TrimSuffix(c.API.BaseURL, "/")

	return &client{
		global: apicall.GlobalConfig{
			Environment: request.Environment{
				BaseURI:       func(string) string { return baseURL },
				GlobalHeaders: headers,
				AuthManagers:  managers,
			},
			Transport: tr,
			Logging: logging.HTTPConfig{
				IncludeHeaders: c.Logging.LogHeaders,
				IncludeBody:    c.Logging.LogBodies,
			},
		},
		auth:  authenticator,
		close: closeFn,
	}, nil
}

// authFromConfig registers every configured credential. The returned
// authenticator accepts the first one that is valid, or is nil when none is set.
func authFromConfig(c config.AuthConfig) (map[string]request.AuthManager, request.Authenticator) {
	managers := map[string]request.AuthManager{}
	var names []request.Authenticator

	if c.BearerToken != "" {
		managers["bearer"] = auth.NewBearer(c.BearerToken)
		names = append(names, auth.Single("bearer"))
	}
	if c.Basic.Username != "" {
		managers["basic"] = auth.NewBasic(c.Basic.Username, c.Basic.Password)
		names = append(names, auth.Single("basic"))
	}
	if c.APIKey.Value != "" {
		if c.APIKey.In == "query" {
			managers["api_key"] = auth.NewAPIKeyQuery(c.APIKey.Name, c.APIKey.Value)
		} else {
			managers["api_key"] = auth.NewAPIKeyHeader(c.APIKey.Name, c.APIKey.Value)
		}
		names = append(names, auth.Single("api_key"))
	}

	switch len(names) {
	case 0:
		return managers, nil
	case 1:
		return managers, names[0]
	default:
		return managers, auth.Or(names...)
	}
}
