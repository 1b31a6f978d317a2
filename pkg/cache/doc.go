// Package cache provides a Redis-backed response cache with ETag support
// for conditional requests.
//
// The HTTP transport consults the cache before sending idempotent requests
// and stores successful responses that carry freshness information:
//
// - Expires and Cache-Control max-age decide how long an entry is fresh
// - ETag and Last-Modified are replayed as If-None-Match / If-Modified-Since
// - A 304 Not Modified refreshes the TTL and serves the cached body
// - Cache-Control no-store responses are never written
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//
//	manager, err := cache.NewManager(redisClient, cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	key, err := cache.KeyFromRequest(req)
//	if err != nil {
//		return err
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// send the request
//	}
//
// # Metrics
//
//   - apicore_cache_hits_total{layer="redis"}
//   - apicore_cache_misses_total
//   - apicore_cache_size_bytes{layer="redis"}
//   - apicore_cache_not_modified_total
//   - apicore_cache_errors_total{operation}
package cache
