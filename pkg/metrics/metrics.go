// Package metrics exposes the Prometheus registry shared by all apicore packages.
// Metrics are defined in their respective packages (transport, cache, ratelimit,
// apicall, pagination) to maintain modularity and avoid circular dependencies.
//
// This package provides the scrape handler and a reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all apicore metrics are registered with via promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer Handler reads from.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the Prometheus scrape handler for Gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Transport Metrics (pkg/transport):
//   - apicore_transport_requests_total{method, status} (Counter): Requests sent on the wire
//   - apicore_transport_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - apicore_transport_retries_total{error_class} (Counter): Retry attempts by error class
//   - apicore_transport_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - apicore_transport_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - apicore_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - apicore_cache_misses_total (Counter): Cache misses
//   - apicore_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - apicore_cache_not_modified_total (Counter): 304 Not Modified revalidations
//   - apicore_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - apicore_ratelimit_remaining{host} (Gauge): Requests left in the current window
//   - apicore_ratelimit_blocks_total{host} (Counter): Requests refused below the critical threshold
//   - apicore_ratelimit_throttles_total{host} (Counter): Requests delayed below the warning threshold
//
// Call Metrics (pkg/apicall):
//   - apicall_requests_total{method, status} (Counter): API calls by method and status
//   - apicall_request_duration_seconds{method} (Histogram): API call duration including retries
//
// Pagination Metrics (pkg/pagination):
//   - pagination_pages_fetched_total{strategy} (Counter): Pages fetched by locked strategy
//   - pagination_strategy_locks_total{strategy} (Counter): Traversals locked to a strategy
//   - pagination_traversals_completed_total (Counter): Traversals that reached the end
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(apicore_cache_hits_total[5m])) /
//   (sum(rate(apicore_cache_hits_total[5m])) + sum(rate(apicore_cache_misses_total[5m])))
//
//   # Pages per traversal
//   sum(rate(pagination_pages_fetched_total[5m])) / rate(pagination_traversals_completed_total[5m])
//
//   # Request Error Rate
//   rate(apicore_transport_errors_total[5m])
//
//   # P95 Call Latency
//   histogram_quantile(0.95, rate(apicall_request_duration_seconds_bucket[5m]))
//
//   # 304 Response Rate
//   rate(apicore_cache_not_modified_total[5m]) / rate(apicore_transport_requests_total[5m])
