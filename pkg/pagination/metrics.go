package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts pages received per strategy.
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagination_pages_fetched_total",
			Help: "Total number of pages fetched by pagination strategy",
		},
		[]string{"strategy"},
	)

	// StrategyLocks counts traversals locked onto each strategy.
	StrategyLocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagination_strategy_locks_total",
			Help: "Total number of traversals locked onto a pagination strategy",
		},
		[]string{"strategy"},
	)

	// TraversalsCompleted counts traversals that reached the end.
	TraversalsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagination_traversals_completed_total",
			Help: "Total number of pagination traversals that reached the last page",
		},
	)
)
