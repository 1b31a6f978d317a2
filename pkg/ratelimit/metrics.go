package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remainingGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apicore_ratelimit_remaining",
		Help: "Requests remaining in the current rate limit window",
	}, []string{"host"})

	blocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apicore_ratelimit_blocks_total",
		Help: "Requests blocked because the budget fell below the critical threshold",
	}, []string{"host"})

	throttlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apicore_ratelimit_throttles_total",
		Help: "Requests delayed because the budget fell below the warning threshold",
	}, []string{"host"})
)
