package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "food_rescue", Name: "matches_total", Help: "Total donations assigned to a carrier"})
	UnassignedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "food_rescue", Name: "matches_unassigned_total", Help: "Total donations left pending after a search"})
	MatchLatency    = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "food_rescue", Name: "match_latency_seconds", Help: "Match latency seconds"})
	ClaimConflicts  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "food_rescue", Name: "claim_conflicts_total", Help: "Carrier claims lost to a concurrent match"})
	NotifyFailures  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "food_rescue", Name: "notify_failures_total", Help: "Best-effort carrier notifications that failed"})
	CarriersOnline  = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "food_rescue", Name: "carriers_online", Help: "Carriers reporting a location"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "food_rescue", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "food_rescue",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
