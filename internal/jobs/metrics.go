package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeReached    = "reached"
	outcomeBestEffort = "best_effort"
	outcomeCancelled  = "cancelled"
	outcomeFailed     = "failed"
	outcomeRejected   = "rejected"
)

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxelnav_searches_total",
		Help: "Path searches by outcome",
	}, []string{"outcome"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxelnav_search_duration_seconds",
		Help:    "Wall time of a path search, excluding queueing",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	})

	nodesVisited = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxelnav_search_nodes_visited",
		Help:    "Nodes closed per search",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxelnav_search_queue_depth",
		Help: "Submitted searches waiting for a worker",
	})
)
