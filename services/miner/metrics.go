package miner

import (
	"sync"

	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusMinerBlocks *prometheus.CounterVec
	prometheusMinerGrind  prometheus.Histogram
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusMinerBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Subsystem: "miner",
			Name:      "blocks",
			Help:      "Number of submitted blocks by outcome",
		},
		[]string{
			"result",
		},
	)

	prometheusMinerGrind = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "supplyfuzz",
			Subsystem: "miner",
			Name:      "grind",
			Help:      "Histogram of grinding a block header",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)
}
