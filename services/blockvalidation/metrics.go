package blockvalidation

import (
	"sync"

	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusBlockValidationProcessBlock prometheus.Histogram
	prometheusBlockValidationBlocks       *prometheus.CounterVec

	prometheusNotifierEvents    prometheus.Counter
	prometheusNotifierObservers prometheus.Gauge
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBlockValidationProcessBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "supplyfuzz",
			Subsystem: "blockvalidation",
			Name:      "process_block",
			Help:      "Histogram of processing a submitted block",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusBlockValidationBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Subsystem: "blockvalidation",
			Name:      "blocks",
			Help:      "Number of processed blocks by result",
		},
		[]string{
			"result",
		},
	)

	prometheusNotifierEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Subsystem: "blockvalidation",
			Name:      "notifier_events",
			Help:      "Number of block checked events delivered",
		},
	)

	prometheusNotifierObservers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "supplyfuzz",
			Subsystem: "blockvalidation",
			Name:      "notifier_observers",
			Help:      "Number of subscribed observers",
		},
	)
}
