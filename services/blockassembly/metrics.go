package blockassembly

import (
	"sync"

	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusBlockAssemblerTemplates     prometheus.Counter
	prometheusBlockAssemblerBuildTemplate prometheus.Histogram
	prometheusMempoolSize                 prometheus.Gauge
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBlockAssemblerTemplates = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Subsystem: "blockassembly",
			Name:      "templates",
			Help:      "Number of block templates built",
		},
	)

	prometheusBlockAssemblerBuildTemplate = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "supplyfuzz",
			Subsystem: "blockassembly",
			Name:      "build_template",
			Help:      "Histogram of building a block template",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusMempoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "supplyfuzz",
			Subsystem: "blockassembly",
			Name:      "mempool_transactions",
			Help:      "Number of transactions waiting to be mined",
		},
	)
}
