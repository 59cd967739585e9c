package supplyfuzz

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusSupplyFuzzActions     *prometheus.CounterVec
	prometheusSupplyFuzzBlocks      *prometheus.CounterVec
	prometheusSupplyFuzzCirculation prometheus.Gauge
	prometheusSupplyFuzzRuns        prometheus.Counter
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusSupplyFuzzActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Subsystem: "driver",
			Name:      "actions",
			Help:      "Number of actions taken from fuzz input",
		},
		[]string{
			"action",
		},
	)

	prometheusSupplyFuzzBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Subsystem: "driver",
			Name:      "blocks",
			Help:      "Number of finalized blocks by outcome",
		},
		[]string{
			"result",
		},
	)

	prometheusSupplyFuzzCirculation = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "supplyfuzz",
			Subsystem: "driver",
			Name:      "circulation",
			Help:      "Circulating supply of the last checked run state",
		},
	)

	prometheusSupplyFuzzRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Subsystem: "driver",
			Name:      "runs",
			Help:      "Number of completed harness runs",
		},
	)
}
