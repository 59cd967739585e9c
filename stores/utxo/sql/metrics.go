package sql

import (
	"sync"

	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusUtxoGet          prometheus.Counter
	prometheusUtxoConnectBlock prometheus.Counter
	prometheusUtxoSpent        prometheus.Counter
	prometheusUtxoCreated      prometheus.Counter
	prometheusUtxoStatistics   prometheus.Histogram
	prometheusUtxoErrors       *prometheus.CounterVec

	// only init the metrics once
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusUtxoGet = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Name:      "sql_utxo_get",
			Help:      "Number of utxo get calls done to sql",
		},
	)
	prometheusUtxoConnectBlock = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Name:      "sql_utxo_connect_block",
			Help:      "Number of blocks connected to the sql utxo set",
		},
	)
	prometheusUtxoSpent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Name:      "sql_utxo_spent",
			Help:      "Number of utxos removed from sql by connected blocks",
		},
	)
	prometheusUtxoCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Name:      "sql_utxo_created",
			Help:      "Number of utxos added to sql by connected blocks",
		},
	)
	prometheusUtxoStatistics = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "supplyfuzz",
			Name:      "sql_utxo_statistics_seconds",
			Help:      "Time taken to recompute the utxo set statistics",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)
	prometheusUtxoErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supplyfuzz",
			Name:      "sql_utxo_errors",
			Help:      "Number of utxo errors",
		},
		[]string{
			"function", // function raising the error
			"error",    // error returned
		},
	)
}
