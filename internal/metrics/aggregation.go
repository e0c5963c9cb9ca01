package metrics

import "github.com/prometheus/client_golang/prometheus"

// Aggregation Prometheus metrics.
var (
	ShardAggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facetd",
			Name:      "shard_aggregations_total",
			Help:      "Total number of per-shard facet aggregations",
		},
		[]string{"status"}, // "ok" / "error" / "canceled"
	)

	ShardAggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "facetd",
			Name:      "shard_aggregation_duration_seconds",
			Help:      "Per-shard facet aggregation duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	CorruptOrdinalBuffersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facetd",
			Name:      "corrupt_ordinal_buffers_total",
			Help:      "Documents whose ordinal buffer could not be decoded",
		},
		[]string{"shard"},
	)

	CombineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "facetd",
			Name:      "combine_duration_seconds",
			Help:      "Duration of combining shard partials in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"kind"}, // "count" / "stat"
	)

	CombinePossibleMissingTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facetd",
			Name:      "combine_possible_missing_total",
			Help:      "Combined results flagged as possibly missing a higher-ranked label",
		},
		[]string{"kind"},
	)

	SketchAccuracyMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "facetd",
			Name:      "sketch_accuracy_mismatch_total",
			Help:      "Stat combines rejected because shard sketches used different accuracies",
		},
	)

	IngestedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facetd",
			Name:      "ingested_documents_total",
			Help:      "Documents appended to shards",
		},
		[]string{"shard"},
	)
)

var aggMetricsRegistered bool

// RegisterAggregationMetrics registers Prometheus aggregation metrics. Must be called once from main.
func RegisterAggregationMetrics() {
	if aggMetricsRegistered {
		return
	}
	prometheus.MustRegister(ShardAggregationsTotal)
	prometheus.MustRegister(ShardAggregationDuration)
	prometheus.MustRegister(CorruptOrdinalBuffersTotal)
	prometheus.MustRegister(CombineDuration)
	prometheus.MustRegister(CombinePossibleMissingTotal)
	prometheus.MustRegister(SketchAccuracyMismatchTotal)
	prometheus.MustRegister(IngestedDocumentsTotal)
	aggMetricsRegistered = true
}
