package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InferenceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pc_inference_total",
			Help: "Inference runs by model and outcome",
		},
		[]string{"model", "status"},
	)

	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pc_inference_duration_seconds",
			Help:    "Inference latency including lazy model load",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"model"},
	)

	PredictionRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pc_prediction_rows",
			Help:    "Rows returned per inference run",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
		[]string{"model"},
	)

	SupersededRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pc_superseded_runs_total",
			Help: "Inference results discarded because a newer run was started",
		},
	)

	ModelLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pc_model_loads_total",
			Help: "Lazy model loads by model and outcome",
		},
		[]string{"model", "status"},
	)
)
