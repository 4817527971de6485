package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aesthetics_pipeline_runs_total",
		Help: "The total number of analysis pipeline runs",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aesthetics_stage_duration_seconds",
		Help:    "Duration of analysis pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	CreatorsAnalyzed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aesthetics_creators_analyzed",
		Help: "Number of creators with a profile in the latest epoch",
	})

	CreatorsSkipped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aesthetics_creators_skipped",
		Help: "Number of creators skipped in the latest epoch for missing embeddings",
	})

	ClustersFound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aesthetics_clusters_found",
		Help: "Number of clusters selected in the latest epoch",
	})

	NoiseCreators = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aesthetics_noise_creators",
		Help: "Number of creators labeled noise in the latest epoch",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aesthetics_graph_edges",
		Help: "Number of follow edges between clustered creators in the latest epoch",
	})

	EdgesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aesthetics_edges_dropped_total",
		Help: "Total number of follow edges dropped while building the graph",
	}, []string{"reason"})

	PermutationTrials = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aesthetics_permutation_trials_total",
		Help: "Total number of label permutation trials run",
	})

	EmbeddingsBackfilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aesthetics_embeddings_backfilled_total",
		Help: "Total number of reel embeddings backfilled",
	}, []string{"status"})

	EmbeddingRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aesthetics_embedding_request_duration_seconds",
		Help:    "Duration of embedding provider requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
)
