package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CandidatesScored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unfold",
		Name:      "candidates_scored_total",
		Help:      "Total number of candidate profiles scored against persons",
	}, []string{"platform"})

	ProfilesMerged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unfold",
		Name:      "profiles_merged_total",
		Help:      "Total number of candidate profiles merged into persons",
	}, []string{"platform"})

	ProfilesElaborated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unfold",
		Name:      "profiles_elaborated_total",
		Help:      "Total number of profiles whose image signals were computed",
	}, []string{"platform"})

	ElaborationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "unfold",
		Name:      "elaboration_duration_seconds",
		Help:      "Duration of per-profile image signal extraction",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	PlatformRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unfold",
		Name:      "platform_requests_total",
		Help:      "Total requests accounted by the per-platform rate gates",
	}, []string{"platform"})

	RateGateWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unfold",
		Name:      "rate_gate_waits_total",
		Help:      "Times a rate gate forced the campaign to back off",
	}, []string{"platform"})

	PlatformAborts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unfold",
		Name:      "platform_aborts_total",
		Help:      "Platform resolution passes aborted (blocked or unauthenticated)",
	}, []string{"platform", "reason"})

	CheckpointsMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unfold",
		Name:      "checkpoints_marked_total",
		Help:      "Per-platform checkpoint flags flipped to checked",
	}, []string{"platform"})

	PersonsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "unfold",
		Name:      "persons_registered_total",
		Help:      "Persons created during ingestion",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "unfold",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "unfold",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
