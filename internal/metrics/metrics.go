// Package metrics exposes Prometheus instruments for the scoring engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ScoreTotal counts scoring calls by outcome (created, updated, unchanged, or an error kind).
	ScoreTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prism_score_total",
		Help: "Scoring calls by outcome",
	}, []string{"outcome"})

	// ScoreDuration tracks end-to-end scoring latency including persistence.
	ScoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prism_score_duration_seconds",
		Help:    "Scoring duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"trigger"})

	// ValidityTotal counts scored profiles by validity status.
	ValidityTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prism_validity_total",
		Help: "Scored profiles by validity status",
	}, []string{"status"})

	// ConfidenceBandTotal counts scored profiles by confidence band.
	ConfidenceBandTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prism_confidence_band_total",
		Help: "Scored profiles by confidence band",
	}, []string{"band"})

	// ConflictRetries counts compare-and-swap retries.
	ConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prism_persist_conflict_retries_total",
		Help: "Persistence conflicts that were retried",
	})

	// BackfillSessions counts backfill results by outcome.
	BackfillSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prism_backfill_sessions_total",
		Help: "Backfill sessions by outcome",
	}, []string{"outcome"})

	// ReliabilityAlpha is the latest Cronbach's alpha per scale.
	ReliabilityAlpha = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "prism_reliability_alpha",
		Help: "Latest Cronbach's alpha per scale",
	}, []string{"scale"})

	// RPCRequests counts gRPC calls by method and status code.
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prism_rpc_requests_total",
		Help: "gRPC requests by method and code",
	}, []string{"method", "code"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
